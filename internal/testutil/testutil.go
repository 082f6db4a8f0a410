// Package testutil holds fixtures shared by the package test suites.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/dailymaze/internal/domain"
	"github.com/sudo-init-do/dailymaze/internal/store"
	"github.com/sudo-init-do/dailymaze/internal/store/sqlite"
)

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewStore opens a migrated SQLite store in a per-test directory.
func NewStore(t *testing.T) *sqlite.Store {
	t.Helper()

	ctx := context.Background()
	st, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "test.db"), Logger())
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(st.Close)

	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("Failed to migrate test store: %v", err)
	}
	return st
}

// CreateAccount inserts a player holding balance points and returns it.
func CreateAccount(t *testing.T, st *sqlite.Store, username string, balance int64) domain.Account {
	t.Helper()

	a := domain.Account{
		ID:             uuid.NewString(),
		Username:       username,
		Email:          username + "@example.com",
		PasswordHash:   "x",
		Role:           domain.RolePlayer,
		Balance:        balance,
		TotalDeposited: decimal.Zero,
		CreatedAt:      time.Now().UTC(),
	}
	err := st.WithTx(context.Background(), func(tx store.Tx) error {
		return tx.InsertAccount(context.Background(), a)
	})
	if err != nil {
		t.Fatalf("Failed to create test account %s: %v", username, err)
	}
	return a
}

// MakeRequest creates an HTTP test request with an optional JSON body and bearer token.
func MakeRequest(method, path string, body any, token string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// Decode unmarshals a recorder body into v.
func Decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
}

// Run is one seeded attempt. A zero CompletedAt leaves it unfinished.
type Run struct {
	Username    string
	Elapsed     time.Duration
	CompletedAt time.Time
}

// SeedDay stores a maze for day with the given pool and one session per run,
// creating each run's account with a zero balance. It returns the session
// ids keyed by username.
func SeedDay(t *testing.T, st *sqlite.Store, day domain.Day, pool decimal.Decimal, runs []Run) map[string]string {
	t.Helper()

	ctx := context.Background()
	err := st.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.InsertMaze(ctx, domain.DailyMaze{
			Day:       day,
			Layout:    domain.Layout{{1, 1, 1}, {0, 0, 0}, {1, 1, 1}},
			Width:     3,
			Height:    3,
			CreatedAt: day.Start(time.UTC),
		}); err != nil {
			return err
		}
		if pool.IsZero() {
			return nil
		}
		return tx.AddToPrizePool(ctx, day, pool)
	})
	if err != nil {
		t.Fatalf("Failed to seed maze for %s: %v", day, err)
	}

	sessions := make(map[string]string, len(runs))
	for _, r := range runs {
		a := CreateAccount(t, st, r.Username, 0)
		id := uuid.NewString()
		err := st.WithTx(ctx, func(tx store.Tx) error {
			err := tx.InsertSession(ctx, domain.Session{ID: id, AccountID: a.ID, Day: day, StartedAt: day.Start(time.UTC)})
			if err != nil || r.CompletedAt.IsZero() {
				return err
			}
			_, err = tx.CompleteSession(ctx, id, r.CompletedAt, r.Elapsed)
			return err
		})
		if err != nil {
			t.Fatalf("Failed to seed session for %s: %v", r.Username, err)
		}
		sessions[r.Username] = id
	}
	return sessions
}
