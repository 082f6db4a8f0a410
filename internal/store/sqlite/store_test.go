package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/dailymaze/internal/domain"
	"github.com/sudo-init-do/dailymaze/internal/store"
	"github.com/sudo-init-do/dailymaze/internal/testutil"
)

func TestInsertAccount_DuplicateUsername(t *testing.T) {
	st := testutil.NewStore(t)
	ctx := context.Background()
	testutil.CreateAccount(t, st, "alice", 0)

	err := st.WithTx(ctx, func(tx store.Tx) error {
		return tx.InsertAccount(ctx, domain.Account{
			ID:           uuid.NewString(),
			Username:     "alice",
			Email:        "other@example.com",
			PasswordHash: "x",
			Role:         domain.RolePlayer,
			CreatedAt:    time.Now(),
		})
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestAdjustBalance(t *testing.T) {
	st := testutil.NewStore(t)
	ctx := context.Background()
	a := testutil.CreateAccount(t, st, "alice", 100)

	tests := []struct {
		name    string
		id      string
		delta   int64
		want    int64
		wantErr error
	}{
		{"credit", a.ID, 50, 150, nil},
		{"debit to zero", a.ID, -150, 0, nil},
		{"overdraw", a.ID, -1, 0, domain.ErrInsufficientFunds},
		{"unknown account", "missing", 10, 0, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got int64
			err := st.WithTx(ctx, func(tx store.Tx) error {
				var err error
				got, err = tx.AdjustBalance(ctx, tt.id, tt.delta)
				return err
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("balance = %d, want %d", got, tt.want)
			}
		})
	}

	acc, err := st.Account(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if acc.Balance != 0 {
		t.Errorf("stored balance = %d, want 0", acc.Balance)
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	st := testutil.NewStore(t)
	ctx := context.Background()
	a := testutil.CreateAccount(t, st, "alice", 100)

	boom := errors.New("boom")
	err := st.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.AdjustBalance(ctx, a.ID, 500); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	acc, err := st.Account(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if acc.Balance != 100 {
		t.Errorf("balance = %d after rollback, want 100", acc.Balance)
	}
}

func TestInsertMaze_OncePerDay(t *testing.T) {
	st := testutil.NewStore(t)
	ctx := context.Background()
	day := domain.Day("2026-03-01")

	first := domain.DailyMaze{Day: day, Layout: domain.Layout{{1, 1}, {0, 0}}, Width: 2, Height: 2, CreatedAt: time.Now()}
	second := domain.DailyMaze{Day: day, Layout: domain.Layout{{0, 0}, {1, 1}}, Width: 2, Height: 2, CreatedAt: time.Now()}

	for i, m := range []domain.DailyMaze{first, second} {
		var inserted bool
		err := st.WithTx(ctx, func(tx store.Tx) error {
			var err error
			inserted, err = tx.InsertMaze(ctx, m)
			return err
		})
		if err != nil {
			t.Fatal(err)
		}
		if inserted != (i == 0) {
			t.Errorf("insert %d: inserted = %v", i, inserted)
		}
	}

	got, err := st.DailyMaze(ctx, day)
	if err != nil {
		t.Fatal(err)
	}
	if got.Layout[0][0] != 1 || got.Layout[1][0] != 0 {
		t.Errorf("layout = %v, want the first insert", got.Layout)
	}
	if !got.PrizePool.IsZero() {
		t.Errorf("prize pool = %s, want 0", got.PrizePool)
	}
}

func TestPrizePoolAndSettlement(t *testing.T) {
	st := testutil.NewStore(t)
	ctx := context.Background()
	day := domain.Day("2026-03-01")
	a := testutil.CreateAccount(t, st, "alice", 0)

	err := st.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.InsertMaze(ctx, domain.DailyMaze{Day: day, Layout: domain.Layout{{0}}, Width: 1, Height: 1, CreatedAt: time.Now()}); err != nil {
			return err
		}
		for i := 0; i < 3; i++ {
			if err := tx.AddToPrizePool(ctx, day, decimal.NewFromInt(1)); err != nil {
				return err
			}
		}
		return tx.AddToPrizePool(ctx, day, decimal.RequireFromString("0.25"))
	})
	if err != nil {
		t.Fatal(err)
	}

	winner := &domain.Winner{AccountID: a.ID, SessionID: "s1", Elapsed: 39900 * time.Millisecond, PrizePoints: 637}
	for i := 0; i < 2; i++ {
		var flipped bool
		err := st.WithTx(ctx, func(tx store.Tx) error {
			var err error
			flipped, err = tx.MarkSettled(ctx, day, winner, time.Now())
			return err
		})
		if err != nil {
			t.Fatal(err)
		}
		if flipped != (i == 0) {
			t.Errorf("settle %d: flipped = %v", i, flipped)
		}
	}

	m, err := st.DailyMaze(ctx, day)
	if err != nil {
		t.Fatal(err)
	}
	if !m.PrizePool.Equal(decimal.RequireFromString("3.25")) {
		t.Errorf("prize pool = %s, want 3.25", m.PrizePool)
	}
	if !m.Settled || m.Winner == nil {
		t.Fatalf("maze not settled with winner: %+v", m)
	}
	if m.Winner.Username != "alice" || m.Winner.PrizePoints != 637 || m.Winner.Elapsed != 39900*time.Millisecond {
		t.Errorf("winner = %+v", m.Winner)
	}
}

func TestStandingsOrder(t *testing.T) {
	st := testutil.NewStore(t)
	ctx := context.Background()
	day := domain.Day("2026-03-01")
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	err := st.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.InsertMaze(ctx, domain.DailyMaze{Day: day, Layout: domain.Layout{{0}}, Width: 1, Height: 1, CreatedAt: base})
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	runs := []struct {
		user      string
		elapsed   time.Duration
		completed time.Time
	}{
		{"slow", 50 * time.Second, base.Add(time.Minute)},
		{"tie-late", 40 * time.Second, base.Add(3 * time.Minute)},
		{"tie-early", 40 * time.Second, base.Add(2*time.Minute + 500*time.Millisecond)},
		{"unfinished", 0, time.Time{}},
	}
	for _, r := range runs {
		a := testutil.CreateAccount(t, st, r.user, 0)
		id := uuid.NewString()
		err := st.WithTx(ctx, func(tx store.Tx) error {
			if err := tx.InsertSession(ctx, domain.Session{ID: id, AccountID: a.ID, Day: day, StartedAt: base}); err != nil {
				return err
			}
			if r.completed.IsZero() {
				return nil
			}
			_, err := tx.CompleteSession(ctx, id, r.completed, r.elapsed)
			return err
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	standings, err := st.Standings(ctx, day)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"tie-early", "tie-late", "slow"}
	if len(standings) != len(want) {
		t.Fatalf("got %d standings, want %d", len(standings), len(want))
	}
	for i, s := range standings {
		if s.Username != want[i] || s.Rank != i+1 {
			t.Errorf("standings[%d] = %s rank %d, want %s rank %d", i, s.Username, s.Rank, want[i], i+1)
		}
	}
}

func TestUnsettledDays(t *testing.T) {
	st := testutil.NewStore(t)
	ctx := context.Background()

	for _, d := range []domain.Day{"2026-03-03", "2026-03-01", "2026-03-02"} {
		err := st.WithTx(ctx, func(tx store.Tx) error {
			_, err := tx.InsertMaze(ctx, domain.DailyMaze{Day: d, Layout: domain.Layout{{0}}, Width: 1, Height: 1, CreatedAt: time.Now()})
			return err
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	days, err := st.UnsettledDays(ctx, "2026-03-03")
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 2 || days[0] != "2026-03-01" || days[1] != "2026-03-02" {
		t.Errorf("days = %v, want [2026-03-01 2026-03-02]", days)
	}
}
