package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/dailymaze/internal/auth"
	"github.com/sudo-init-do/dailymaze/internal/config"
	"github.com/sudo-init-do/dailymaze/internal/domain"
	"github.com/sudo-init-do/dailymaze/internal/ranking"
	"github.com/sudo-init-do/dailymaze/internal/session"
	"github.com/sudo-init-do/dailymaze/internal/testutil"
	"github.com/sudo-init-do/dailymaze/internal/wallet"
)

func newServer(t *testing.T) (*App, *echo.Echo) {
	t.Helper()
	cfg := config.Config{
		JWTSecret:            "test-secret",
		TokenTTL:             time.Hour,
		AdminBootstrapSecret: "boot",
		Rules:                domain.DefaultRules(),
	}
	a := Build(cfg, testutil.NewStore(t), testutil.Logger())
	t.Cleanup(a.Hub.CloseAll)
	return a, a.Echo()
}

func do(t *testing.T, e *echo.Echo, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, testutil.MakeRequest(method, path, body, token))
	return rec
}

func login(t *testing.T, e *echo.Echo, username string) string {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/api/login", map[string]string{"username": username, "password": "hunter22"}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", username, rec.Code, rec.Body)
	}
	var resp auth.LoginResponse
	testutil.Decode(t, rec, &resp)
	return resp.Token
}

func register(t *testing.T, e *echo.Echo, username string) string {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/api/register", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "hunter22",
	}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: %d %s", username, rec.Code, rec.Body)
	}
	return login(t, e, username)
}

func play(t *testing.T, e *echo.Echo, token string, elapsed float64) {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/api/purchase", map[string]any{"amount_usd": "1.00", "method": "paypal"}, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("purchase: %d %s", rec.Code, rec.Body)
	}
	var bought wallet.PurchaseResponse
	testutil.Decode(t, rec, &bought)
	if bought.Balance != 250 || bought.PointsAdded != 250 {
		t.Fatalf("purchase response = %+v", bought)
	}

	rec = do(t, e, http.MethodPost, "/api/sessions", nil, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start: %d %s", rec.Code, rec.Body)
	}
	var started session.StartResponse
	testutil.Decode(t, rec, &started)
	if started.Balance != 0 || started.Width != 25 || started.Height != 17 {
		t.Fatalf("start response = %+v", started)
	}

	rec = do(t, e, http.MethodPost, "/api/sessions/"+started.SessionID+"/complete", map[string]float64{"elapsed_seconds": elapsed}, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete: %d %s", rec.Code, rec.Body)
	}
}

func TestTournamentDay(t *testing.T) {
	_, e := newServer(t)

	alice := register(t, e, "alice")
	bob := register(t, e, "bob")
	play(t, e, alice, 42.5)
	play(t, e, bob, 39.9)

	// a second attempt is refused before anything else is checked
	if rec := do(t, e, http.MethodPost, "/api/sessions", nil, alice); rec.Code != http.StatusPaymentRequired {
		t.Errorf("broke second start status = %d, want 402", rec.Code)
	}

	rec := do(t, e, http.MethodGet, "/api/ranking", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("ranking: %d %s", rec.Code, rec.Body)
	}
	var snap ranking.Snapshot
	testutil.Decode(t, rec, &snap)
	if len(snap.Standings) != 2 || snap.Standings[0].Username != "bob" || snap.Standings[1].Username != "alice" {
		t.Errorf("standings = %+v", snap.Standings)
	}
	if snap.Prize.PoolUSD != "2.00" || snap.Prize.PrizePoints != 425 {
		t.Errorf("prize = %+v, want pool 2.00 and 425 points", snap.Prize)
	}

	rec = do(t, e, http.MethodGet, "/api/wallet/transactions", nil, alice)
	if rec.Code != http.StatusOK {
		t.Fatalf("transactions: %d %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), `"reason":"entry"`) || !strings.Contains(rec.Body.String(), `"reason":"purchase"`) {
		t.Errorf("transactions = %s", rec.Body)
	}
}

func TestAuthAndAdminGuards(t *testing.T) {
	_, e := newServer(t)
	token := register(t, e, "ops")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{"wallet without token", http.MethodGet, "/api/wallet", "", http.StatusUnauthorized},
		{"wallet with bad token", http.MethodGet, "/api/wallet", "garbage", http.StatusUnauthorized},
		{"wallet", http.MethodGet, "/api/wallet", token, http.StatusOK},
		{"me", http.MethodGet, "/api/me", token, http.StatusOK},
		{"admin as player", http.MethodGet, "/admin/stats", token, http.StatusForbidden},
		{"admin without token", http.MethodGet, "/admin/stats", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		if rec := do(t, e, tt.method, tt.path, nil, tt.token); rec.Code != tt.status {
			t.Errorf("%s: status = %d, want %d", tt.name, rec.Code, tt.status)
		}
	}

	rec := do(t, e, http.MethodPost, "/api/admin/bootstrap", map[string]string{"username": "ops", "secret": "boot"}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("bootstrap: %d %s", rec.Code, rec.Body)
	}
	admin := login(t, e, "ops")

	if rec := do(t, e, http.MethodGet, "/admin/stats", nil, admin); rec.Code != http.StatusOK {
		t.Errorf("stats as admin status = %d", rec.Code)
	}
	// operators keep the player routes
	if rec := do(t, e, http.MethodPost, "/api/purchase", map[string]any{"amount_usd": "1.00", "method": "card"}, admin); rec.Code != http.StatusOK {
		t.Errorf("purchase as admin status = %d", rec.Code)
	}
	today := domain.DefaultRules().Today(time.Now())
	if rec := do(t, e, http.MethodPost, "/admin/settlements/"+today.String(), nil, admin); rec.Code != http.StatusBadRequest {
		t.Errorf("settling today status = %d, want 400", rec.Code)
	}
	if rec := do(t, e, http.MethodPost, "/admin/settlements/recover", nil, admin); rec.Code != http.StatusOK {
		t.Errorf("recover status = %d", rec.Code)
	}
}

func TestOpsRoutes(t *testing.T) {
	_, e := newServer(t)

	for _, path := range []string{"/", "/health", "/ready"} {
		if rec := do(t, e, http.MethodGet, path, nil, ""); rec.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rec.Code)
		}
	}

	rec := do(t, e, http.MethodGet, "/metrics", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "dailymaze_") {
		t.Error("metrics output has no dailymaze collectors")
	}
}
