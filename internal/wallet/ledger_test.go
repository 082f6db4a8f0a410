package wallet

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/dailymaze/internal/domain"
	"github.com/sudo-init-do/dailymaze/internal/middleware"
	"github.com/sudo-init-do/dailymaze/internal/testutil"
)

func TestDebit_ConcurrentNeverNegative(t *testing.T) {
	st := testutil.NewStore(t)
	ledger := NewLedger(st, domain.DefaultRules(), testutil.Logger())
	a := testutil.CreateAccount(t, st, "alice", 1000)

	const workers = 10
	var ok, short atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Debit(context.Background(), a.ID, 250, domain.ReasonEntry, "ref")
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domain.ErrInsufficientFunds):
				short.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok.Load() != 4 || short.Load() != workers-4 {
		t.Errorf("successes = %d, rejections = %d; want 4 and %d", ok.Load(), short.Load(), workers-4)
	}
	acc, err := ledger.Account(context.Background(), a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if acc.Balance != 0 {
		t.Errorf("balance = %d, want 0", acc.Balance)
	}
	txs, err := ledger.History(context.Background(), a.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 4 {
		t.Errorf("recorded %d transactions, want 4", len(txs))
	}
}

func TestDebit_InsufficientLeavesNoTrace(t *testing.T) {
	st := testutil.NewStore(t)
	ledger := NewLedger(st, domain.DefaultRules(), testutil.Logger())
	a := testutil.CreateAccount(t, st, "bob", 100)

	if _, err := ledger.Debit(context.Background(), a.ID, 250, domain.ReasonEntry, "ref"); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	txs, _ := ledger.History(context.Background(), a.ID, 10)
	if len(txs) != 0 {
		t.Errorf("recorded %d transactions, want 0", len(txs))
	}
}

func TestCredit_RecordsBalanceAfter(t *testing.T) {
	st := testutil.NewStore(t)
	ledger := NewLedger(st, domain.DefaultRules(), testutil.Logger())
	a := testutil.CreateAccount(t, st, "carol", 40)

	balance, err := ledger.Credit(context.Background(), a.ID, 637, domain.ReasonPrize, "session-1")
	if err != nil {
		t.Fatal(err)
	}
	if balance != 677 {
		t.Errorf("balance = %d, want 677", balance)
	}

	txs, err := ledger.History(context.Background(), a.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 1 {
		t.Fatalf("got %d transactions, want 1", len(txs))
	}
	got := txs[0]
	if got.Kind != domain.TxCredit || got.Reason != domain.ReasonPrize || got.Amount != 637 ||
		got.BalanceAfter != 677 || got.Reference != "session-1" {
		t.Errorf("transaction = %+v", got)
	}
}

func TestApply_RejectsBadInput(t *testing.T) {
	st := testutil.NewStore(t)
	ledger := NewLedger(st, domain.DefaultRules(), testutil.Logger())
	a := testutil.CreateAccount(t, st, "dave", 100)

	tests := []struct {
		name   string
		amount int64
		ref    string
	}{
		{"zero amount", 0, "ref"},
		{"negative amount", -5, "ref"},
		{"missing reference", 10, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.Credit(context.Background(), a.ID, tt.amount, domain.ReasonPrize, tt.ref)
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("err = %v, want ValidationError", err)
			}
		})
	}
}

func TestPurchase(t *testing.T) {
	st := testutil.NewStore(t)
	ledger := NewLedger(st, domain.DefaultRules(), testutil.Logger())
	a := testutil.CreateAccount(t, st, "erin", 0)

	acc, err := ledger.Purchase(context.Background(), a.ID, decimal.RequireFromString("10.50"), "paypal")
	if err != nil {
		t.Fatal(err)
	}
	if acc.Balance != 2625 {
		t.Errorf("balance = %d, want 2625", acc.Balance)
	}
	if !acc.TotalDeposited.Equal(decimal.RequireFromString("10.5")) {
		t.Errorf("total deposited = %s, want 10.50", acc.TotalDeposited)
	}
	if acc.LastPaymentAt == nil {
		t.Error("last payment time not recorded")
	}

	txs, _ := ledger.History(context.Background(), a.ID, 10)
	if len(txs) != 1 {
		t.Fatalf("got %d transactions, want 1", len(txs))
	}
	if txs[0].Method != "paypal" || txs[0].AmountUSD == nil || !strings.HasPrefix(txs[0].Reference, "sim_paypal_") {
		t.Errorf("transaction = %+v", txs[0])
	}
}

func TestPurchase_Validation(t *testing.T) {
	st := testutil.NewStore(t)
	ledger := NewLedger(st, domain.DefaultRules(), testutil.Logger())
	a := testutil.CreateAccount(t, st, "frank", 0)

	tests := []struct {
		name   string
		usd    string
		method string
	}{
		{"zero", "0", "card"},
		{"negative", "-1", "card"},
		{"too large", "1000.01", "card"},
		{"sub-cent", "1.005", "card"},
		{"unknown method", "5", "cash"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.Purchase(context.Background(), a.ID, decimal.RequireFromString(tt.usd), tt.method)
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("err = %v, want ValidationError", err)
			}
		})
	}
}

func TestPurchaseHandler(t *testing.T) {
	st := testutil.NewStore(t)
	ledger := NewLedger(st, domain.DefaultRules(), testutil.Logger())
	h := NewHandler(ledger, testutil.Logger())
	a := testutil.CreateAccount(t, st, "gina", 0)
	e := echo.New()

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"valid", `{"amount_usd": 4, "method": "card"}`, http.StatusOK},
		{"string amount", `{"amount_usd": "2.00", "method": "crypto"}`, http.StatusOK},
		{"bad method", `{"amount_usd": 4, "method": "iou"}`, http.StatusBadRequest},
		{"malformed", `{"amount_usd":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/purchase", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			c.Set(middleware.KeyAccountID, a.ID)

			if err := h.Purchase(c); err != nil {
				t.Fatal(err)
			}
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
		})
	}

	acc, _ := ledger.Account(context.Background(), a.ID)
	if acc.Balance != 1500 {
		t.Errorf("balance = %d, want 1500", acc.Balance)
	}
}

func TestBalanceHandler_Unauthorized(t *testing.T) {
	h := NewHandler(nil, testutil.Logger())
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/api/wallet", nil), rec)

	if err := h.Balance(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
