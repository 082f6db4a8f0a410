// Package wallet owns every change to a player's point balance.
package wallet

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/dailymaze/internal/domain"
	"github.com/sudo-init-do/dailymaze/internal/metrics"
	"github.com/sudo-init-do/dailymaze/internal/store"
)

// History page bounds.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

// Ledger applies balance changes and their audit records atomically.
type Ledger struct {
	store store.Store
	rules domain.Rules
	log   *slog.Logger
	now   func() time.Time
}

func NewLedger(st store.Store, rules domain.Rules, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{store: st, rules: rules, log: logger, now: time.Now}
}

// Debit removes amount points, failing with domain.ErrInsufficientFunds
// rather than leaving a negative balance.
func (l *Ledger) Debit(ctx context.Context, accountID string, amount int64, reason domain.TxReason, reference string) (int64, error) {
	var balance int64
	err := l.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		balance, err = l.DebitTx(ctx, tx, accountID, amount, reason, reference)
		return err
	})
	if err != nil {
		return 0, err
	}
	Committed(domain.TxDebit, reason)
	return balance, nil
}

// Credit adds amount points.
func (l *Ledger) Credit(ctx context.Context, accountID string, amount int64, reason domain.TxReason, reference string) (int64, error) {
	var balance int64
	err := l.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		balance, err = l.CreditTx(ctx, tx, accountID, amount, reason, reference)
		return err
	})
	if err != nil {
		return 0, err
	}
	Committed(domain.TxCredit, reason)
	return balance, nil
}

// DebitTx is Debit inside the caller's transaction. The account row stays
// locked until that transaction ends.
func (l *Ledger) DebitTx(ctx context.Context, tx store.Tx, accountID string, amount int64, reason domain.TxReason, reference string) (int64, error) {
	return l.apply(ctx, tx, domain.Transaction{
		AccountID: accountID,
		Kind:      domain.TxDebit,
		Reason:    reason,
		Amount:    amount,
		Reference: reference,
	})
}

// CreditTx is Credit inside the caller's transaction.
func (l *Ledger) CreditTx(ctx context.Context, tx store.Tx, accountID string, amount int64, reason domain.TxReason, reference string) (int64, error) {
	return l.apply(ctx, tx, domain.Transaction{
		AccountID: accountID,
		Kind:      domain.TxCredit,
		Reason:    reason,
		Amount:    amount,
		Reference: reference,
	})
}

func (l *Ledger) apply(ctx context.Context, tx store.Tx, rec domain.Transaction) (int64, error) {
	if rec.Amount <= 0 {
		return 0, domain.Invalid("amount", "must be positive")
	}
	if rec.Reference == "" {
		return 0, domain.Invalid("reference", "is required")
	}

	delta := rec.Amount
	if rec.Kind == domain.TxDebit {
		delta = -delta
	}
	balance, err := tx.AdjustBalance(ctx, rec.AccountID, delta)
	if errors.Is(err, domain.ErrInsufficientFunds) {
		metrics.LedgerRejections.Inc()
		return 0, err
	}
	if err != nil {
		return 0, err
	}

	rec.ID = uuid.NewString()
	rec.BalanceAfter = balance
	rec.CreatedAt = l.now().UTC()
	if err := tx.AppendTransaction(ctx, rec); err != nil {
		return 0, err
	}
	return balance, nil
}

// Committed records a balance change whose transaction has committed.
func Committed(kind domain.TxKind, reason domain.TxReason) {
	metrics.LedgerOperations.WithLabelValues(string(kind), string(reason)).Inc()
}

func (l *Ledger) Account(ctx context.Context, accountID string) (domain.Account, error) {
	return l.store.Account(ctx, accountID)
}

// History lists the newest transactions first.
func (l *Ledger) History(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return l.store.Transactions(ctx, accountID, limit)
}

// creditPurchase also records the money side of the credit.
func (l *Ledger) creditPurchase(ctx context.Context, tx store.Tx, accountID string, points int64, usd decimal.Decimal, method, reference string) (int64, error) {
	return l.apply(ctx, tx, domain.Transaction{
		AccountID: accountID,
		Kind:      domain.TxCredit,
		Reason:    domain.ReasonPurchase,
		Amount:    points,
		AmountUSD: &usd,
		Method:    method,
		Reference: reference,
	})
}
