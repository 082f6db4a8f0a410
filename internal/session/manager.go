// Package session runs the lifecycle of a single timed maze attempt.
package session

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/sudo-init-do/dailymaze/internal/domain"
	"github.com/sudo-init-do/dailymaze/internal/metrics"
	"github.com/sudo-init-do/dailymaze/internal/store"
	"github.com/sudo-init-do/dailymaze/internal/wallet"
)

// MaxElapsed bounds a reported completion time.
const MaxElapsed = 24 * time.Hour

// Ledger debits the entry fee inside the attempt's transaction.
type Ledger interface {
	DebitTx(ctx context.Context, tx store.Tx, accountID string, amount int64, reason domain.TxReason, reference string) (int64, error)
}

// Mazes provides the day's maze inside the attempt's transaction.
type Mazes interface {
	EnsureTx(ctx context.Context, tx store.Tx, day domain.Day) (domain.Layout, error)
}

// Attempt is what a player receives when an attempt starts.
type Attempt struct {
	Session domain.Session
	Layout  domain.Layout
	Balance int64
}

// Manager starts and completes attempts.
type Manager struct {
	store  store.Store
	ledger Ledger
	mazes  Mazes
	rules  domain.Rules
	log    *slog.Logger
	now    func() time.Time
}

func NewManager(st store.Store, ledger Ledger, mazes Mazes, rules domain.Rules, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: st, ledger: ledger, mazes: mazes, rules: rules, log: logger, now: time.Now}
}

// StartAttempt charges the entry fee and opens a session on today's maze.
// Everything happens in one transaction: a failed step leaves no debit,
// no session and no prize pool change.
func (m *Manager) StartAttempt(ctx context.Context, accountID string) (Attempt, error) {
	now := m.now()
	day := m.rules.Today(now)
	sess := domain.Session{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Day:       day,
		StartedAt: now.UTC(),
	}

	var attempt Attempt
	err := m.store.WithTx(ctx, func(tx store.Tx) error {
		balance, err := m.ledger.DebitTx(ctx, tx, accountID, m.rules.EntryCost, domain.ReasonEntry, sess.ID)
		if err != nil {
			return err
		}

		if m.rules.OnePlayPerDay {
			played, err := tx.HasSessionOn(ctx, accountID, day)
			if err != nil {
				return err
			}
			if played {
				return domain.ErrAlreadyPlayedToday
			}
		}

		layout, err := m.mazes.EnsureTx(ctx, tx, day)
		if err != nil {
			return err
		}
		if err := openForPlay(ctx, tx, day); err != nil {
			return err
		}
		if err := tx.InsertSession(ctx, sess); err != nil {
			return err
		}
		if err := tx.IncrementAttempts(ctx, accountID); err != nil {
			return err
		}
		if err := tx.AddToPrizePool(ctx, day, m.rules.EntryCostUSD()); err != nil {
			return err
		}

		attempt = Attempt{Session: sess, Layout: layout, Balance: balance}
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrInsufficientFunds) && !errors.Is(err, domain.ErrAlreadyPlayedToday) && !errors.Is(err, domain.ErrDaySettled) {
			m.log.Error("start attempt failed", "account_id", accountID, "day", day, "error", err)
		}
		return Attempt{}, err
	}

	wallet.Committed(domain.TxDebit, domain.ReasonEntry)
	metrics.AttemptsStarted.Inc()
	m.log.Info("attempt started", "account_id", accountID, "session_id", sess.ID, "day", day, "balance", attempt.Balance)
	return attempt, nil
}

// CompleteAttempt records the finishing time of the caller's own session.
// Only the first completion counts; it reports whether this call recorded it.
// Once the session's day is settled its ranking is final and a late
// completion fails with domain.ErrDaySettled.
func (m *Manager) CompleteAttempt(ctx context.Context, accountID, sessionID string, elapsedSeconds float64) (domain.Session, bool, error) {
	elapsed, err := toElapsed(elapsedSeconds)
	if err != nil {
		return domain.Session{}, false, err
	}

	var (
		sess     domain.Session
		recorded bool
	)
	err = m.store.WithTx(ctx, func(tx store.Tx) error {
		s, err := tx.Session(ctx, sessionID)
		if err != nil {
			return err
		}
		if s.AccountID != accountID {
			return domain.ErrNotFound
		}
		if s.Completed() {
			sess = s
			return nil
		}
		if err := openForPlay(ctx, tx, s.Day); err != nil {
			return err
		}

		recorded, err = tx.CompleteSession(ctx, sessionID, m.now().UTC(), elapsed)
		if err != nil {
			return err
		}
		sess, err = tx.Session(ctx, sessionID)
		return err
	})
	if err != nil {
		return domain.Session{}, false, err
	}

	if recorded {
		metrics.AttemptsCompleted.Inc()
		metrics.AttemptDuration.Observe(elapsed.Seconds())
		m.log.Info("attempt completed", "account_id", accountID, "session_id", sessionID, "day", sess.Day, "elapsed", elapsed)
	}
	return sess, recorded, nil
}

// openForPlay holds the day's maze row for the rest of tx and fails once
// settlement has paid the day out.
func openForPlay(ctx context.Context, tx store.Tx, day domain.Day) error {
	dm, err := tx.LockMaze(ctx, day)
	if err != nil {
		return err
	}
	if dm.Settled {
		return domain.ErrDaySettled
	}
	return nil
}

// toElapsed converts reported seconds to a millisecond-precision duration.
func toElapsed(seconds float64) (time.Duration, error) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, domain.Invalid("elapsed_seconds", "must be a finite number")
	}
	if seconds < 0 {
		return 0, domain.Invalid("elapsed_seconds", "must not be negative")
	}
	if seconds > MaxElapsed.Seconds() {
		return 0, domain.Invalid("elapsed_seconds", "must not exceed %s", MaxElapsed)
	}
	return time.Duration(math.Round(seconds*1000)) * time.Millisecond, nil
}
