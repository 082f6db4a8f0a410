// Package settlement pays each finished day's fastest player exactly once.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sudo-init-do/dailymaze/internal/domain"
	"github.com/sudo-init-do/dailymaze/internal/metrics"
	"github.com/sudo-init-do/dailymaze/internal/store"
	"github.com/sudo-init-do/dailymaze/internal/wallet"
)

// Outcome of a Settle call.
type Outcome string

const (
	OutcomePaid    Outcome = "paid"
	OutcomeEmpty   Outcome = "empty"
	OutcomeSkipped Outcome = "skipped"
	OutcomeNoMaze  Outcome = "no_maze"
)

// Result reports what Settle did for a day.
type Result struct {
	Day     domain.Day     `json:"day"`
	Outcome Outcome        `json:"outcome"`
	Winner  *domain.Winner `json:"winner,omitempty"`
}

// Standings is the read side settlement ranks through.
type Standings interface {
	StandingsIn(ctx context.Context, q store.Queries, day domain.Day) ([]domain.Standing, error)
}

// Ledger credits the prize inside the settlement transaction.
type Ledger interface {
	CreditTx(ctx context.Context, tx store.Tx, accountID string, amount int64, reason domain.TxReason, reference string) (int64, error)
}

// Notifier announces a winner after the settlement commits.
type Notifier interface {
	Winner(ctx context.Context, day domain.Day, w domain.Winner, email string) error
}

type Scheduler struct {
	store    store.Store
	ledger   Ledger
	ranking  Standings
	notifier Notifier
	rules    domain.Rules
	log      *slog.Logger
	now      func() time.Time
}

func NewScheduler(st store.Store, ledger Ledger, ranking Standings, notifier Notifier, rules domain.Rules, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:    st,
		ledger:   ledger,
		ranking:  ranking,
		notifier: notifier,
		rules:    rules,
		log:      logger,
		now:      time.Now,
	}
}

// Settle ranks day's completed sessions and pays the fastest one. The whole
// settlement is a single transaction holding the maze row, so concurrent or
// repeated calls pay at most once. Only days that have ended can settle.
func (s *Scheduler) Settle(ctx context.Context, day domain.Day) (Result, error) {
	now := s.now()
	if day >= s.rules.Today(now) {
		return Result{}, domain.Invalid("day", "%s has not ended yet", day)
	}

	res := Result{Day: day}
	var email string
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		m, err := tx.LockMaze(ctx, day)
		if errors.Is(err, domain.ErrNotFound) {
			res.Outcome = OutcomeNoMaze
			return nil
		}
		if err != nil {
			return err
		}
		if m.Settled {
			res.Outcome, res.Winner = OutcomeSkipped, m.Winner
			return nil
		}

		standings, err := s.ranking.StandingsIn(ctx, tx, day)
		if err != nil {
			return err
		}
		if len(standings) == 0 {
			if _, err := tx.MarkSettled(ctx, day, nil, now.UTC()); err != nil {
				return err
			}
			res.Outcome = OutcomeEmpty
			return nil
		}

		first := standings[0]
		w := domain.Winner{
			AccountID:   first.AccountID,
			Username:    first.Username,
			SessionID:   first.SessionID,
			Elapsed:     first.Elapsed,
			PrizePoints: s.rules.PrizePoints(m.PrizePool),
		}
		flipped, err := tx.MarkSettled(ctx, day, &w, now.UTC())
		if err != nil {
			return err
		}
		if !flipped {
			res.Outcome = OutcomeSkipped
			return nil
		}
		if w.PrizePoints > 0 {
			if _, err := s.ledger.CreditTx(ctx, tx, w.AccountID, w.PrizePoints, domain.ReasonPrize, w.SessionID); err != nil {
				return err
			}
		}
		if err := tx.MarkWinner(ctx, w.SessionID); err != nil {
			return err
		}
		acc, err := tx.Account(ctx, w.AccountID)
		if err != nil {
			return err
		}
		email = acc.Email

		res.Outcome, res.Winner = OutcomePaid, &w
		return nil
	})
	if err != nil {
		metrics.Settlements.WithLabelValues("failed").Inc()
		return Result{}, fmt.Errorf("settle %s: %w", day, err)
	}

	metrics.Settlements.WithLabelValues(string(res.Outcome)).Inc()
	switch res.Outcome {
	case OutcomePaid:
		wallet.Committed(domain.TxCredit, domain.ReasonPrize)
		metrics.PrizePointsPaid.Add(float64(res.Winner.PrizePoints))
		s.log.Info("day settled",
			"day", day,
			"winner", res.Winner.Username,
			"session_id", res.Winner.SessionID,
			"elapsed", res.Winner.Elapsed,
			"prize_points", res.Winner.PrizePoints,
		)
		if s.notifier != nil {
			if err := s.notifier.Winner(ctx, day, *res.Winner, email); err != nil {
				s.log.Warn("winner notification failed", "day", day, "error", err)
			}
		}
	case OutcomeEmpty:
		s.log.Info("day settled without completions", "day", day)
	}
	return res, nil
}

// Recover settles every ended day whose maze is still unsettled, oldest
// first. A failed day does not stop the others; it stays unsettled for the
// next pass.
func (s *Scheduler) Recover(ctx context.Context) ([]Result, error) {
	today := s.rules.Today(s.now())
	days, err := s.store.UnsettledDays(ctx, today)
	if err != nil {
		return nil, err
	}

	var (
		results []Result
		errs    []error
	)
	for _, day := range days {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		res, err := s.Settle(ctx, day)
		if err != nil {
			s.log.Error("settlement failed", "day", day, "error", err)
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

// Run recovers once, then settles the day that just ended after every
// midnight in the tournament time zone until ctx ends.
func (s *Scheduler) Run(ctx context.Context) error {
	loc := s.rules.Loc()
	s.log.Info("settlement scheduler started", "timezone", loc.String())

	for {
		if _, err := s.Recover(ctx); err != nil && ctx.Err() == nil {
			s.log.Error("settlement pass incomplete", "error", err)
		}

		now := s.now()
		next := NextMidnight(now, loc)
		s.log.Debug("next settlement", "at", next)
		if err := sleepWithContext(ctx, next.Sub(now)); err != nil {
			s.log.Info("settlement scheduler stopped")
			return err
		}
	}
}

// NextMidnight is the start of the day after now's day in loc.
func NextMidnight(now time.Time, loc *time.Location) time.Time {
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
