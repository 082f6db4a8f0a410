// Package ranking reads daily standings and the prize they compete for.
// It never writes.
package ranking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sudo-init-do/dailymaze/internal/domain"
	"github.com/sudo-init-do/dailymaze/internal/store"
)

// Entry is one ranked completion as clients see it.
type Entry struct {
	Rank           int       `json:"rank"`
	Username       string    `json:"username"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	CompletedAt    time.Time `json:"completed_at"`
}

// PrizeEstimate is what the winner of a day would receive if it settled now.
type PrizeEstimate struct {
	PoolUSD      string `json:"prize_pool_usd"`
	PrizeUSD     string `json:"prize_usd"`
	PrizePoints  int64  `json:"prize_points"`
	EntryCostUSD string `json:"entry_cost_usd"`
}

// Snapshot combines standings and the prize estimate of a day.
type Snapshot struct {
	Day         domain.Day     `json:"day"`
	Standings   []Entry        `json:"standings"`
	Prize       PrizeEstimate  `json:"prize"`
	Settled     bool           `json:"settled"`
	Winner      *domain.Winner `json:"winner,omitempty"`
	GeneratedAt time.Time      `json:"generated_at"`
}

type Reader struct {
	store store.Queries
	rules domain.Rules
	log   *slog.Logger
	now   func() time.Time
}

func NewReader(q store.Queries, rules domain.Rules, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{store: q, rules: rules, log: logger, now: time.Now}
}

// Today is the current tournament day.
func (r *Reader) Today() domain.Day {
	return r.rules.Today(r.now())
}

// Standings lists a day's completions, fastest first; ties go to the
// earlier completion.
func (r *Reader) Standings(ctx context.Context, day domain.Day) ([]domain.Standing, error) {
	return r.StandingsIn(ctx, r.store, day)
}

// StandingsIn reads standings through q, which may be an open transaction.
func (r *Reader) StandingsIn(ctx context.Context, q store.Queries, day domain.Day) ([]domain.Standing, error) {
	return q.Standings(ctx, day)
}

// PrizePoolEstimate prices a day's pool; a day without a maze has an empty pool.
func (r *Reader) PrizePoolEstimate(ctx context.Context, day domain.Day) (PrizeEstimate, error) {
	m, err := r.store.DailyMaze(ctx, day)
	if errors.Is(err, domain.ErrNotFound) {
		return r.estimate(domain.DailyMaze{}), nil
	}
	if err != nil {
		return PrizeEstimate{}, err
	}
	return r.estimate(m), nil
}

func (r *Reader) estimate(m domain.DailyMaze) PrizeEstimate {
	return PrizeEstimate{
		PoolUSD:      m.PrizePool.StringFixed(2),
		PrizeUSD:     r.rules.PrizeUSD(m.PrizePool).StringFixed(2),
		PrizePoints:  r.rules.PrizePoints(m.PrizePool),
		EntryCostUSD: r.rules.EntryCostUSD().StringFixed(2),
	}
}

// Snapshot reads standings and the prize estimate of day together.
// The maze row and the standings are two separate reads; a completion landing
// in between shows up on the next snapshot. A settled day no longer accepts
// completions, so its snapshot always agrees with the paid winner.
func (r *Reader) Snapshot(ctx context.Context, day domain.Day) (Snapshot, error) {
	snap := Snapshot{Day: day, Standings: []Entry{}, GeneratedAt: r.now().UTC()}

	m, err := r.store.DailyMaze(ctx, day)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		snap.Prize = r.estimate(domain.DailyMaze{})
		return snap, nil
	case err != nil:
		return Snapshot{}, err
	}
	snap.Prize = r.estimate(m)
	snap.Settled = m.Settled
	snap.Winner = m.Winner

	standings, err := r.Standings(ctx, day)
	if err != nil {
		return Snapshot{}, err
	}
	for _, s := range standings {
		snap.Standings = append(snap.Standings, Entry{
			Rank:           s.Rank,
			Username:       s.Username,
			ElapsedSeconds: s.ElapsedSeconds(),
			CompletedAt:    s.CompletedAt,
		})
	}
	return snap, nil
}
