// Package store defines the persistence contracts of the tournament engine.
//
// Balances, daily mazes and settlements are guarded by store transactions
// rather than in-process locks, so several service instances may share one
// database.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/dailymaze/internal/domain"
)

// Queries are the read operations available both on the store and inside a transaction.
type Queries interface {
	Account(ctx context.Context, id string) (domain.Account, error)
	AccountByUsername(ctx context.Context, username string) (domain.Account, error)
	ListAccounts(ctx context.Context, limit, offset int) ([]domain.Account, error)
	Session(ctx context.Context, id string) (domain.Session, error)
	DailyMaze(ctx context.Context, day domain.Day) (domain.DailyMaze, error)
	// Standings lists completed sessions of a day, fastest first, ties by earliest completion.
	Standings(ctx context.Context, day domain.Day) ([]domain.Standing, error)
	Transactions(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error)
	// UnsettledDays lists days before the given one whose maze is not settled, oldest first.
	UnsettledDays(ctx context.Context, before domain.Day) ([]domain.Day, error)
	Counts(ctx context.Context) (domain.Counts, error)
}

// Tx is a single atomic unit of work.
type Tx interface {
	Queries

	// InsertAccount fails with domain.ErrConflict on a duplicate username or email.
	InsertAccount(ctx context.Context, a domain.Account) error
	SetRole(ctx context.Context, username, role string) error
	// AdjustBalance applies delta and returns the new balance. It fails with
	// domain.ErrInsufficientFunds instead of producing a negative balance and
	// holds the account row until the transaction ends.
	AdjustBalance(ctx context.Context, accountID string, delta int64) (int64, error)
	RecordDeposit(ctx context.Context, accountID string, usd decimal.Decimal, at time.Time) error
	IncrementAttempts(ctx context.Context, accountID string) error
	AppendTransaction(ctx context.Context, t domain.Transaction) error

	// InsertMaze stores m unless the day already has a maze; it reports whether m was stored.
	InsertMaze(ctx context.Context, m domain.DailyMaze) (bool, error)
	// LockMaze reads the day's maze and holds it until the transaction ends.
	LockMaze(ctx context.Context, day domain.Day) (domain.DailyMaze, error)
	AddToPrizePool(ctx context.Context, day domain.Day, usd decimal.Decimal) error
	// MarkSettled flips settled once; winner may be nil. It reports whether this call flipped it.
	MarkSettled(ctx context.Context, day domain.Day, winner *domain.Winner, at time.Time) (bool, error)

	InsertSession(ctx context.Context, s domain.Session) error
	HasSessionOn(ctx context.Context, accountID string, day domain.Day) (bool, error)
	// CompleteSession records the time only if none is recorded yet.
	CompleteSession(ctx context.Context, id string, completedAt time.Time, elapsed time.Duration) (bool, error)
	MarkWinner(ctx context.Context, sessionID string) error
}

// Store is the durable, shared state of the engine.
type Store interface {
	Queries

	// WithTx runs fn in a transaction, committing when fn returns nil.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close()
}
