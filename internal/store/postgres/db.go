package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	logger.Info("connected to postgres")
	return New(pool, logger), nil
}

// Migrate creates the schema. Safe to call on every start.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	s.log.Info("postgres schema ensured")
	return nil
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'player' CHECK (role IN ('player', 'admin')),
    balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
    total_deposited NUMERIC(14,2) NOT NULL DEFAULT 0,
    attempts_played INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    last_payment_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS daily_mazes (
    day DATE PRIMARY KEY,
    layout JSONB NOT NULL,
    width INTEGER NOT NULL,
    height INTEGER NOT NULL,
    prize_pool NUMERIC(14,2) NOT NULL DEFAULT 0,
    settled BOOLEAN NOT NULL DEFAULT FALSE,
    winner_account_id TEXT REFERENCES accounts(id),
    winner_session_id TEXT,
    winner_elapsed_ms BIGINT,
    prize_points BIGINT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    settled_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_daily_mazes_unsettled ON daily_mazes(day) WHERE NOT settled;

CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    account_id TEXT NOT NULL REFERENCES accounts(id),
    day DATE NOT NULL REFERENCES daily_mazes(day),
    started_at TIMESTAMPTZ NOT NULL,
    completed_at TIMESTAMPTZ,
    elapsed_ms BIGINT CHECK (elapsed_ms >= 0),
    is_winner BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_sessions_account_day ON sessions(account_id, day);
CREATE INDEX IF NOT EXISTS idx_sessions_ranking ON sessions(day, elapsed_ms, completed_at) WHERE completed_at IS NOT NULL;

CREATE TABLE IF NOT EXISTS transactions (
    id TEXT PRIMARY KEY,
    account_id TEXT NOT NULL REFERENCES accounts(id),
    kind TEXT NOT NULL CHECK (kind IN ('debit', 'credit')),
    reason TEXT NOT NULL CHECK (reason IN ('entry', 'purchase', 'prize')),
    amount BIGINT NOT NULL CHECK (amount > 0),
    amount_usd NUMERIC(14,2),
    method TEXT,
    reference TEXT NOT NULL,
    balance_after BIGINT NOT NULL CHECK (balance_after >= 0),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_transactions_account_created ON transactions(account_id, created_at DESC);
`
