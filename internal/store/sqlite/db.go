// Package sqlite implements the store contracts on an embedded SQLite file.
// It backs single-node deployments, the mazectl tool and the test suites.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// Open opens (creating if needed) the database file at path.
//
// SQLite allows one writer at a time, so the pool is capped at one
// connection and transactions begin IMMEDIATE to take the write lock up front.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_txlock=immediate", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping sqlite database: %w", err)
	}
	logger.Info("opened sqlite database", "path", path)
	return &Store{queries: queries{q: db}, db: db, log: logger}, nil
}

// Migrate creates the schema. Safe to call on every start.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	s.log.Debug("sqlite schema ensured")
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() {
	s.db.Close()
}

// Timestamps are fixed-width UTC text so that ORDER BY on them is chronological.
// Money is decimal text and never touched by SQLite arithmetic.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'player' CHECK (role IN ('player', 'admin')),
    balance INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
    total_deposited TEXT NOT NULL DEFAULT '0',
    attempts_played INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    last_payment_at TEXT
);

CREATE TABLE IF NOT EXISTS daily_mazes (
    day TEXT PRIMARY KEY,
    layout TEXT NOT NULL,
    width INTEGER NOT NULL,
    height INTEGER NOT NULL,
    prize_pool TEXT NOT NULL DEFAULT '0',
    settled INTEGER NOT NULL DEFAULT 0,
    winner_account_id TEXT REFERENCES accounts(id),
    winner_session_id TEXT,
    winner_elapsed_ms INTEGER,
    prize_points INTEGER,
    created_at TEXT NOT NULL,
    settled_at TEXT
);

CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    account_id TEXT NOT NULL REFERENCES accounts(id),
    day TEXT NOT NULL REFERENCES daily_mazes(day),
    started_at TEXT NOT NULL,
    completed_at TEXT,
    elapsed_ms INTEGER CHECK (elapsed_ms >= 0),
    is_winner INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_sessions_account_day ON sessions(account_id, day);
CREATE INDEX IF NOT EXISTS idx_sessions_ranking ON sessions(day, elapsed_ms, completed_at);

CREATE TABLE IF NOT EXISTS transactions (
    id TEXT PRIMARY KEY,
    account_id TEXT NOT NULL REFERENCES accounts(id),
    kind TEXT NOT NULL CHECK (kind IN ('debit', 'credit')),
    reason TEXT NOT NULL CHECK (reason IN ('entry', 'purchase', 'prize')),
    amount INTEGER NOT NULL CHECK (amount > 0),
    amount_usd TEXT,
    method TEXT,
    reference TEXT NOT NULL,
    balance_after INTEGER NOT NULL CHECK (balance_after >= 0),
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_account_created ON transactions(account_id, created_at);
`
