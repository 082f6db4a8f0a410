// Package postgres implements the store contracts on PostgreSQL via pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/dailymaze/internal/domain"
	"github.com/sudo-init-do/dailymaze/internal/store"
)

const uniqueViolation = "23505"

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the Postgres-backed store.
type Store struct {
	queries
	pool *pgxpool.Pool
	log  *slog.Logger
}

var _ store.Store = (*Store)(nil)

// New wraps an existing pool.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{queries: queries{q: pool}, pool: pool, log: logger}
}

// WithTx runs fn inside a READ COMMITTED transaction. Row locks taken by
// conditional updates and FOR UPDATE reads serialize competing writers.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	t, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return domain.StoreFailure("begin", err)
	}
	defer t.Rollback(ctx)

	if err := fn(&tx{queries{q: t}}); err != nil {
		return err
	}
	if err := t.Commit(ctx); err != nil {
		return domain.StoreFailure("commit", err)
	}
	return nil
}

type queries struct {
	q querier
}

const accountColumns = `id, username, email, password_hash, role, balance,
	total_deposited::text, attempts_played, created_at, last_payment_at`

func scanAccount(row pgx.Row) (domain.Account, error) {
	var a domain.Account
	var deposited string
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.Role, &a.Balance,
		&deposited, &a.AttemptsPlayed, &a.CreatedAt, &a.LastPaymentAt)
	if err != nil {
		return domain.Account{}, err
	}
	a.TotalDeposited, err = decimal.NewFromString(deposited)
	return a, err
}

func (q queries) Account(ctx context.Context, id string) (domain.Account, error) {
	a, err := scanAccount(q.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	return a, notFound("account", err)
}

func (q queries) AccountByUsername(ctx context.Context, username string) (domain.Account, error) {
	a, err := scanAccount(q.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username))
	return a, notFound("account by username", err)
}

func (q queries) ListAccounts(ctx context.Context, limit, offset int) ([]domain.Account, error) {
	rows, err := q.q.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, domain.StoreFailure("list accounts", err)
	}
	defer rows.Close()

	accounts := []domain.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, domain.StoreFailure("scan account", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, domain.StoreFailure("list accounts", rows.Err())
}

const sessionColumns = `id, account_id, day::text, started_at, completed_at, elapsed_ms, is_winner`

func scanSession(row pgx.Row) (domain.Session, error) {
	var s domain.Session
	var day string
	var elapsedMS *int64
	if err := row.Scan(&s.ID, &s.AccountID, &day, &s.StartedAt, &s.CompletedAt, &elapsedMS, &s.IsWinner); err != nil {
		return domain.Session{}, err
	}
	s.Day = domain.Day(day)
	if elapsedMS != nil {
		d := time.Duration(*elapsedMS) * time.Millisecond
		s.Elapsed = &d
	}
	return s, nil
}

func (q queries) Session(ctx context.Context, id string) (domain.Session, error) {
	s, err := scanSession(q.q.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
	return s, notFound("session", err)
}

func (q queries) DailyMaze(ctx context.Context, day domain.Day) (domain.DailyMaze, error) {
	m, err := scanMaze(q.q.QueryRow(ctx, `
		SELECT m.day::text, m.layout, m.width, m.height, m.prize_pool::text, m.settled,
		       m.winner_account_id, COALESCE(a.username, ''), m.winner_session_id,
		       m.winner_elapsed_ms, m.prize_points, m.created_at, m.settled_at
		FROM daily_mazes m
		LEFT JOIN accounts a ON a.id = m.winner_account_id
		WHERE m.day = $1::date`, string(day)))
	return m, notFound("daily maze", err)
}

func scanMaze(row pgx.Row) (domain.DailyMaze, error) {
	var (
		m         domain.DailyMaze
		day, pool string
		layout    []byte
		winnerID  *string
		winner    string
		sessionID *string
		elapsedMS *int64
		prize     *int64
	)
	err := row.Scan(&day, &layout, &m.Width, &m.Height, &pool, &m.Settled,
		&winnerID, &winner, &sessionID, &elapsedMS, &prize, &m.CreatedAt, &m.SettledAt)
	if err != nil {
		return domain.DailyMaze{}, err
	}
	m.Day = domain.Day(day)
	if err := json.Unmarshal(layout, &m.Layout); err != nil {
		return domain.DailyMaze{}, err
	}
	if m.PrizePool, err = decimal.NewFromString(pool); err != nil {
		return domain.DailyMaze{}, err
	}
	if winnerID != nil {
		w := &domain.Winner{AccountID: *winnerID, Username: winner}
		if sessionID != nil {
			w.SessionID = *sessionID
		}
		if elapsedMS != nil {
			w.Elapsed = time.Duration(*elapsedMS) * time.Millisecond
		}
		if prize != nil {
			w.PrizePoints = *prize
		}
		m.Winner = w
	}
	return m, nil
}

func (q queries) Standings(ctx context.Context, day domain.Day) ([]domain.Standing, error) {
	rows, err := q.q.Query(ctx, `
		SELECT s.id, s.account_id, a.username, s.elapsed_ms, s.completed_at
		FROM sessions s
		JOIN accounts a ON a.id = s.account_id
		WHERE s.day = $1::date AND s.completed_at IS NOT NULL
		ORDER BY s.elapsed_ms ASC, s.completed_at ASC, s.id ASC`, string(day))
	if err != nil {
		return nil, domain.StoreFailure("standings", err)
	}
	defer rows.Close()

	standings := []domain.Standing{}
	for rows.Next() {
		var st domain.Standing
		var elapsedMS int64
		if err := rows.Scan(&st.SessionID, &st.AccountID, &st.Username, &elapsedMS, &st.CompletedAt); err != nil {
			return nil, domain.StoreFailure("scan standing", err)
		}
		st.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		st.Rank = len(standings) + 1
		standings = append(standings, st)
	}
	return standings, domain.StoreFailure("standings", rows.Err())
}

func (q queries) Transactions(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error) {
	rows, err := q.q.Query(ctx, `
		SELECT id, account_id, kind, reason, amount, amount_usd::text, COALESCE(method, ''),
		       reference, balance_after, created_at
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, domain.StoreFailure("transactions", err)
	}
	defer rows.Close()

	txs := []domain.Transaction{}
	for rows.Next() {
		var t domain.Transaction
		var usd *string
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Kind, &t.Reason, &t.Amount, &usd, &t.Method,
			&t.Reference, &t.BalanceAfter, &t.CreatedAt); err != nil {
			return nil, domain.StoreFailure("scan transaction", err)
		}
		if usd != nil {
			d, err := decimal.NewFromString(*usd)
			if err != nil {
				return nil, domain.StoreFailure("scan transaction", err)
			}
			t.AmountUSD = &d
		}
		txs = append(txs, t)
	}
	return txs, domain.StoreFailure("transactions", rows.Err())
}

func (q queries) UnsettledDays(ctx context.Context, before domain.Day) ([]domain.Day, error) {
	rows, err := q.q.Query(ctx, `
		SELECT day::text FROM daily_mazes
		WHERE NOT settled AND day < $1::date
		ORDER BY day ASC`, string(before))
	if err != nil {
		return nil, domain.StoreFailure("unsettled days", err)
	}
	defer rows.Close()

	var days []domain.Day
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, domain.StoreFailure("scan day", err)
		}
		days = append(days, domain.Day(d))
	}
	return days, domain.StoreFailure("unsettled days", rows.Err())
}

func (q queries) Counts(ctx context.Context) (domain.Counts, error) {
	var c domain.Counts
	err := q.q.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM accounts),
			(SELECT COUNT(*) FROM sessions),
			(SELECT COUNT(*) FROM transactions),
			(SELECT COUNT(*) FROM daily_mazes),
			(SELECT COUNT(*) FROM daily_mazes WHERE NOT settled)`).
		Scan(&c.Accounts, &c.Sessions, &c.Transactions, &c.Mazes, &c.Unsettled)
	return c, domain.StoreFailure("counts", err)
}

type tx struct {
	queries
}

func (t *tx) InsertAccount(ctx context.Context, a domain.Account) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO accounts (id, username, email, password_hash, role, balance, total_deposited, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8)`,
		a.ID, a.Username, a.Email, a.PasswordHash, a.Role, a.Balance, a.TotalDeposited.String(), a.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrConflict
	}
	return domain.StoreFailure("insert account", err)
}

func (t *tx) SetRole(ctx context.Context, username, role string) error {
	tag, err := t.q.Exec(ctx, `UPDATE accounts SET role = $2 WHERE username = $1`, username, role)
	if err != nil {
		return domain.StoreFailure("set role", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *tx) AdjustBalance(ctx context.Context, accountID string, delta int64) (int64, error) {
	var balance int64
	err := t.q.QueryRow(ctx, `
		UPDATE accounts SET balance = balance + $2
		WHERE id = $1 AND balance + $2 >= 0
		RETURNING balance`, accountID, delta).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.StoreFailure("adjust balance", err)
	}

	var exists bool
	if err := t.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, accountID).Scan(&exists); err != nil {
		return 0, domain.StoreFailure("adjust balance", err)
	}
	if !exists {
		return 0, domain.ErrNotFound
	}
	return 0, domain.ErrInsufficientFunds
}

func (t *tx) RecordDeposit(ctx context.Context, accountID string, usd decimal.Decimal, at time.Time) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE accounts
		SET total_deposited = total_deposited + $2::numeric, last_payment_at = $3
		WHERE id = $1`, accountID, usd.String(), at)
	if err != nil {
		return domain.StoreFailure("record deposit", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *tx) IncrementAttempts(ctx context.Context, accountID string) error {
	_, err := t.q.Exec(ctx, `UPDATE accounts SET attempts_played = attempts_played + 1 WHERE id = $1`, accountID)
	return domain.StoreFailure("increment attempts", err)
}

func (t *tx) AppendTransaction(ctx context.Context, r domain.Transaction) error {
	var usd *string
	if r.AmountUSD != nil {
		s := r.AmountUSD.String()
		usd = &s
	}
	var method *string
	if r.Method != "" {
		method = &r.Method
	}
	_, err := t.q.Exec(ctx, `
		INSERT INTO transactions (id, account_id, kind, reason, amount, amount_usd, method, reference, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9, $10)`,
		r.ID, r.AccountID, string(r.Kind), string(r.Reason), r.Amount, usd, method, r.Reference, r.BalanceAfter, r.CreatedAt)
	return domain.StoreFailure("append transaction", err)
}

func (t *tx) InsertMaze(ctx context.Context, m domain.DailyMaze) (bool, error) {
	layout, err := json.Marshal(m.Layout)
	if err != nil {
		return false, err
	}
	tag, err := t.q.Exec(ctx, `
		INSERT INTO daily_mazes (day, layout, width, height, prize_pool, created_at)
		VALUES ($1::date, $2, $3, $4, 0, $5)
		ON CONFLICT (day) DO NOTHING`, string(m.Day), layout, m.Width, m.Height, m.CreatedAt)
	if err != nil {
		return false, domain.StoreFailure("insert maze", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (t *tx) LockMaze(ctx context.Context, day domain.Day) (domain.DailyMaze, error) {
	m, err := scanMaze(t.q.QueryRow(ctx, `
		SELECT m.day::text, m.layout, m.width, m.height, m.prize_pool::text, m.settled,
		       m.winner_account_id, '', m.winner_session_id,
		       m.winner_elapsed_ms, m.prize_points, m.created_at, m.settled_at
		FROM daily_mazes m
		WHERE m.day = $1::date
		FOR UPDATE`, string(day)))
	return m, notFound("lock maze", err)
}

func (t *tx) AddToPrizePool(ctx context.Context, day domain.Day, usd decimal.Decimal) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE daily_mazes SET prize_pool = prize_pool + $2::numeric
		WHERE day = $1::date`, string(day), usd.String())
	if err != nil {
		return domain.StoreFailure("add to prize pool", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *tx) MarkSettled(ctx context.Context, day domain.Day, w *domain.Winner, at time.Time) (bool, error) {
	var (
		accountID, sessionID *string
		elapsedMS, prize     *int64
	)
	if w != nil {
		ms := w.Elapsed.Milliseconds()
		accountID, sessionID, elapsedMS, prize = &w.AccountID, &w.SessionID, &ms, &w.PrizePoints
	}
	tag, err := t.q.Exec(ctx, `
		UPDATE daily_mazes
		SET settled = TRUE, settled_at = $2, winner_account_id = $3,
		    winner_session_id = $4, winner_elapsed_ms = $5, prize_points = $6
		WHERE day = $1::date AND NOT settled`,
		string(day), at, accountID, sessionID, elapsedMS, prize)
	if err != nil {
		return false, domain.StoreFailure("mark settled", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (t *tx) InsertSession(ctx context.Context, s domain.Session) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO sessions (id, account_id, day, started_at)
		VALUES ($1, $2, $3::date, $4)`, s.ID, s.AccountID, string(s.Day), s.StartedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrConflict
	}
	return domain.StoreFailure("insert session", err)
}

func (t *tx) HasSessionOn(ctx context.Context, accountID string, day domain.Day) (bool, error) {
	var exists bool
	err := t.q.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM sessions WHERE account_id = $1 AND day = $2::date)`,
		accountID, string(day)).Scan(&exists)
	return exists, domain.StoreFailure("has session", err)
}

func (t *tx) CompleteSession(ctx context.Context, id string, completedAt time.Time, elapsed time.Duration) (bool, error) {
	tag, err := t.q.Exec(ctx, `
		UPDATE sessions SET completed_at = $2, elapsed_ms = $3
		WHERE id = $1 AND completed_at IS NULL`, id, completedAt, elapsed.Milliseconds())
	if err != nil {
		return false, domain.StoreFailure("complete session", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (t *tx) MarkWinner(ctx context.Context, sessionID string) error {
	_, err := t.q.Exec(ctx, `UPDATE sessions SET is_winner = TRUE WHERE id = $1`, sessionID)
	return domain.StoreFailure("mark winner", err)
}

// notFound maps pgx.ErrNoRows to domain.ErrNotFound and wraps anything else.
func notFound(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return domain.StoreFailure(op, err)
}
