package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sudo-init-do/dailymaze/internal/domain"
	"github.com/sudo-init-do/dailymaze/internal/store"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) { return time.Parse(timeLayout, s) }

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func isUnique(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// Store is the SQLite-backed store.
type Store struct {
	queries
	db  *sql.DB
	log *slog.Logger
}

var _ store.Store = (*Store)(nil)

// WithTx runs fn in a transaction. fn must only use the tx it is given:
// the single pooled connection is held until fn returns.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	t, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StoreFailure("begin", err)
	}
	defer t.Rollback()

	if err := fn(&tx{queries{q: t}}); err != nil {
		return err
	}
	if err := t.Commit(); err != nil {
		return domain.StoreFailure("commit", err)
	}
	return nil
}

type queries struct {
	q querier
}

const accountColumns = `id, username, email, password_hash, role, balance,
	total_deposited, attempts_played, created_at, last_payment_at`

func scanAccount(row scanner) (domain.Account, error) {
	var (
		a                    domain.Account
		deposited, createdAt string
		lastPayment          sql.NullString
	)
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.Role, &a.Balance,
		&deposited, &a.AttemptsPlayed, &createdAt, &lastPayment)
	if err != nil {
		return domain.Account{}, err
	}
	if a.TotalDeposited, err = decimal.NewFromString(deposited); err != nil {
		return domain.Account{}, err
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Account{}, err
	}
	a.LastPaymentAt, err = parseNullTime(lastPayment)
	return a, err
}

func (q queries) Account(ctx context.Context, id string) (domain.Account, error) {
	a, err := scanAccount(q.q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
	return a, notFound("account", err)
}

func (q queries) AccountByUsername(ctx context.Context, username string) (domain.Account, error) {
	a, err := scanAccount(q.q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = ?`, username))
	return a, notFound("account by username", err)
}

func (q queries) ListAccounts(ctx context.Context, limit, offset int) ([]domain.Account, error) {
	rows, err := q.q.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, limit, offset)
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

const sessionColumns = `id, account_id, day, started_at, completed_at, elapsed_ms, is_winner`

func scanSession(row scanner) (domain.Session, error) {
	var (
		s              domain.Session
		day, startedAt string
		completedAt    sql.NullString
		elapsedMS      sql.NullInt64
	)
	if err := row.Scan(&s.ID, &s.AccountID, &day, &startedAt, &completedAt, &elapsedMS, &s.IsWinner); err != nil {
		return domain.Session{}, err
	}
	var err error
	s.Day = domain.Day(day)
	if s.StartedAt, err = parseTime(startedAt); err != nil {
		return domain.Session{}, err
	}
	if s.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return domain.Session{}, err
	}
	if elapsedMS.Valid {
		d := time.Duration(elapsedMS.Int64) * time.Millisecond
		s.Elapsed = &d
	}
	return s, nil
}

func (q queries) Session(ctx context.Context, id string) (domain.Session, error) {
	s, err := scanSession(q.q.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
	return s, notFound("session", err)
}

func (q queries) DailyMaze(ctx context.Context, day domain.Day) (domain.DailyMaze, error) {
	m, err := scanMaze(q.q.QueryRowContext(ctx, `
		SELECT m.day, m.layout, m.width, m.height, m.prize_pool, m.settled,
		       m.winner_account_id, COALESCE(a.username, ''), m.winner_session_id,
		       m.winner_elapsed_ms, m.prize_points, m.created_at, m.settled_at
		FROM daily_mazes m
		LEFT JOIN accounts a ON a.id = m.winner_account_id
		WHERE m.day = ?`, string(day)))
	return m, notFound("daily maze", err)
}

func scanMaze(row scanner) (domain.DailyMaze, error) {
	var (
		m                            domain.DailyMaze
		day, layout, pool, createdAt string
		winnerID, sessionID          sql.NullString
		winner                       string
		elapsedMS, prize             sql.NullInt64
		settledAt                    sql.NullString
	)
	err := row.Scan(&day, &layout, &m.Width, &m.Height, &pool, &m.Settled,
		&winnerID, &winner, &sessionID, &elapsedMS, &prize, &createdAt, &settledAt)
	if err != nil {
		return domain.DailyMaze{}, err
	}
	m.Day = domain.Day(day)
	if err := json.Unmarshal([]byte(layout), &m.Layout); err != nil {
		return domain.DailyMaze{}, err
	}
	if m.PrizePool, err = decimal.NewFromString(pool); err != nil {
		return domain.DailyMaze{}, err
	}
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.DailyMaze{}, err
	}
	if m.SettledAt, err = parseNullTime(settledAt); err != nil {
		return domain.DailyMaze{}, err
	}
	if winnerID.Valid {
		m.Winner = &domain.Winner{
			AccountID:   winnerID.String,
			Username:    winner,
			SessionID:   sessionID.String,
			Elapsed:     time.Duration(elapsedMS.Int64) * time.Millisecond,
			PrizePoints: prize.Int64,
		}
	}
	return m, nil
}

func (q queries) Standings(ctx context.Context, day domain.Day) ([]domain.Standing, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT s.id, s.account_id, a.username, s.elapsed_ms, s.completed_at
		FROM sessions s
		JOIN accounts a ON a.id = s.account_id
		WHERE s.day = ? AND s.completed_at IS NOT NULL
		ORDER BY s.elapsed_ms ASC, s.completed_at ASC, s.id ASC`, string(day))
	if err != nil {
		return nil, domain.StoreFailure("standings", err)
	}
	defer rows.Close()

	standings := []domain.Standing{}
	for rows.Next() {
		var (
			st          domain.Standing
			elapsedMS   int64
			completedAt string
		)
		if err := rows.Scan(&st.SessionID, &st.AccountID, &st.Username, &elapsedMS, &completedAt); err != nil {
			return nil, domain.StoreFailure("scan standing", err)
		}
		if st.CompletedAt, err = parseTime(completedAt); err != nil {
			return nil, domain.StoreFailure("scan standing", err)
		}
		st.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		st.Rank = len(standings) + 1
		standings = append(standings, st)
	}
	return standings, domain.StoreFailure("standings", rows.Err())
}

func (q queries) Transactions(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT id, account_id, kind, reason, amount, amount_usd, COALESCE(method, ''),
		       reference, balance_after, created_at
		FROM transactions
		WHERE account_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, accountID, limit)
	if err != nil {
		return nil, domain.StoreFailure("transactions", err)
	}
	defer rows.Close()

	txs := []domain.Transaction{}
	for rows.Next() {
		var (
			t         domain.Transaction
			usd       sql.NullString
			createdAt string
		)
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Kind, &t.Reason, &t.Amount, &usd, &t.Method,
			&t.Reference, &t.BalanceAfter, &createdAt); err != nil {
			return nil, domain.StoreFailure("scan transaction", err)
		}
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, domain.StoreFailure("scan transaction", err)
		}
		if usd.Valid {
			d, err := decimal.NewFromString(usd.String)
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
	rows, err := q.q.QueryContext(ctx, `
		SELECT day FROM daily_mazes
		WHERE settled = 0 AND day < ?
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
	err := q.q.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM accounts),
			(SELECT COUNT(*) FROM sessions),
			(SELECT COUNT(*) FROM transactions),
			(SELECT COUNT(*) FROM daily_mazes),
			(SELECT COUNT(*) FROM daily_mazes WHERE settled = 0)`).
		Scan(&c.Accounts, &c.Sessions, &c.Transactions, &c.Mazes, &c.Unsettled)
	return c, domain.StoreFailure("counts", err)
}

type tx struct {
	queries
}

func (t *tx) InsertAccount(ctx context.Context, a domain.Account) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO accounts (id, username, email, password_hash, role, balance, total_deposited, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Username, a.Email, a.PasswordHash, a.Role, a.Balance, a.TotalDeposited.String(), formatTime(a.CreatedAt))
	if isUnique(err) {
		return domain.ErrConflict
	}
	return domain.StoreFailure("insert account", err)
}

func (t *tx) SetRole(ctx context.Context, username, role string) error {
	res, err := t.q.ExecContext(ctx, `UPDATE accounts SET role = ? WHERE username = ?`, role, username)
	return affected("set role", res, err)
}

func (t *tx) AdjustBalance(ctx context.Context, accountID string, delta int64) (int64, error) {
	var balance int64
	err := t.q.QueryRowContext(ctx, `
		UPDATE accounts SET balance = balance + ?
		WHERE id = ? AND balance + ? >= 0
		RETURNING balance`, delta, accountID, delta).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, domain.StoreFailure("adjust balance", err)
	}

	var exists bool
	if err := t.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = ?)`, accountID).Scan(&exists); err != nil {
		return 0, domain.StoreFailure("adjust balance", err)
	}
	if !exists {
		return 0, domain.ErrNotFound
	}
	return 0, domain.ErrInsufficientFunds
}

func (t *tx) RecordDeposit(ctx context.Context, accountID string, usd decimal.Decimal, at time.Time) error {
	var current string
	err := t.q.QueryRowContext(ctx, `SELECT total_deposited FROM accounts WHERE id = ?`, accountID).Scan(&current)
	if err != nil {
		return notFound("record deposit", err)
	}
	total, err := decimal.NewFromString(current)
	if err != nil {
		return domain.StoreFailure("record deposit", err)
	}
	_, err = t.q.ExecContext(ctx, `
		UPDATE accounts SET total_deposited = ?, last_payment_at = ?
		WHERE id = ?`, total.Add(usd).String(), formatTime(at), accountID)
	return domain.StoreFailure("record deposit", err)
}

func (t *tx) IncrementAttempts(ctx context.Context, accountID string) error {
	_, err := t.q.ExecContext(ctx, `UPDATE accounts SET attempts_played = attempts_played + 1 WHERE id = ?`, accountID)
	return domain.StoreFailure("increment attempts", err)
}

func (t *tx) AppendTransaction(ctx context.Context, r domain.Transaction) error {
	var usd sql.NullString
	if r.AmountUSD != nil {
		usd = sql.NullString{String: r.AmountUSD.String(), Valid: true}
	}
	method := sql.NullString{String: r.Method, Valid: r.Method != ""}
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO transactions (id, account_id, kind, reason, amount, amount_usd, method, reference, balance_after, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.AccountID, string(r.Kind), string(r.Reason), r.Amount, usd, method, r.Reference, r.BalanceAfter, formatTime(r.CreatedAt))
	return domain.StoreFailure("append transaction", err)
}

func (t *tx) InsertMaze(ctx context.Context, m domain.DailyMaze) (bool, error) {
	layout, err := json.Marshal(m.Layout)
	if err != nil {
		return false, err
	}
	res, err := t.q.ExecContext(ctx, `
		INSERT INTO daily_mazes (day, layout, width, height, prize_pool, created_at)
		VALUES (?, ?, ?, ?, '0', ?)
		ON CONFLICT (day) DO NOTHING`, string(m.Day), string(layout), m.Width, m.Height, formatTime(m.CreatedAt))
	if err != nil {
		return false, domain.StoreFailure("insert maze", err)
	}
	n, err := res.RowsAffected()
	return n == 1, domain.StoreFailure("insert maze", err)
}

// LockMaze relies on the IMMEDIATE transaction already holding the write lock.
func (t *tx) LockMaze(ctx context.Context, day domain.Day) (domain.DailyMaze, error) {
	m, err := scanMaze(t.q.QueryRowContext(ctx, `
		SELECT m.day, m.layout, m.width, m.height, m.prize_pool, m.settled,
		       m.winner_account_id, '', m.winner_session_id,
		       m.winner_elapsed_ms, m.prize_points, m.created_at, m.settled_at
		FROM daily_mazes m
		WHERE m.day = ?`, string(day)))
	return m, notFound("lock maze", err)
}

func (t *tx) AddToPrizePool(ctx context.Context, day domain.Day, usd decimal.Decimal) error {
	var current string
	err := t.q.QueryRowContext(ctx, `SELECT prize_pool FROM daily_mazes WHERE day = ?`, string(day)).Scan(&current)
	if err != nil {
		return notFound("add to prize pool", err)
	}
	pool, err := decimal.NewFromString(current)
	if err != nil {
		return domain.StoreFailure("add to prize pool", err)
	}
	_, err = t.q.ExecContext(ctx, `UPDATE daily_mazes SET prize_pool = ? WHERE day = ?`, pool.Add(usd).String(), string(day))
	return domain.StoreFailure("add to prize pool", err)
}

func (t *tx) MarkSettled(ctx context.Context, day domain.Day, w *domain.Winner, at time.Time) (bool, error) {
	var (
		accountID, sessionID sql.NullString
		elapsedMS, prize     sql.NullInt64
	)
	if w != nil {
		accountID = sql.NullString{String: w.AccountID, Valid: true}
		sessionID = sql.NullString{String: w.SessionID, Valid: true}
		elapsedMS = sql.NullInt64{Int64: w.Elapsed.Milliseconds(), Valid: true}
		prize = sql.NullInt64{Int64: w.PrizePoints, Valid: true}
	}
	res, err := t.q.ExecContext(ctx, `
		UPDATE daily_mazes
		SET settled = 1, settled_at = ?, winner_account_id = ?,
		    winner_session_id = ?, winner_elapsed_ms = ?, prize_points = ?
		WHERE day = ? AND settled = 0`,
		formatTime(at), accountID, sessionID, elapsedMS, prize, string(day))
	if err != nil {
		return false, domain.StoreFailure("mark settled", err)
	}
	n, err := res.RowsAffected()
	return n == 1, domain.StoreFailure("mark settled", err)
}

func (t *tx) InsertSession(ctx context.Context, s domain.Session) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO sessions (id, account_id, day, started_at)
		VALUES (?, ?, ?, ?)`, s.ID, s.AccountID, string(s.Day), formatTime(s.StartedAt))
	if isUnique(err) {
		return domain.ErrConflict
	}
	return domain.StoreFailure("insert session", err)
}

func (t *tx) HasSessionOn(ctx context.Context, accountID string, day domain.Day) (bool, error) {
	var exists bool
	err := t.q.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM sessions WHERE account_id = ? AND day = ?)`,
		accountID, string(day)).Scan(&exists)
	return exists, domain.StoreFailure("has session", err)
}

func (t *tx) CompleteSession(ctx context.Context, id string, completedAt time.Time, elapsed time.Duration) (bool, error) {
	res, err := t.q.ExecContext(ctx, `
		UPDATE sessions SET completed_at = ?, elapsed_ms = ?
		WHERE id = ? AND completed_at IS NULL`, formatTime(completedAt), elapsed.Milliseconds(), id)
	if err != nil {
		return false, domain.StoreFailure("complete session", err)
	}
	n, err := res.RowsAffected()
	return n == 1, domain.StoreFailure("complete session", err)
}

func (t *tx) MarkWinner(ctx context.Context, sessionID string) error {
	_, err := t.q.ExecContext(ctx, `UPDATE sessions SET is_winner = 1 WHERE id = ?`, sessionID)
	return domain.StoreFailure("mark winner", err)
}

func affected(op string, res sql.Result, err error) error {
	if err != nil {
		return domain.StoreFailure(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.StoreFailure(op, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func notFound(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return domain.StoreFailure(op, err)
}
