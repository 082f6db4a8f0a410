package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Roles carried in the token and stored on the account row.
const (
	RolePlayer = "player"
	RoleAdmin  = "admin"
)

// Account is a player's economy record. Balance is owned by the ledger.
type Account struct {
	ID             string          `json:"id"`
	Username       string          `json:"username"`
	Email          string          `json:"email"`
	PasswordHash   string          `json:"-"`
	Role           string          `json:"role"`
	Balance        int64           `json:"balance"`
	TotalDeposited decimal.Decimal `json:"total_deposited"`
	AttemptsPlayed int             `json:"attempts_played"`
	CreatedAt      time.Time       `json:"created_at"`
	LastPaymentAt  *time.Time      `json:"last_payment_at,omitempty"`
}

// Layout is a maze grid indexed [row][col]; 1 is a wall, 0 is open.
type Layout [][]int

// Winner is the settled result of a day.
type Winner struct {
	AccountID   string        `json:"account_id"`
	Username    string        `json:"username"`
	SessionID   string        `json:"session_id"`
	Elapsed     time.Duration `json:"-"`
	PrizePoints int64         `json:"prize_points"`
}

// DailyMaze is the single shared maze of a calendar day.
type DailyMaze struct {
	Day       Day             `json:"day"`
	Layout    Layout          `json:"layout"`
	Width     int             `json:"width"`
	Height    int             `json:"height"`
	PrizePool decimal.Decimal `json:"prize_pool"`
	Settled   bool            `json:"settled"`
	Winner    *Winner         `json:"winner,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	SettledAt *time.Time      `json:"settled_at,omitempty"`
}

// Session is one timed play-through of a day's maze.
type Session struct {
	ID          string         `json:"id"`
	AccountID   string         `json:"account_id"`
	Day         Day            `json:"day"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Elapsed     *time.Duration `json:"-"`
	IsWinner    bool           `json:"is_winner"`
}

// Completed reports whether the session has a recorded time.
func (s Session) Completed() bool { return s.CompletedAt != nil }

// TxKind is the accounting side of a transaction record.
type TxKind string

const (
	TxDebit  TxKind = "debit"
	TxCredit TxKind = "credit"
)

// TxReason is the business reason of a balance change.
type TxReason string

const (
	ReasonEntry    TxReason = "entry"
	ReasonPurchase TxReason = "purchase"
	ReasonPrize    TxReason = "prize"
)

// Transaction is an append-only audit entry for one balance change.
type Transaction struct {
	ID           string           `json:"id"`
	AccountID    string           `json:"account_id"`
	Kind         TxKind           `json:"kind"`
	Reason       TxReason         `json:"reason"`
	Amount       int64            `json:"amount"`
	AmountUSD    *decimal.Decimal `json:"amount_usd,omitempty"`
	Method       string           `json:"method,omitempty"`
	Reference    string           `json:"reference"`
	BalanceAfter int64            `json:"balance_after"`
	CreatedAt    time.Time        `json:"created_at"`
}

// Standing is one row of a day's ranking.
type Standing struct {
	Rank        int           `json:"rank"`
	SessionID   string        `json:"session_id"`
	AccountID   string        `json:"account_id"`
	Username    string        `json:"username"`
	Elapsed     time.Duration `json:"-"`
	CompletedAt time.Time     `json:"completed_at"`
}

// ElapsedSeconds is the ranking time in seconds.
func (s Standing) ElapsedSeconds() float64 { return s.Elapsed.Seconds() }

// Counts backs the operator stats endpoint.
type Counts struct {
	Accounts     int `json:"accounts"`
	Sessions     int `json:"sessions"`
	Transactions int `json:"transactions"`
	Mazes        int `json:"mazes"`
	Unsettled    int `json:"unsettled_mazes"`
}

// Identity is what a verified token says about its bearer.
type Identity struct {
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
}
