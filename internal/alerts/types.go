package alerts

import "time"

// Task type constants
const (
	TaskWelcome = "notify:welcome"
	TaskWinner  = "notify:winner"
)

// Queue names and their worker priorities.
const (
	QueueEmails = "emails"
	QueueAlerts = "alerts"
)

// Common envelope for email-like notifications
type EmailEnvelope struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Welcome payload, sent after registration
type WelcomePayload struct {
	AccountID string        `json:"account_id"`
	Username  string        `json:"username"`
	Email     string        `json:"email"`
	Envelope  EmailEnvelope `json:"envelope"`
	SentAt    time.Time     `json:"sent_at"`
}

// Winner payload, sent once a day settles with a winner
type WinnerPayload struct {
	Day            string        `json:"day"`
	AccountID      string        `json:"account_id"`
	Username       string        `json:"username"`
	SessionID      string        `json:"session_id"`
	ElapsedSeconds float64       `json:"elapsed_seconds"`
	PrizePoints    int64         `json:"prize_points"`
	Envelope       EmailEnvelope `json:"envelope"`
	SentAt         time.Time     `json:"sent_at"`
}
