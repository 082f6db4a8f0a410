package alerts

import (
	"context"
	"log/slog"

	"github.com/sudo-init-do/dailymaze/internal/domain"
)

// Notifier tells players about events. Delivery is best effort: callers log
// a failure and carry on, the economy never depends on it.
type Notifier interface {
	Welcome(ctx context.Context, a domain.Account) error
	Winner(ctx context.Context, day domain.Day, w domain.Winner, email string) error
}

// LogNotifier only logs; it is used when no queue is configured.
type LogNotifier struct {
	Log *slog.Logger
}

func (n LogNotifier) logger() *slog.Logger {
	if n.Log == nil {
		return slog.Default()
	}
	return n.Log
}

func (n LogNotifier) Welcome(_ context.Context, a domain.Account) error {
	n.logger().Info("[notify] welcome", "account_id", a.ID, "username", a.Username)
	return nil
}

func (n LogNotifier) Winner(_ context.Context, day domain.Day, w domain.Winner, _ string) error {
	n.logger().Info("[notify] winner",
		"day", day,
		"account_id", w.AccountID,
		"username", w.Username,
		"elapsed_seconds", w.Elapsed.Seconds(),
		"prize_points", w.PrizePoints,
	)
	return nil
}
