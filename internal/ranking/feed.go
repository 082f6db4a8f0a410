package ranking

import (
	"context"
	"time"

	"github.com/sudo-init-do/dailymaze/internal/metrics"
)

// Subscribe emits a snapshot of the current day right away and then every
// interval until ctx ends, when the channel is closed. A failed read skips
// that tick. Snapshots are dropped rather than queued while the consumer
// is busy.
func (r *Reader) Subscribe(ctx context.Context, interval time.Duration) <-chan Snapshot {
	if interval <= 0 {
		interval = r.rules.StandingsInterval
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}

	out := make(chan Snapshot, 1)
	metrics.FeedSubscribers.Inc()
	go func() {
		defer metrics.FeedSubscribers.Dec()
		defer close(out)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			snap, err := r.Snapshot(ctx, r.Today())
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				r.log.Warn("standings snapshot failed", "error", err)
			} else {
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				default:
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return out
}
