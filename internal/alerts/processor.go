package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Worker consumes notification tasks from Redis.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	sender Sender
	log    *slog.Logger
}

// NewWorker builds a worker bound to redisAddr that delivers through sender.
func NewWorker(redisAddr string, sender Sender, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Worker{sender: sender, log: logger}

	w.mux = asynq.NewServeMux()
	w.mux.HandleFunc(TaskWelcome, w.handleWelcome)
	w.mux.HandleFunc(TaskWinner, w.handleWinner)

	w.server = asynq.NewServer(asynq.RedisClientOpt{Addr: redisAddr}, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			QueueEmails: 10,
			QueueAlerts: 5,
		},
	})
	return w
}

// Start runs the worker in the background.
func (w *Worker) Start() error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start notification worker: %w", err)
	}
	w.log.Info("notification worker started")
	return nil
}

// Shutdown waits for in-flight tasks and stops the worker.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

// Handlers below parse payloads and hand the envelope to the sender.

func (w *Worker) handleWelcome(ctx context.Context, t *asynq.Task) error {
	var p WelcomePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if err := w.sender.Send(ctx, p.Envelope); err != nil {
		w.log.Error("[notify] welcome send failed", "account_id", p.AccountID, "error", err)
		return err
	}
	w.log.Info("[notify] welcome sent", "to", p.Email, "account_id", p.AccountID)
	return nil
}

func (w *Worker) handleWinner(ctx context.Context, t *asynq.Task) error {
	var p WinnerPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if err := w.sender.Send(ctx, p.Envelope); err != nil {
		w.log.Error("[notify] winner send failed", "day", p.Day, "account_id", p.AccountID, "error", err)
		return err
	}
	w.log.Info("[notify] winner announced", "day", p.Day, "username", p.Username, "prize_points", p.PrizePoints)
	return nil
}
