package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sudo-init-do/dailymaze/internal/domain"
)

// Queue enqueues notifications on Redis for the Worker to deliver.
type Queue struct {
	client *asynq.Client
	appURL string
	log    *slog.Logger
}

// NewQueue connects an asynq client to redisAddr.
func NewQueue(redisAddr, appURL string, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr}),
		appURL: appURL,
		log:    logger,
	}
}

// Close releases the client.
func (q *Queue) Close() error {
	return q.client.Close()
}

// Welcome schedules a welcome email to a new player
func (q *Queue) Welcome(ctx context.Context, a domain.Account) error {
	payload := WelcomePayload{
		AccountID: a.ID,
		Username:  a.Username,
		Email:     a.Email,
		Envelope:  welcomeEnvelope(a, q.appURL),
		SentAt:    time.Now(),
	}
	return q.enqueue(ctx, TaskWelcome, payload, asynq.Queue(QueueEmails))
}

// Winner schedules the winner announcement of a settled day. The task id is
// derived from the day, so a repeated enqueue for the same day is dropped.
func (q *Queue) Winner(ctx context.Context, day domain.Day, w domain.Winner, email string) error {
	payload := WinnerPayload{
		Day:            string(day),
		AccountID:      w.AccountID,
		Username:       w.Username,
		SessionID:      w.SessionID,
		ElapsedSeconds: w.Elapsed.Seconds(),
		PrizePoints:    w.PrizePoints,
		Envelope:       winnerEnvelope(day, w, email),
		SentAt:         time.Now(),
	}
	err := q.enqueue(ctx, TaskWinner, payload, asynq.Queue(QueueAlerts), asynq.TaskID("winner:"+string(day)), asynq.MaxRetry(10))
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

func (q *Queue) enqueue(ctx context.Context, taskType string, payload any, opts ...asynq.Option) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", taskType, err)
	}
	info, err := q.client.EnqueueContext(ctx, asynq.NewTask(taskType, b), opts...)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	q.log.Debug("task enqueued", "type", taskType, "id", info.ID, "queue", info.Queue)
	return nil
}

func welcomeEnvelope(a domain.Account, appURL string) EmailEnvelope {
	return EmailEnvelope{
		To:      a.Email,
		Subject: fmt.Sprintf("Welcome to Daily Maze, %s!", a.Username),
		Body: fmt.Sprintf("Hi %s, thanks for joining Daily Maze.\n\nA new maze opens every day at midnight. "+
			"The fastest run takes the prize pool.\n\nPlay: %s\n", a.Username, appURL),
	}
}

func winnerEnvelope(day domain.Day, w domain.Winner, email string) EmailEnvelope {
	return EmailEnvelope{
		To:      email,
		Subject: fmt.Sprintf("You won the %s maze!", day),
		Body: fmt.Sprintf("Congratulations %s,\n\nYour run of %.2fs was the fastest on %s. "+
			"%d points have been added to your balance.\n", w.Username, w.Elapsed.Seconds(), day, w.PrizePoints),
	}
}
