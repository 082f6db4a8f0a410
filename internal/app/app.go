// Package app wires the tournament components into a runnable service.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sudo-init-do/dailymaze/internal/alerts"
	"github.com/sudo-init-do/dailymaze/internal/auth"
	"github.com/sudo-init-do/dailymaze/internal/config"
	"github.com/sudo-init-do/dailymaze/internal/maze"
	"github.com/sudo-init-do/dailymaze/internal/ranking"
	"github.com/sudo-init-do/dailymaze/internal/session"
	"github.com/sudo-init-do/dailymaze/internal/settlement"
	"github.com/sudo-init-do/dailymaze/internal/store"
	"github.com/sudo-init-do/dailymaze/internal/store/postgres"
	"github.com/sudo-init-do/dailymaze/internal/store/sqlite"
	"github.com/sudo-init-do/dailymaze/internal/wallet"
)

// App holds every long-lived component of the service.
type App struct {
	Config config.Config
	Log    *slog.Logger
	Store  store.Store

	Ledger    *wallet.Ledger
	Issuer    *maze.Issuer
	Sessions  *session.Manager
	Ranking   *ranking.Reader
	Hub       *ranking.Hub
	Scheduler *settlement.Scheduler
	Auth      *auth.Service
	Notifier  alerts.Notifier

	queue  *alerts.Queue
	worker *alerts.Worker
}

// OpenStore connects to the configured driver and applies the schema.
func OpenStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		st, err = postgres.Open(ctx, cfg.DatabaseURL, logger)
	case config.DriverSQLite:
		st, err = sqlite.Open(ctx, cfg.SQLitePath, logger)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DatabaseDriver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return st, nil
}

// New opens the store and builds the components on top of it.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	st, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return Build(cfg, st, logger), nil
}

// Build assembles the components over an open store.
func Build(cfg config.Config, st store.Store, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Log: logger, Store: st}

	if cfg.RedisAddr != "" {
		a.queue = alerts.NewQueue(cfg.RedisAddr, cfg.AppURL, logger.With("component", "alerts"))
		a.Notifier = a.queue

		var sender alerts.Sender = alerts.LogSender{Log: logger.With("component", "mailer")}
		if cfg.SMTP.Configured() {
			sender = alerts.SMTPSender{Config: cfg.SMTP}
		}
		a.worker = alerts.NewWorker(cfg.RedisAddr, sender, logger.With("component", "worker"))
	} else {
		a.Notifier = alerts.LogNotifier{Log: logger.With("component", "alerts")}
	}

	rules := cfg.Rules
	a.Ledger = wallet.NewLedger(st, rules, logger.With("component", "ledger"))
	a.Issuer = maze.NewIssuer(st, rules, cfg.MazeSeed, logger.With("component", "maze"))
	a.Sessions = session.NewManager(st, a.Ledger, a.Issuer, rules, logger.With("component", "session"))
	a.Ranking = ranking.NewReader(st, rules, logger.With("component", "ranking"))
	a.Hub = ranking.NewHub(a.Ranking, rules.StandingsInterval, logger.With("component", "feed"))
	a.Scheduler = settlement.NewScheduler(st, a.Ledger, a.Ranking, a.Notifier, rules, logger.With("component", "settlement"))
	a.Auth = auth.NewService(st, a.Notifier, cfg.JWTSecret, cfg.TokenTTL, logger.With("component", "auth"))
	return a
}

// StartWorker runs the notification worker when a queue is configured.
func (a *App) StartWorker() error {
	if a.worker == nil {
		return nil
	}
	return a.worker.Start()
}

// Close stops background delivery, drops websocket clients and closes the store.
func (a *App) Close() {
	a.Hub.CloseAll()
	if a.worker != nil {
		a.worker.Shutdown()
	}
	if a.queue != nil {
		if err := a.queue.Close(); err != nil {
			a.Log.Warn("close notification queue", "error", err)
		}
	}
	a.Store.Close()
}
