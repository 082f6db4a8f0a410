// Package admin serves the operator endpoints.
package admin

import (
	"context"
	"log/slog"

	"github.com/sudo-init-do/dailymaze/internal/domain"
	"github.com/sudo-init-do/dailymaze/internal/settlement"
	"github.com/sudo-init-do/dailymaze/internal/store"
)

// Settler runs settlements on demand.
type Settler interface {
	Settle(ctx context.Context, day domain.Day) (settlement.Result, error)
	Recover(ctx context.Context) ([]settlement.Result, error)
}

// Promoter grants the operator role.
type Promoter interface {
	PromoteAdmin(ctx context.Context, username string) error
}

type Handler struct {
	store    store.Queries
	settler  Settler
	promoter Promoter
	log      *slog.Logger
}

func NewHandler(q store.Queries, settler Settler, promoter Promoter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: q, settler: settler, promoter: promoter, log: logger}
}
