package wallet

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler serves the wallet endpoints of the authenticated player.
type Handler struct {
	ledger *Ledger
	log    *slog.Logger
}

func NewHandler(l *Ledger, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{ledger: l, log: logger}
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}
