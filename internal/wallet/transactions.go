package wallet

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/dailymaze/internal/domain"
	"github.com/sudo-init-do/dailymaze/internal/middleware"
)

// Transactions returns the authenticated player's balance history
func (h *Handler) Transactions(c echo.Context) error {
	id, ok := middleware.Identity(c)
	if !ok {
		return unauthorized(c)
	}
	return h.history(c, id.AccountID)
}

func (h *Handler) history(c echo.Context, accountID string) error {
	limit, err := parseLimit(c.QueryParam("limit"))
	if err != nil {
		return middleware.WriteError(c, h.log, err)
	}

	txs, err := h.ledger.History(c.Request().Context(), accountID, limit)
	if err != nil {
		return middleware.WriteError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"transactions": txs})
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return DefaultHistoryLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, domain.Invalid("limit", "must be a positive integer")
	}
	return n, nil
}
