package wallet

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/dailymaze/internal/middleware"
)

// AdminUserTransactions returns the history of any account (admin view)
func (h *Handler) AdminUserTransactions(c echo.Context) error {
	accountID := c.Param("id")
	if accountID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "account ID is required"})
	}
	if _, err := h.ledger.Account(c.Request().Context(), accountID); err != nil {
		return middleware.WriteError(c, h.log, err)
	}
	return h.history(c, accountID)
}
