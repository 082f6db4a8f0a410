package wallet

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/dailymaze/internal/domain"
	"github.com/sudo-init-do/dailymaze/internal/middleware"
)

// Balance returns the authenticated player's balance and counters
func (h *Handler) Balance(c echo.Context) error {
	id, ok := middleware.Identity(c)
	if !ok {
		return unauthorized(c)
	}

	account, err := h.ledger.Account(c.Request().Context(), id.AccountID)
	if err != nil {
		return middleware.WriteError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"account_id":      account.ID,
		"username":        account.Username,
		"balance":         account.Balance,
		"balance_usd":     domain.PointsToUSD(account.Balance, h.ledger.rules.PointsPerDollar).StringFixed(2),
		"total_deposited": account.TotalDeposited.StringFixed(2),
		"attempts_played": account.AttemptsPlayed,
		"last_payment_at": account.LastPaymentAt,
	})
}
