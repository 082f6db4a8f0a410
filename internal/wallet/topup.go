package wallet

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/dailymaze/internal/domain"
	"github.com/sudo-init-do/dailymaze/internal/middleware"
)

type PurchaseRequest struct {
	AmountUSD decimal.Decimal `json:"amount_usd"`
	Method    string          `json:"method"`
}

type PurchaseResponse struct {
	Balance        int64  `json:"balance"`
	PointsAdded    int64  `json:"points_added"`
	TotalDeposited string `json:"total_deposited"`
}

// Purchase credits points for an already verified payment
func (h *Handler) Purchase(c echo.Context) error {
	id, ok := middleware.Identity(c)
	if !ok {
		return unauthorized(c)
	}

	req := new(PurchaseRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Method == "" {
		req.Method = "card"
	}

	account, err := h.ledger.Purchase(c.Request().Context(), id.AccountID, req.AmountUSD, req.Method)
	if err != nil {
		return middleware.WriteError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, PurchaseResponse{
		Balance:        account.Balance,
		PointsAdded:    domain.USDToPoints(req.AmountUSD, h.ledger.rules.PointsPerDollar),
		TotalDeposited: account.TotalDeposited.StringFixed(2),
	})
}
