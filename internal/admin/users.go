package admin

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/dailymaze/internal/middleware"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type AdminAccount struct {
	ID             string     `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	Role           string     `json:"role"`
	Balance        int64      `json:"balance"`
	TotalDeposited string     `json:"total_deposited"`
	AttemptsPlayed int        `json:"attempts_played"`
	CreatedAt      time.Time  `json:"created_at"`
	LastPaymentAt  *time.Time `json:"last_payment_at,omitempty"`
}

// GET /admin/accounts?limit=&offset=
func (h *Handler) Accounts(c echo.Context) error {
	limit, offset := defaultPageSize, 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "limit must be a positive integer"})
		}
		limit = min(n, maxPageSize)
	}
	if raw := c.QueryParam("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "offset must be a non-negative integer"})
		}
		offset = n
	}

	accounts, err := h.store.ListAccounts(c.Request().Context(), limit, offset)
	if err != nil {
		return middleware.WriteError(c, h.log, err)
	}

	out := make([]AdminAccount, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, AdminAccount{
			ID:             a.ID,
			Username:       a.Username,
			Email:          a.Email,
			Role:           a.Role,
			Balance:        a.Balance,
			TotalDeposited: a.TotalDeposited.StringFixed(2),
			AttemptsPlayed: a.AttemptsPlayed,
			CreatedAt:      a.CreatedAt,
			LastPaymentAt:  a.LastPaymentAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"accounts": out, "limit": limit, "offset": offset})
}

// POST /admin/accounts/:username/promote
func (h *Handler) PromoteAdmin(c echo.Context) error {
	username := c.Param("username")
	if username == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username required"})
	}

	if err := h.promoter.PromoteAdmin(c.Request().Context(), username); err != nil {
		return middleware.WriteError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "user promoted to admin", "username": username})
}
