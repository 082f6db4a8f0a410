package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/dailymaze/internal/middleware"
)

// Me returns the currently authenticated player's profile
func (h *Handler) Me(c echo.Context) error {
	id, ok := middleware.Identity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	a, err := h.svc.store.Account(c.Request().Context(), id.AccountID)
	if err != nil {
		return middleware.WriteError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":              a.ID,
		"username":        a.Username,
		"email":           a.Email,
		"role":            a.Role,
		"attempts_played": a.AttemptsPlayed,
		"created_at":      a.CreatedAt,
	})
}
