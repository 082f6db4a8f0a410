package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/dailymaze/internal/domain"
	"github.com/sudo-init-do/dailymaze/internal/middleware"
)

type BootstrapAdminRequest struct {
	Username string `json:"username"`
	Secret   string `json:"secret"`
}

// BootstrapAdmin promotes the first operator using the shared bootstrap
// secret. It is disabled when no secret is configured.
func (h *Handler) BootstrapAdmin(c echo.Context) error {
	req := new(BootstrapAdminRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if h.bootstrapSecret == "" {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "bootstrap disabled"})
	}
	if req.Secret == "" || subtle.ConstantTimeCompare([]byte(req.Secret), []byte(h.bootstrapSecret)) != 1 {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "invalid secret"})
	}
	if req.Username == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username required"})
	}

	err := h.svc.PromoteAdmin(c.Request().Context(), req.Username)
	if errors.Is(err, domain.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err != nil {
		return middleware.WriteError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "user promoted to admin", "username": req.Username})
}
