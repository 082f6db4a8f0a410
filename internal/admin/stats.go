package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/dailymaze/internal/middleware"
)

// GET /admin/stats
func (h *Handler) Stats(c echo.Context) error {
	counts, err := h.store.Counts(c.Request().Context())
	if err != nil {
		return middleware.WriteError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, counts)
}
