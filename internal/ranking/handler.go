package ranking

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/dailymaze/internal/domain"
	"github.com/sudo-init-do/dailymaze/internal/middleware"
)

type Handler struct {
	reader *Reader
	log    *slog.Logger
}

func NewHandler(r *Reader, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{reader: r, log: logger}
}

// Ranking returns standings and the prize estimate of ?day=, today by default
func (h *Handler) Ranking(c echo.Context) error {
	day := h.reader.Today()
	if raw := c.QueryParam("day"); raw != "" {
		d, err := domain.ParseDay(raw)
		if err != nil {
			return middleware.WriteError(c, h.log, err)
		}
		day = d
	}

	snap, err := h.reader.Snapshot(c.Request().Context(), day)
	if err != nil {
		return middleware.WriteError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, snap)
}
