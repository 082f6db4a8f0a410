package session

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/dailymaze/internal/domain"
	"github.com/sudo-init-do/dailymaze/internal/maze"
	"github.com/sudo-init-do/dailymaze/internal/middleware"
)

type Handler struct {
	manager *Manager
	log     *slog.Logger
}

func NewHandler(m *Manager, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{manager: m, log: logger}
}

type StartResponse struct {
	SessionID string        `json:"session_id"`
	Day       domain.Day    `json:"day"`
	StartedAt time.Time     `json:"started_at"`
	Layout    domain.Layout `json:"layout"`
	Width     int           `json:"width"`
	Height    int           `json:"height"`
	Entry     maze.Point    `json:"entry"`
	Exit      maze.Point    `json:"exit"`
	Balance   int64         `json:"balance"`
}

// Start pays the entry fee and returns today's maze
func (h *Handler) Start(c echo.Context) error {
	id, ok := middleware.Identity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	a, err := h.manager.StartAttempt(c.Request().Context(), id.AccountID)
	if err != nil {
		return middleware.WriteError(c, h.log, err)
	}

	return c.JSON(http.StatusCreated, StartResponse{
		SessionID: a.Session.ID,
		Day:       a.Session.Day,
		StartedAt: a.Session.StartedAt,
		Layout:    a.Layout,
		Width:     len(a.Layout[0]),
		Height:    len(a.Layout),
		Entry:     maze.Entry(a.Layout),
		Exit:      maze.Exit(a.Layout),
		Balance:   a.Balance,
	})
}

type CompleteRequest struct {
	ElapsedSeconds *float64 `json:"elapsed_seconds"`
}

// Complete records the finishing time of one of the caller's sessions
func (h *Handler) Complete(c echo.Context) error {
	id, ok := middleware.Identity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	req := new(CompleteRequest)
	if err := c.Bind(req); err != nil || req.ElapsedSeconds == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "elapsed_seconds is required"})
	}

	sess, recorded, err := h.manager.CompleteAttempt(c.Request().Context(), id.AccountID, c.Param("id"), *req.ElapsedSeconds)
	if err != nil {
		return middleware.WriteError(c, h.log, err)
	}

	var elapsed float64
	if sess.Elapsed != nil {
		elapsed = sess.Elapsed.Seconds()
	}
	return c.JSON(http.StatusOK, echo.Map{
		"session_id":      sess.ID,
		"day":             sess.Day,
		"recorded":        recorded,
		"elapsed_seconds": elapsed,
		"completed_at":    sess.CompletedAt,
	})
}
