package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/dailymaze/internal/middleware"
)

type Handler struct {
	svc             *Service
	bootstrapSecret string
	log             *slog.Logger
}

func NewHandler(svc *Service, bootstrapSecret string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, bootstrapSecret: bootstrapSecret, log: logger}
}

type RegisterResponse struct {
	Message   string `json:"message"`
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
}

// ===== Register =====
func (h *Handler) Register(c echo.Context) error {
	req := new(RegisterInput)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	a, err := h.svc.Register(c.Request().Context(), *req)
	if err != nil {
		return middleware.WriteError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, RegisterResponse{
		Message:   "registration successful",
		AccountID: a.ID,
		Username:  a.Username,
	})
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type PlayerSummary struct {
	Username       string `json:"username"`
	Balance        int64  `json:"balance"`
	TotalDeposited string `json:"total_deposited"`
	Role           string `json:"role"`
}

type LoginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	Player    PlayerSummary `json:"player"`
}

// ===== Login =====
func (h *Handler) Login(c echo.Context) error {
	req := new(LoginRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	token, exp, a, err := h.svc.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if middleware.Status(err) == http.StatusUnauthorized {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return middleware.WriteError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: exp,
		Player: PlayerSummary{
			Username:       a.Username,
			Balance:        a.Balance,
			TotalDeposited: a.TotalDeposited.StringFixed(2),
			Role:           a.Role,
		},
	})
}
