package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/dailymaze/internal/domain"
)

// Status maps a domain error to its HTTP status code.
func Status(err error) int {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrAlreadyPlayedToday),
		errors.Is(err, domain.ErrDaySettled):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// WriteError renders err as {"error": msg}. Server-side failures are logged
// and reported with a generic message.
func WriteError(c echo.Context, logger *slog.Logger, err error) error {
	status := Status(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"account_id", c.Get(KeyAccountID),
			"error", err,
		)
		return c.JSON(status, echo.Map{"error": "temporary failure, please try again"})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}
