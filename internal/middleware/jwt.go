package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/dailymaze/internal/domain"
)

// Context keys set by RequireAuth.
const (
	KeyAccountID = "account_id"
	KeyUsername  = "username"
	KeyRole      = "role"
)

// Verifier resolves a bearer token to an identity.
type Verifier interface {
	Verify(token string) (domain.Identity, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// identity on the context. The token may also come from the "token" query
// parameter, which browsers need for websocket upgrades.
func RequireAuth(v Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenStr := bearer(c.Request().Header.Get("Authorization"))
			if tokenStr == "" {
				tokenStr = c.QueryParam("token")
			}
			if tokenStr == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing Authorization header"})
			}

			id, err := v.Verify(tokenStr)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}

			c.Set(KeyAccountID, id.AccountID)
			c.Set(KeyUsername, id.Username)
			c.Set(KeyRole, id.Role)
			return next(c)
		}
	}
}

func bearer(header string) string {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// Identity reads what RequireAuth stored.
func Identity(c echo.Context) (domain.Identity, bool) {
	id, ok := c.Get(KeyAccountID).(string)
	if !ok || id == "" {
		return domain.Identity{}, false
	}
	username, _ := c.Get(KeyUsername).(string)
	role, _ := c.Get(KeyRole).(string)
	return domain.Identity{AccountID: id, Username: username, Role: role}, true
}
