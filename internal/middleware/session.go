package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/lanceo/internal/session"
)

// Context keys set by RequireSession.
const (
	KeyUserID = "user_id"
	KeyRole   = "role"
	KeyKind   = "session_kind"
)

// SessionSource exposes the process-wide session.
type SessionSource interface {
	Current() session.Session
}

// RequireSession rejects requests while nobody is signed in and exposes the
// identity under KeyUserID, KeyRole and KeyKind.
func RequireSession(src SessionSource) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s := src.Current()
			if !s.Active() {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not signed in"})
			}
			c.Set(KeyUserID, s.Identity.ID)
			c.Set(KeyRole, string(s.Identity.Role))
			c.Set(KeyKind, string(s.Kind))
			return next(c)
		}
	}
}
