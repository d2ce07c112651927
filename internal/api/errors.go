package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/lanceo/internal/backend"
	"github.com/sudo-init-do/lanceo/internal/cache"
	"github.com/sudo-init-do/lanceo/internal/marketplace"
	"github.com/sudo-init-do/lanceo/internal/remote"
	"github.com/sudo-init-do/lanceo/internal/session"
)

// statusFor maps domain errors to HTTP status codes. Anything unknown is a
// failure of the remote service.
func statusFor(err error) int {
	switch {
	case errors.Is(err, cache.ErrValidation),
		errors.Is(err, cache.ErrEmptyMessage),
		errors.Is(err, session.ErrInvalidInput),
		errors.Is(err, backend.ErrWeakPassword):
		return http.StatusBadRequest
	case errors.Is(err, cache.ErrNotSignedIn),
		errors.Is(err, session.ErrNoIdentity),
		errors.Is(err, session.ErrInvalidCredentials),
		errors.Is(err, backend.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, cache.ErrNotFound),
		errors.Is(err, backend.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, remote.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, remote.ErrOffline):
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

// message is the user-facing text for err.
func message(err error) string {
	var ve *marketplace.ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Message
	case errors.Is(err, session.ErrInvalidCredentials):
		return "invalid credentials"
	case errors.Is(err, remote.ErrOffline):
		return "service unavailable"
	}
	return err.Error()
}

func fail(c echo.Context, err error) error {
	return c.JSON(statusFor(err), echo.Map{"error": message(err)})
}

func badRequest(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
}
