package mail

import "errors"

var (
	// ErrNotConfigured is returned when the selected provider lacks credentials.
	ErrNotConfigured = errors.New("mail provider not configured")

	// ErrUnknownProvider is returned for a provider name outside log, smtp and plunk.
	ErrUnknownProvider = errors.New("unknown mail provider")
)
