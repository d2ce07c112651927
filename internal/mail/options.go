package mail

import (
	"time"

	"github.com/sudo-init-do/lanceo/pkg/logger"
)

// Option configures the email composer shared by the client and direct notifier.
type Option func(*composer)

// WithAppURL sets the front-end base used for links in emails.
func WithAppURL(u string) Option {
	return func(c *composer) { c.appURL = u }
}

// WithResetMinutes sets the lifetime quoted in password reset emails.
func WithResetMinutes(m int) Option {
	return func(c *composer) {
		if m > 0 {
			c.resetMinutes = m
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(c *composer) { c.log = l }
}

// WithClock overrides the payload timestamps source.
func WithClock(now func() time.Time) Option {
	return func(c *composer) { c.now = now }
}
