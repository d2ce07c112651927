package backend

import (
	"time"

	"github.com/sudo-init-do/lanceo/pkg/logger"
)

// Option configures a Service.
type Option func(*Service)

func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMailer enables welcome and password-reset email.
func WithMailer(m Mailer) Option {
	return func(s *Service) { s.mailer = m }
}

// WithSessionTTL sets the lifetime of issued session tokens. Default 72h.
func WithSessionTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sessionTTL = d
		}
	}
}

// WithResetTTL sets the lifetime of password-reset tokens. Default 30m.
func WithResetTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.resetTTL = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRetryDelay sets the pause before the change feed reconnects. Default 2s.
func WithRetryDelay(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.retryDelay = d
		}
	}
}
