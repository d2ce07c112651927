package api

import (
	"github.com/sudo-init-do/lanceo/pkg/logger"
	"github.com/sudo-init-do/lanceo/pkg/metrics"
)

// Option configures a Server.
type Option func(*Server)

func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics records requests and serves GET /metrics.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Server) { s.metrics = m }
}

// WithPasswordResetter enables POST /auth/password/reset.
func WithPasswordResetter(r PasswordResetter) Option {
	return func(s *Server) { s.resetter = r }
}
