package feed

import (
	"github.com/sudo-init-do/lanceo/internal/config"
	"github.com/sudo-init-do/lanceo/pkg/logger"
	"github.com/sudo-init-do/lanceo/pkg/metrics"
)

// Option configures a Listener.
type Option func(*Listener)

// WithMode selects config.FeedModeResync (default) or config.FeedModePatch.
func WithMode(mode string) Option {
	return func(l *Listener) {
		if mode == config.FeedModePatch {
			l.patch = true
		}
	}
}

func WithLogger(lg logger.Logger) Option {
	return func(l *Listener) {
		if lg != nil {
			l.log = lg
		}
	}
}

func WithMetrics(m *metrics.Manager) Option {
	return func(l *Listener) { l.metrics = m }
}
