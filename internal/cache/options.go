package cache

import (
	"time"

	"github.com/sudo-init-do/lanceo/internal/localstate"
	"github.com/sudo-init-do/lanceo/pkg/logger"
	"github.com/sudo-init-do/lanceo/pkg/metrics"
)

// Option configures a Cache.
type Option func(*Cache)

func WithLogger(l logger.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.log = l
		}
	}
}

func WithMetrics(m *metrics.Manager) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithClock overrides the time source for labels and optimistic rows.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithFilterStore persists the last listing filter in s.
func WithFilterStore(s localstate.Store) Option {
	return func(c *Cache) { c.filters = s }
}

// WithAlertLimit bounds the alert inbox; zero keeps every alert.
func WithAlertLimit(n int) Option {
	return func(c *Cache) { c.alertLimit = n }
}
