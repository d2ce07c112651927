// Package feed bridges remote change notifications into cache refreshes.
package feed

import (
	"context"
	"sync"

	"github.com/sudo-init-do/lanceo/internal/remote"
	"github.com/sudo-init-do/lanceo/internal/user"
	"github.com/sudo-init-do/lanceo/pkg/logger"
	"github.com/sudo-init-do/lanceo/pkg/metrics"
)

// Channel is the logical subscription name.
const Channel = "db-sync"

// Cache is what the listener refreshes.
type Cache interface {
	LoadAll(ctx context.Context) error
	ApplyChange(ev remote.ChangeEvent) bool
}

// Sessions re-maps the identity when its profile row changes.
type Sessions interface {
	Identity() (user.Identity, bool)
	Refresh(ctx context.Context) error
}

// Listener subscribes to profiles and projects changes. In resync mode every
// event reloads the cache; in patch mode events are applied by row id and a
// reload is the fallback.
type Listener struct {
	rt       remote.Realtime
	cache    Cache
	sessions Sessions

	patch   bool
	log     logger.Logger
	metrics *metrics.Manager

	mu     sync.Mutex
	sub    remote.Subscription
	ctx    context.Context
	cancel context.CancelFunc
}

func New(rt remote.Realtime, cache Cache, sessions Sessions, opts ...Option) *Listener {
	l := &Listener{
		rt:       rt,
		cache:    cache,
		sessions: sessions,
		log:      logger.Nop(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Bindings are the events the listener subscribes to.
func Bindings() []remote.Binding {
	return []remote.Binding{
		{Table: remote.TableProfiles, Event: remote.EventAll},
		{Table: remote.TableProjects, Event: remote.EventAll},
	}
}

// Start opens the subscription. Calling Start on a started listener is a no-op.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sub != nil {
		return nil
	}
	l.ctx, l.cancel = context.WithCancel(ctx)
	sub, err := l.rt.Subscribe(l.ctx, Channel, Bindings(), l.handle)
	if err != nil {
		l.cancel()
		return err
	}
	l.sub = sub
	l.log.Info(ctx, "change feed attached", logger.String("channel", Channel), logger.Bool("patch", l.patch))
	return nil
}

// Stop releases the subscription and cancels reloads it started.
func (l *Listener) Stop() error {
	l.mu.Lock()
	sub, cancel := l.sub, l.cancel
	l.sub, l.cancel = nil, nil
	l.mu.Unlock()
	if sub == nil {
		return nil
	}
	cancel()
	return sub.Close()
}

// Running reports whether the subscription is open.
func (l *Listener) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sub != nil
}

func (l *Listener) handle(ev remote.ChangeEvent) {
	l.mu.Lock()
	ctx := l.ctx
	l.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	l.metrics.IncFeedEvent(ev.Table, string(ev.Type))
	l.log.Debug(ctx, "change event", logger.String("table", ev.Table), logger.String("type", string(ev.Type)), logger.String("id", ev.ID()))

	if !l.patch || !l.cache.ApplyChange(ev) {
		if err := l.cache.LoadAll(ctx); err != nil {
			l.log.Warn(ctx, "resync after change failed", logger.String("table", ev.Table), logger.Error(err))
		}
	}

	if ev.Table != remote.TableProfiles {
		return
	}
	if id, ok := l.sessions.Identity(); ok && id.ID != "" && id.ID == ev.ID() {
		if err := l.sessions.Refresh(ctx); err != nil {
			l.log.Warn(ctx, "identity refresh failed", logger.Error(err))
		}
	}
}
