package backend

import (
	"context"
	"time"

	"github.com/sudo-init-do/lanceo/internal/db"
	"github.com/sudo-init-do/lanceo/internal/remote"
	"github.com/sudo-init-do/lanceo/pkg/logger"
)

type subscription struct {
	channel  string
	bindings []remote.Binding
	handler  func(remote.ChangeEvent)
}

func (sub *subscription) wants(ev remote.ChangeEvent) bool {
	for _, b := range sub.bindings {
		if b.Matches(ev) {
			return true
		}
	}
	return false
}

// Subscribe registers handler for the changes selected by bindings. The
// first subscription opens the LISTEN connection; it stays open until Close.
// channel only names the subscription in logs.
func (s *Service) Subscribe(ctx context.Context, channel string, bindings []remote.Binding, handler func(remote.ChangeEvent)) (remote.Subscription, error) {
	s.rtMu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs[id] = &subscription{channel: channel, bindings: append([]remote.Binding(nil), bindings...), handler: handler}
	if s.stopListen == nil && s.pool != nil {
		lctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		s.stopListen = cancel
		s.listenDone = make(chan struct{})
		go s.listen(lctx, s.listenDone)
	}
	s.rtMu.Unlock()
	s.log.Debug(ctx, "change feed subscribed", logger.String("channel", channel), logger.Int("bindings", len(bindings)))

	return remote.SubscriptionFunc(func() error {
		s.rtMu.Lock()
		delete(s.subs, id)
		s.rtMu.Unlock()
		return nil
	}), nil
}

// listen keeps a LISTEN connection open, reconnecting after retryDelay.
func (s *Service) listen(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		err := db.Listen(ctx, s.pool, db.NotifyChannel, s.dispatchChange, func(err error) {
			s.log.Warn(ctx, "change notification dropped", logger.Error(err))
		})
		if ctx.Err() != nil {
			return
		}
		s.log.Error(ctx, "change feed connection lost", logger.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.retryDelay):
		}
	}
}

func (s *Service) dispatchChange(c db.Change) {
	s.dispatch(remote.ChangeEvent{
		Table: c.Table,
		Type:  remote.EventType(c.Type),
		New:   jsonRow(c.Record),
		Old:   jsonRow(c.OldRecord),
	})
}

func jsonRow(m map[string]any) remote.Row {
	if m == nil {
		return nil
	}
	return remote.Row(m)
}

// dispatch delivers ev to every matching subscription, outside the lock.
func (s *Service) dispatch(ev remote.ChangeEvent) {
	s.rtMu.Lock()
	var handlers []func(remote.ChangeEvent)
	for _, sub := range s.subs {
		if sub.wants(ev) {
			handlers = append(handlers, sub.handler)
		}
	}
	s.rtMu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}
