package backend

import (
	"context"

	"github.com/sudo-init-do/lanceo/internal/remote"
)

// Offline is the remote.Service used when no database is configured. Reads
// and writes fail with remote.ErrOffline, there is never a session, and the
// change feed is silent. Demo mode works unchanged on top of it.
type Offline struct{}

var _ remote.Service = Offline{}

func (Offline) Select(context.Context, remote.Query) ([]remote.Row, error) {
	return nil, remote.ErrOffline
}

func (Offline) Insert(context.Context, string, remote.Row) (remote.Row, error) {
	return nil, remote.ErrOffline
}

func (Offline) Update(context.Context, string, remote.Row, ...remote.Filter) error {
	return remote.ErrOffline
}

func (Offline) GetSession(context.Context) (*remote.AuthSession, error) { return nil, nil }

func (Offline) SignInWithPassword(context.Context, string, string) (*remote.AuthSession, error) {
	return nil, remote.ErrOffline
}

func (Offline) SignUp(context.Context, string, string, map[string]any) (*remote.AuthSession, error) {
	return nil, remote.ErrOffline
}

func (Offline) SignOut(context.Context) error { return nil }

func (Offline) ResetPasswordForEmail(context.Context, string) error { return remote.ErrOffline }

func (Offline) OnAuthStateChange(func(remote.AuthEvent)) remote.Subscription {
	return remote.SubscriptionFunc(func() error { return nil })
}

func (Offline) Subscribe(context.Context, string, []remote.Binding, func(remote.ChangeEvent)) (remote.Subscription, error) {
	return remote.SubscriptionFunc(func() error { return nil }), nil
}
