// Package remotetest provides an in-memory remote.Service for tests.
package remotetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sudo-init-do/lanceo/internal/remote"
)

// Endpoint names used by Calls.
const (
	CallSelect        = "select"
	CallInsert        = "insert"
	CallUpdate        = "update"
	CallGetSession    = "get_session"
	CallSignIn        = "sign_in"
	CallSignUp        = "sign_up"
	CallSignOut       = "sign_out"
	CallResetPassword = "reset_password"
	CallSubscribe     = "subscribe"
)

// Hook runs before an endpoint mutates or reads state. A non-nil error aborts the call.
type Hook func(ctx context.Context, table string, row remote.Row) error

type account struct {
	password string
	user     remote.AuthUser
}

type subscription struct {
	id       int
	bindings []remote.Binding
	handler  func(remote.ChangeEvent)
}

// Fake implements remote.Service in memory. The zero value is not usable; call New.
type Fake struct {
	mu sync.Mutex

	tables   map[string][]remote.Row
	calls    map[string]int
	nextID   int
	now      func() time.Time
	accounts map[string]account
	session  *remote.AuthSession

	authListeners map[int]func(remote.AuthEvent)
	subs          map[int]*subscription
	nextListener  int

	// Hooks keyed by endpoint name (CallSelect, CallInsert, CallUpdate).
	hooks map[string]Hook

	// Errors returned by auth endpoints when set.
	SignOutErr error
	SessionErr error
}

// New returns an empty fake.
func New() *Fake {
	return &Fake{
		tables:        make(map[string][]remote.Row),
		calls:         make(map[string]int),
		accounts:      make(map[string]account),
		authListeners: make(map[int]func(remote.AuthEvent)),
		subs:          make(map[int]*subscription),
		hooks:         make(map[string]Hook),
		now:           time.Now,
	}
}

// SetClock replaces the clock used for created_at.
func (f *Fake) SetClock(now func() time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}

// SetHook installs h for the named endpoint; nil removes it.
func (f *Fake) SetHook(endpoint string, h Hook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h == nil {
		delete(f.hooks, endpoint)
		return
	}
	f.hooks[endpoint] = h
}

// Seed appends rows to table as-is.
func (f *Fake) Seed(table string, rows ...remote.Row) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range rows {
		f.tables[table] = append(f.tables[table], clone(r))
	}
}

// Rows returns a copy of every row in table.
func (f *Fake) Rows(table string) []remote.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]remote.Row, 0, len(f.tables[table]))
	for _, r := range f.tables[table] {
		out = append(out, clone(r))
	}
	return out
}

// Calls returns how many times endpoint was invoked.
func (f *Fake) Calls(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[endpoint]
}

// AddAccount registers an account for SignInWithPassword.
func (f *Fake) AddAccount(email, password string, user remote.AuthUser) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.Email == "" {
		user.Email = email
	}
	f.accounts[email] = account{password: password, user: user}
}

// SetSession replaces the current session without notifying listeners.
func (f *Fake) SetSession(s *remote.AuthSession) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = s
}

// EmitAuth pushes ev to every auth listener.
func (f *Fake) EmitAuth(ev remote.AuthEvent) {
	f.mu.Lock()
	f.session = ev.Session
	listeners := make([]func(remote.AuthEvent), 0, len(f.authListeners))
	for _, fn := range f.authListeners {
		listeners = append(listeners, fn)
	}
	f.mu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

// Emit delivers ev to every matching realtime subscription, synchronously.
func (f *Fake) Emit(ev remote.ChangeEvent) {
	f.mu.Lock()
	var handlers []func(remote.ChangeEvent)
	ids := make([]int, 0, len(f.subs))
	for id := range f.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		s := f.subs[id]
		for _, b := range s.bindings {
			if b.Matches(ev) {
				handlers = append(handlers, s.handler)
				break
			}
		}
	}
	f.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}

// Subscriptions returns the number of open realtime subscriptions.
func (f *Fake) Subscriptions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// AuthListeners returns the number of registered auth listeners.
func (f *Fake) AuthListeners() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.authListeners)
}

func (f *Fake) hook(ctx context.Context, endpoint, table string, row remote.Row) error {
	f.mu.Lock()
	f.calls[endpoint]++
	h := f.hooks[endpoint]
	f.mu.Unlock()
	if h == nil {
		return nil
	}
	return h(ctx, table, row)
}

// Select implements remote.Tables.
func (f *Fake) Select(ctx context.Context, q remote.Query) ([]remote.Row, error) {
	if err := f.hook(ctx, CallSelect, q.Table, nil); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	var out []remote.Row
	for _, r := range f.tables[q.Table] {
		if matches(r, q.Filters) {
			out = append(out, clone(r))
		}
	}
	if q.OrderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i][q.OrderBy], out[j][q.OrderBy]
			if q.Descending {
				a, b = b, a
			}
			return lessValue(a, b)
		})
	}
	return out, nil
}

// Insert implements remote.Tables. Rows without an id get "srv-N"; created_at defaults to the clock.
func (f *Fake) Insert(ctx context.Context, table string, row remote.Row) (remote.Row, error) {
	if err := f.hook(ctx, CallInsert, table, row); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	stored := clone(row)
	if _, ok := stored["id"]; !ok {
		f.nextID++
		stored["id"] = fmt.Sprintf("srv-%d", f.nextID)
	}
	if _, ok := stored["created_at"]; !ok {
		stored["created_at"] = f.now()
	}
	f.tables[table] = append(f.tables[table], stored)
	return clone(stored), nil
}

// Update implements remote.Tables.
func (f *Fake) Update(ctx context.Context, table string, values remote.Row, filters ...remote.Filter) error {
	if err := f.hook(ctx, CallUpdate, table, values); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.tables[table] {
		if !matches(r, filters) {
			continue
		}
		for k, v := range values {
			r[k] = v
		}
	}
	return nil
}

// GetSession implements remote.Auth.
func (f *Fake) GetSession(context.Context) (*remote.AuthSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[CallGetSession]++
	if f.SessionErr != nil {
		return nil, f.SessionErr
	}
	if f.session == nil {
		return nil, nil
	}
	s := *f.session
	return &s, nil
}

// SignInWithPassword implements remote.Auth.
func (f *Fake) SignInWithPassword(_ context.Context, email, password string) (*remote.AuthSession, error) {
	f.mu.Lock()
	f.calls[CallSignIn]++
	acc, ok := f.accounts[email]
	if !ok || acc.password != password {
		f.mu.Unlock()
		return nil, remote.ErrInvalidCredentials
	}
	s := &remote.AuthSession{AccessToken: "token-" + acc.user.ID, User: acc.user}
	f.mu.Unlock()

	f.EmitAuth(remote.AuthEvent{Kind: remote.AuthSignedIn, Session: s})
	return s, nil
}

// SignUp implements remote.Auth.
func (f *Fake) SignUp(_ context.Context, email, password string, metadata map[string]any) (*remote.AuthSession, error) {
	f.mu.Lock()
	f.calls[CallSignUp]++
	if _, exists := f.accounts[email]; exists {
		f.mu.Unlock()
		return nil, remote.ErrUserExists
	}
	f.nextID++
	u := remote.AuthUser{ID: fmt.Sprintf("user-%d", f.nextID), Email: email, Metadata: metadata, CreatedAt: f.now()}
	f.accounts[email] = account{password: password, user: u}
	s := &remote.AuthSession{AccessToken: "token-" + u.ID, User: u}
	f.mu.Unlock()

	f.EmitAuth(remote.AuthEvent{Kind: remote.AuthSignedIn, Session: s})
	return s, nil
}

// SignOut implements remote.Auth.
func (f *Fake) SignOut(context.Context) error {
	f.mu.Lock()
	f.calls[CallSignOut]++
	err := f.SignOutErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	f.EmitAuth(remote.AuthEvent{Kind: remote.AuthSignedOut})
	return nil
}

// ResetPasswordForEmail implements remote.Auth.
func (f *Fake) ResetPasswordForEmail(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[CallResetPassword]++
	return nil
}

// OnAuthStateChange implements remote.Auth.
func (f *Fake) OnAuthStateChange(fn func(remote.AuthEvent)) remote.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextListener++
	id := f.nextListener
	f.authListeners[id] = fn
	return remote.SubscriptionFunc(func() error {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.authListeners, id)
		return nil
	})
}

// Subscribe implements remote.Realtime.
func (f *Fake) Subscribe(_ context.Context, _ string, bindings []remote.Binding, handler func(remote.ChangeEvent)) (remote.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[CallSubscribe]++
	f.nextListener++
	id := f.nextListener
	f.subs[id] = &subscription{id: id, bindings: bindings, handler: handler}
	return remote.SubscriptionFunc(func() error {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
		return nil
	}), nil
}

func matches(r remote.Row, filters []remote.Filter) bool {
	for _, flt := range filters {
		if fmt.Sprint(r[flt.Column]) != fmt.Sprint(flt.Value) {
			return false
		}
	}
	return true
}

func lessValue(a, b any) bool {
	switch av := a.(type) {
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Before(bv)
	case string:
		bv, ok := b.(string)
		return ok && av < bv
	case int:
		bv, ok := b.(int)
		return ok && av < bv
	case float64:
		bv, ok := b.(float64)
		return ok && av < bv
	}
	return false
}

func clone(r remote.Row) remote.Row {
	out := make(remote.Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

var _ remote.Service = (*Fake)(nil)
