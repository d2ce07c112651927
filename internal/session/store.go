package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sudo-init-do/lanceo/internal/localstate"
	"github.com/sudo-init-do/lanceo/internal/marketplace"
	"github.com/sudo-init-do/lanceo/internal/remote"
	"github.com/sudo-init-do/lanceo/internal/user"
	"github.com/sudo-init-do/lanceo/pkg/logger"
	"github.com/sudo-init-do/lanceo/pkg/metrics"
)

// Store owns the current Session. It is safe for concurrent use.
type Store struct {
	auth   remote.Auth
	tables remote.Tables
	flags  localstate.Store

	log     logger.Logger
	metrics *metrics.Manager

	mu        sync.RWMutex
	current   Session
	loading   bool
	authSub   remote.Subscription
	listeners map[int]func(Session)
	nextID    int
}

// New builds a store over the remote auth service. tables is used to overlay
// the identity with its profiles row; flags holds the demo flag.
func New(auth remote.Auth, tables remote.Tables, flags localstate.Store, opts ...Option) *Store {
	s := &Store{
		auth:      auth,
		tables:    tables,
		flags:     flags,
		log:       logger.Nop(),
		current:   Anonymous(),
		listeners: make(map[int]func(Session)),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Current returns a copy of the active session.
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.clone()
}

// Identity returns the active identity, if any.
func (s *Store) Identity() (user.Identity, bool) {
	cur := s.Current()
	return cur.Identity, cur.Active()
}

// Loading reports whether Establish is in progress.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Store) demoFlag() bool {
	v, ok := s.flags.Get(localstate.KeyDemoSession)
	return ok && v == localstate.DemoActive
}

// Establish resolves the session at start-up. The demo flag wins without any
// remote call; otherwise the remote session, if any, is mapped onto an
// identity. Failures leave the store anonymous.
func (s *Store) Establish(ctx context.Context) Session {
	if s.demoFlag() {
		s.set(Demo())
		return s.Current()
	}

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	as, err := s.auth.GetSession(ctx)
	if err != nil {
		s.log.Warn(ctx, "session lookup failed", logger.Error(err))
		s.metrics.IncRemoteFailure("get_session")
		s.set(Anonymous())
		return s.Current()
	}
	if as == nil {
		s.set(Anonymous())
		return s.Current()
	}
	s.set(s.resolve(ctx, as))
	return s.Current()
}

// resolve maps a remote session onto an Authenticated session, overlaying the
// identity with its profiles row when one exists.
func (s *Store) resolve(ctx context.Context, as *remote.AuthSession) Session {
	id := user.FromAuthUser(as.User)
	if s.tables != nil {
		rows, err := s.tables.Select(ctx, remote.Query{
			Table:   remote.TableProfiles,
			Filters: []remote.Filter{remote.Eq("id", as.User.ID)},
		})
		switch {
		case err != nil:
			s.log.Warn(ctx, "profile overlay failed", logger.String("user_id", as.User.ID), logger.Error(err))
			s.metrics.IncRemoteFailure("select_profile")
		case len(rows) > 0:
			user.OverlayProfile(&id, rows[0])
		}
	}
	return Session{
		Kind:      KindAuthenticated,
		Identity:  id,
		Token:     as.AccessToken,
		ExpiresAt: as.ExpiresAt,
	}
}

// SubscribeToAuthChanges registers fn for every session transition. The
// first call also attaches the store to the remote auth feed. Remote events
// are ignored while a demo session is active.
func (s *Store) SubscribeToAuthChanges(fn func(Session)) remote.Subscription {
	s.mu.Lock()
	if s.authSub == nil {
		s.authSub = s.auth.OnAuthStateChange(s.handleAuthEvent)
	}
	s.nextID++
	id := s.nextID
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return remote.SubscriptionFunc(func() error {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
		return nil
	})
}

func (s *Store) handleAuthEvent(ev remote.AuthEvent) {
	ctx := context.Background()
	if s.demoFlag() || s.Current().Kind == KindDemo {
		s.log.Debug(ctx, "auth event ignored in demo mode", logger.String("kind", string(ev.Kind)))
		return
	}
	if ev.Session == nil {
		s.set(Anonymous())
		return
	}
	if cur := s.Current(); ev.Kind != remote.AuthUserUpdated && cur.Kind == KindAuthenticated && cur.Token == ev.Session.AccessToken {
		return
	}
	s.set(s.resolve(ctx, ev.Session))
}

// EnterDemoMode persists the demo flag and switches to the demo identity.
func (s *Store) EnterDemoMode() (Session, error) {
	if err := s.flags.Set(localstate.KeyDemoSession, localstate.DemoActive); err != nil {
		return s.Current(), fmt.Errorf("persist demo flag: %w", err)
	}
	s.set(Demo())
	return s.Current(), nil
}

// SignIn authenticates with the remote service. The demo credentials enter
// demo mode instead. A demo flag is only dropped once the remote accepts.
func (s *Store) SignIn(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(email)
	if strings.EqualFold(email, user.DemoEmail) && password == user.DemoPassword {
		return s.EnterDemoMode()
	}

	as, err := s.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		if !errors.Is(err, remote.ErrInvalidCredentials) {
			s.metrics.IncRemoteFailure("sign_in")
		}
		return s.Current(), fmt.Errorf("sign in: %w", err)
	}
	if err := s.clearDemoFlag(); err != nil {
		return s.Current(), err
	}
	return s.adopt(ctx, as), nil
}

// SignUpInput carries the registration form.
type SignUpInput struct {
	Email    string    `json:"email" validate:"required,email"`
	Password string    `json:"password" validate:"required,min=6"`
	Name     string    `json:"name" validate:"required"`
	Role     user.Role `json:"role" validate:"omitempty,oneof=client provider"`
}

// SignUp registers an account with {name, type} metadata and adopts the new session.
func (s *Store) SignUp(ctx context.Context, in SignUpInput) (Session, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := marketplace.Validator().Struct(in); err != nil {
		return s.Current(), fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if in.Role == "" {
		in.Role = user.RoleProvider
	}

	as, err := s.auth.SignUp(ctx, in.Email, in.Password, map[string]any{
		"name": in.Name,
		"type": in.Role.RemoteType(),
	})
	if err != nil {
		return s.Current(), fmt.Errorf("sign up: %w", err)
	}
	if err := s.clearDemoFlag(); err != nil {
		return s.Current(), err
	}
	return s.adopt(ctx, as), nil
}

// adopt switches to as unless the auth feed already did.
func (s *Store) adopt(ctx context.Context, as *remote.AuthSession) Session {
	if cur := s.Current(); cur.Kind == KindAuthenticated && cur.Token == as.AccessToken {
		return cur
	}
	s.set(s.resolve(ctx, as))
	return s.Current()
}

// ResetPassword asks the remote service to email a reset link.
func (s *Store) ResetPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if err := marketplace.Validator().Var(email, "required,email"); err != nil {
		return fmt.Errorf("%w: email", ErrInvalidInput)
	}
	if err := s.auth.ResetPasswordForEmail(ctx, email); err != nil {
		s.metrics.IncRemoteFailure("reset_password")
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

// SignOut ends the session. A demo session only drops the flag; a remote one
// calls the sign-out endpoint. Local state is cleared either way and remote
// failures are only logged.
func (s *Store) SignOut(ctx context.Context) {
	if s.demoFlag() || s.Current().Kind == KindDemo {
		if err := s.clearDemoFlag(); err != nil {
			s.log.Warn(ctx, "clear demo flag failed", logger.Error(err))
		}
	} else if err := s.auth.SignOut(ctx); err != nil {
		s.log.Warn(ctx, "remote sign out failed", logger.Error(err))
		s.metrics.IncRemoteFailure("sign_out")
	}
	s.set(Anonymous())
}

// Refresh re-runs identity mapping against the remote service. Demo and
// anonymous sessions are left alone.
func (s *Store) Refresh(ctx context.Context) error {
	if s.Current().Kind != KindAuthenticated {
		return nil
	}
	as, err := s.auth.GetSession(ctx)
	if err != nil {
		s.metrics.IncRemoteFailure("get_session")
		return fmt.Errorf("refresh session: %w", err)
	}
	if as == nil {
		s.set(Anonymous())
		return nil
	}
	s.set(s.resolve(ctx, as))
	return nil
}

// ApplyPatch updates the local identity in place and returns it as it was
// before the patch.
func (s *Store) ApplyPatch(p user.Patch) (user.Identity, error) {
	s.mu.Lock()
	if !s.current.Active() {
		s.mu.Unlock()
		return user.Identity{}, ErrNoIdentity
	}
	prev := s.current.Identity.Clone()
	p.Apply(&s.current.Identity)
	next := s.current.clone()
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
	return prev, nil
}

// Close detaches from the remote auth feed.
func (s *Store) Close() error {
	s.mu.Lock()
	sub := s.authSub
	s.authSub = nil
	s.mu.Unlock()
	if sub == nil {
		return nil
	}
	return sub.Close()
}

func (s *Store) clearDemoFlag() error {
	if _, ok := s.flags.Get(localstate.KeyDemoSession); !ok {
		return nil
	}
	if err := s.flags.Remove(localstate.KeyDemoSession); err != nil {
		return fmt.Errorf("clear demo flag: %w", err)
	}
	return nil
}

func (s *Store) set(next Session) {
	s.mu.Lock()
	s.current = next
	out := next.clone()
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	s.metrics.IncSessionTransition(string(next.Kind))
	for _, fn := range listeners {
		fn(out)
	}
}

// snapshotListeners must be called with mu held.
func (s *Store) snapshotListeners() []func(Session) {
	out := make([]func(Session), 0, len(s.listeners))
	for _, fn := range s.listeners {
		out = append(out, fn)
	}
	return out
}
