// Package backend implements remote.Service on top of Postgres: table access
// through pgx, password auth with bcrypt and JWT session tokens, and a change
// feed fed by LISTEN/NOTIFY.
package backend

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudo-init-do/lanceo/internal/localstate"
	"github.com/sudo-init-do/lanceo/internal/remote"
	"github.com/sudo-init-do/lanceo/pkg/logger"
)

// Mailer queues the transactional emails the auth flows send.
type Mailer interface {
	EnqueueWelcome(ctx context.Context, userID, email, name string) error
	EnqueuePasswordReset(ctx context.Context, userID, email, name, token string) error
}

// Service is safe for concurrent use.
type Service struct {
	pool   *pgxpool.Pool
	secret []byte
	tokens localstate.Store

	log        logger.Logger
	mailer     Mailer
	now        func() time.Time
	sessionTTL time.Duration
	resetTTL   time.Duration
	retryDelay time.Duration

	authMu        sync.Mutex
	authListeners map[int]func(remote.AuthEvent)
	nextListener  int

	rtMu       sync.Mutex
	subs       map[int]*subscription
	nextSub    int
	stopListen context.CancelFunc
	listenDone chan struct{}
}

var _ remote.Service = (*Service)(nil)

// New builds a Service. tokens keeps the session token between restarts.
func New(pool *pgxpool.Pool, secret string, tokens localstate.Store, opts ...Option) *Service {
	s := &Service{
		pool:          pool,
		secret:        []byte(secret),
		tokens:        tokens,
		log:           logger.Nop(),
		now:           time.Now,
		sessionTTL:    72 * time.Hour,
		resetTTL:      30 * time.Minute,
		retryDelay:    2 * time.Second,
		authListeners: make(map[int]func(remote.AuthEvent)),
		subs:          make(map[int]*subscription),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Close stops the change feed connection. The pool is owned by the caller.
func (s *Service) Close() {
	s.rtMu.Lock()
	stop, done := s.stopListen, s.listenDone
	s.stopListen, s.listenDone = nil, nil
	s.rtMu.Unlock()
	if stop != nil {
		stop()
		<-done
	}
}
