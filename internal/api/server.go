// Package api exposes the session store and entity cache to a local
// renderer over HTTP, and pushes state changes over a websocket.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sudo-init-do/lanceo/internal/cache"
	"github.com/sudo-init-do/lanceo/internal/marketplace"
	"github.com/sudo-init-do/lanceo/internal/remote"
	"github.com/sudo-init-do/lanceo/internal/session"
	"github.com/sudo-init-do/lanceo/internal/user"
	"github.com/sudo-init-do/lanceo/pkg/logger"
	"github.com/sudo-init-do/lanceo/pkg/metrics"
)

// PasswordResetter completes a password reset from an emailed token.
type PasswordResetter interface {
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// Server is the local HTTP surface.
type Server struct {
	e        *echo.Echo
	sessions *session.Store
	cache    *cache.Cache
	resetter PasswordResetter
	log      logger.Logger
	metrics  *metrics.Manager
	hub      *hub
	subs     []remote.Subscription
}

type requestValidator struct {
	v *validator.Validate
}

func (rv *requestValidator) Validate(i interface{}) error {
	return rv.v.Struct(i)
}

// New builds the server and subscribes the websocket hub to session and
// cache changes. Call Close to release those subscriptions.
func New(sessions *session.Store, c *cache.Cache, opts ...Option) *Server {
	s := &Server{
		sessions: sessions,
		cache:    c,
		log:      logger.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	s.hub = newHub(s.log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{v: marketplace.Validator()}
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(s.countRequests)
	s.e = e
	s.routes()

	s.subs = append(s.subs,
		c.Watch(func(v uint64) {
			s.hub.broadcast(wsEvent{Type: EventStateChanged, Data: echo.Map{"version": v}})
		}),
		sessions.SubscribeToAuthChanges(func(ss session.Session) {
			s.hub.broadcast(wsEvent{Type: EventSessionChanged, Data: viewSession(ss, false)})
		}),
	)
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.e }

// Start serves on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.log.Info(context.Background(), "http server listening", logger.String("addr", addr))
	if err := s.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and disconnects websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.closeAll()
	return s.e.Shutdown(ctx)
}

// Close releases the change subscriptions.
func (s *Server) Close() {
	for _, sub := range s.subs {
		_ = sub.Close()
	}
	s.subs = nil
	s.hub.closeAll()
}

func (s *Server) countRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		code := c.Response().Status
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
		}
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.IncHTTPRequest(route, strconv.Itoa(code))
		return err
	}
}

type sessionView struct {
	Kind      session.Kind   `json:"kind"`
	Identity  *user.Identity `json:"identity,omitempty"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
	Loading   bool           `json:"loading"`
}

func viewSession(ss session.Session, loading bool) sessionView {
	v := sessionView{Kind: ss.Kind, Loading: loading}
	if ss.Active() {
		id := ss.Identity
		v.Identity = &id
	}
	if !ss.ExpiresAt.IsZero() {
		exp := ss.ExpiresAt
		v.ExpiresAt = &exp
	}
	return v
}

type stateView struct {
	Session             sessionView `json:"session"`
	UnreadConversations int         `json:"unread_messages"`
	cache.Snapshot
}

func (s *Server) state() stateView {
	return stateView{
		Session:             viewSession(s.sessions.Current(), s.sessions.Loading()),
		UnreadConversations: s.cache.UnreadConversations(),
		Snapshot:            s.cache.Snapshot(),
	}
}
