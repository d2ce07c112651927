// Package session holds the single active identity of the process and keeps
// it in step with the remote auth state. Demo sessions are resolved once,
// here, and never reach the network.
package session

import (
	"time"

	"github.com/sudo-init-do/lanceo/internal/user"
)

// Kind discriminates the Session variants.
type Kind string

const (
	KindAnonymous     Kind = "anonymous"
	KindDemo          Kind = "demo"
	KindAuthenticated Kind = "authenticated"
)

// DemoToken is the synthetic token carried by demo sessions.
const DemoToken = "demo"

// Session is Anonymous, Demo(fixed identity) or Authenticated(remote token).
// Identity is the zero value for Anonymous.
type Session struct {
	Kind      Kind
	Identity  user.Identity
	Token     string
	ExpiresAt time.Time
}

// Anonymous is the signed-out session.
func Anonymous() Session { return Session{Kind: KindAnonymous} }

// Demo returns a fresh demo session.
func Demo() Session {
	return Session{Kind: KindDemo, Identity: user.Demo(), Token: DemoToken}
}

// Active reports whether an identity is present.
func (s Session) Active() bool { return s.Kind != KindAnonymous }

// Offline reports whether writes must stay local.
func (s Session) Offline() bool { return s.Kind == KindDemo }

func (s Session) clone() Session {
	s.Identity = s.Identity.Clone()
	return s
}
