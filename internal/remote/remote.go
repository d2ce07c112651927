// Package remote declares the contract of the hosted data service the sync
// core talks to: row-level table access, authentication, and a realtime
// change feed. Implementations live elsewhere (see internal/backend).
package remote

import (
	"context"
	"time"
)

// Table names known to the client.
const (
	TableProfiles  = "profiles"
	TableProjects  = "projects"
	TableProposals = "proposals"
	TableMessages  = "messages"
)

// Row is one record keyed by column name.
type Row map[string]any

// Filter is an equality predicate on a column.
type Filter struct {
	Column string
	Value  any
}

// Eq builds an equality filter.
func Eq(column string, value any) Filter { return Filter{Column: column, Value: value} }

// Query describes a filtered, optionally ordered read.
type Query struct {
	Table      string
	Filters    []Filter
	OrderBy    string
	Descending bool
}

// Tables is row-level CRUD against named tables.
type Tables interface {
	Select(ctx context.Context, q Query) ([]Row, error)
	// Insert stores row and returns it as persisted, including server-assigned columns.
	Insert(ctx context.Context, table string, row Row) (Row, error)
	Update(ctx context.Context, table string, values Row, filters ...Filter) error
}

// AuthUser is the remote account behind a session.
type AuthUser struct {
	ID        string
	Email     string
	Metadata  map[string]any
	CreatedAt time.Time
}

// AuthSession is an issued session token and its user.
type AuthSession struct {
	AccessToken string
	ExpiresAt   time.Time
	User        AuthUser
}

// AuthEventKind enumerates auth state transitions.
type AuthEventKind string

const (
	AuthSignedIn    AuthEventKind = "SIGNED_IN"
	AuthSignedOut   AuthEventKind = "SIGNED_OUT"
	AuthUserUpdated AuthEventKind = "USER_UPDATED"
)

// AuthEvent is pushed to auth listeners. Session is nil after sign-out.
type AuthEvent struct {
	Kind    AuthEventKind
	Session *AuthSession
}

// Auth is the authentication sub-interface.
type Auth interface {
	// GetSession returns the current session, or nil without error when there is none.
	GetSession(ctx context.Context) (*AuthSession, error)
	SignInWithPassword(ctx context.Context, email, password string) (*AuthSession, error)
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*AuthSession, error)
	SignOut(ctx context.Context) error
	ResetPasswordForEmail(ctx context.Context, email string) error
	OnAuthStateChange(fn func(AuthEvent)) Subscription
}

// EventType is a change feed operation.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
	EventAll    EventType = "*"
)

// Binding selects the events a subscription receives.
type Binding struct {
	Table string
	Event EventType
}

// Matches reports whether ev is selected by b.
func (b Binding) Matches(ev ChangeEvent) bool {
	return b.Table == ev.Table && (b.Event == EventAll || b.Event == ev.Type)
}

// ChangeEvent is one row change. New is empty for deletes, Old may be empty
// depending on the table's replica identity.
type ChangeEvent struct {
	Table string
	Type  EventType
	New   Row
	Old   Row
}

// ID returns the changed row's identifier from whichever payload carries it.
func (ev ChangeEvent) ID() string {
	for _, r := range []Row{ev.New, ev.Old} {
		if v, ok := r["id"]; ok && v != nil {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

// Realtime is the channel-based subscription primitive.
type Realtime interface {
	Subscribe(ctx context.Context, channel string, bindings []Binding, handler func(ChangeEvent)) (Subscription, error)
}

// Subscription is released with Close. Close is idempotent.
type Subscription interface {
	Close() error
}

// Service is the full remote data service.
type Service interface {
	Tables
	Auth
	Realtime
}

// SubscriptionFunc adapts a function to Subscription.
type SubscriptionFunc func() error

// Close calls f.
func (f SubscriptionFunc) Close() error { return f() }
