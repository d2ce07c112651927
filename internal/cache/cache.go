// Package cache is the in-memory mirror of the remote listings and provider
// profiles, plus the client-only conversations and alerts. Every read and
// write the presentation layer performs goes through a Cache.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/sudo-init-do/lanceo/internal/alerts"
	"github.com/sudo-init-do/lanceo/internal/localstate"
	"github.com/sudo-init-do/lanceo/internal/marketplace"
	"github.com/sudo-init-do/lanceo/internal/messaging"
	"github.com/sudo-init-do/lanceo/internal/remote"
	"github.com/sudo-init-do/lanceo/internal/session"
	"github.com/sudo-init-do/lanceo/internal/user"
	"github.com/sudo-init-do/lanceo/pkg/logger"
	"github.com/sudo-init-do/lanceo/pkg/metrics"
)

// Sessions is the part of the session store the cache depends on.
type Sessions interface {
	Current() session.Session
	ApplyPatch(p user.Patch) (user.Identity, error)
}

// Cache is safe for concurrent use.
type Cache struct {
	tables   remote.Tables
	sessions Sessions

	log        logger.Logger
	metrics    *metrics.Manager
	now        func() time.Time
	filters    localstate.Store
	alertLimit int

	mu            sync.RWMutex
	listings      []marketplace.Listing
	providers     []marketplace.ProviderProfile
	conversations []messaging.Conversation
	inbox         *alerts.Inbox
	follows       map[string]bool
	loads         int
	version       uint64
	sessionKey    string

	watchMu  sync.Mutex
	watchers map[int]func(uint64)
	nextID   int
}

// New builds an empty cache. Call LoadAll to populate it.
func New(tables remote.Tables, sessions Sessions, opts ...Option) *Cache {
	c := &Cache{
		tables:     tables,
		sessions:   sessions,
		log:        logger.Nop(),
		now:        time.Now,
		alertLimit: alerts.DefaultLimit,
		follows:    make(map[string]bool),
		watchers:   make(map[int]func(uint64)),
	}
	for _, o := range opts {
		o(c)
	}
	c.inbox = alerts.NewInbox(c.alertLimit)
	return c
}

// Snapshot is a consistent copy of the cache contents.
type Snapshot struct {
	Version       uint64                        `json:"version"`
	Loading       bool                          `json:"loading"`
	Listings      []marketplace.Listing         `json:"projects"`
	Providers     []marketplace.ProviderProfile `json:"freelancers"`
	Conversations []messaging.Conversation      `json:"messages"`
	Alerts        []alerts.Alert                `json:"notifications"`
	UnreadAlerts  int                           `json:"unread_notifications"`
}

func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		Version:       c.version,
		Loading:       c.loads > 0,
		Listings:      cloneListings(c.listings),
		Providers:     cloneProviders(c.providers),
		Conversations: cloneConversations(c.conversations),
		Alerts:        c.inbox.List(),
		UnreadAlerts:  c.inbox.Unread(),
	}
}

// Version increases on every state change.
func (c *Cache) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Loading reports whether a LoadAll is in flight.
func (c *Cache) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loads > 0
}

func (c *Cache) Listings() []marketplace.Listing {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneListings(c.listings)
}

// Listing looks a listing up by id. A miss is a defined empty result.
func (c *Cache) Listing(id string) (marketplace.Listing, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.listingIndex(id); i >= 0 {
		return c.listings[i].Clone(), true
	}
	return marketplace.Listing{}, false
}

func (c *Cache) FilterListings(f marketplace.ListingFilter) []marketplace.Listing {
	return marketplace.FilterListings(c.Listings(), f)
}

// FollowedListings returns the listings the identity follows.
func (c *Cache) FollowedListings() []marketplace.Listing {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []marketplace.Listing
	for _, l := range c.listings {
		if l.Followed {
			out = append(out, l.Clone())
		}
	}
	return out
}

func (c *Cache) Providers() []marketplace.ProviderProfile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneProviders(c.providers)
}

func (c *Cache) Provider(id string) (marketplace.ProviderProfile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.providers {
		if p.ID == id {
			return p.Clone(), true
		}
	}
	return marketplace.ProviderProfile{}, false
}

func (c *Cache) FilterProviders(f marketplace.ProviderFilter) []marketplace.ProviderProfile {
	return marketplace.FilterProviders(c.Providers(), f)
}

func (c *Cache) Conversations() []messaging.Conversation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneConversations(c.conversations)
}

func (c *Cache) Conversation(id string) (messaging.Conversation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.conversationIndex(id); i >= 0 {
		return c.conversations[i].Clone(), true
	}
	return messaging.Conversation{}, false
}

// UnreadConversations counts threads with unread messages.
func (c *Cache) UnreadConversations() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, conv := range c.conversations {
		if conv.Unread {
			n++
		}
	}
	return n
}

func (c *Cache) Alerts() []alerts.Alert {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inbox.List()
}

// RecentAlerts returns at most limit alerts, newest first, and the number of
// alerts held. A limit of zero or less returns them all.
func (c *Cache) RecentAlerts(limit int) ([]alerts.Alert, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	list := c.inbox.List()
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, c.inbox.Len()
}

func (c *Cache) UnreadAlerts() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inbox.Unread()
}

// FormatMoney renders amount for the current identity's location.
func (c *Cache) FormatMoney(amount float64) string {
	return marketplace.FormatMoney(amount, c.sessions.Current().Identity.Location)
}

// ListingFilter returns the last saved listing filter, or the default one.
func (c *Cache) ListingFilter() marketplace.ListingFilter {
	f := marketplace.DefaultListingFilter()
	if c.filters == nil {
		return f
	}
	if _, err := localstate.GetJSON(c.filters, localstate.KeyProjectFilters, &f); err != nil {
		c.log.Warn(context.Background(), "stored listing filter unreadable", logger.Error(err))
		return marketplace.DefaultListingFilter()
	}
	return f
}

// SaveListingFilter persists f for the next ListingFilter call.
func (c *Cache) SaveListingFilter(f marketplace.ListingFilter) error {
	if c.filters == nil {
		return nil
	}
	return localstate.SetJSON(c.filters, localstate.KeyProjectFilters, f)
}

// Watch registers fn for state changes. fn receives the new version and must
// not call back into a mutation of the cache.
func (c *Cache) Watch(fn func(version uint64)) remote.Subscription {
	c.watchMu.Lock()
	c.nextID++
	id := c.nextID
	c.watchers[id] = fn
	c.watchMu.Unlock()

	return remote.SubscriptionFunc(func() error {
		c.watchMu.Lock()
		delete(c.watchers, id)
		c.watchMu.Unlock()
		return nil
	})
}

// HandleSession reacts to session transitions: a new identity starts with
// fresh conversations and alerts, and a welcome alert. Edits of the same
// identity only bump the version.
func (c *Cache) HandleSession(s session.Session) {
	key := string(s.Kind) + ":" + s.Identity.ID
	c.mu.Lock()
	if key != c.sessionKey {
		c.sessionKey = key
		c.conversations = nil
		c.inbox.Reset()
		if s.Kind == session.KindDemo {
			c.conversations = messaging.DemoThreads()
		}
		if s.Active() {
			c.inbox.Push(alerts.New(alerts.SeverityInfo, alerts.MsgWelcome, c.now()))
		}
	}
	c.bumpLocked()
	c.mu.Unlock()
	c.notify()
}

// bumpLocked must be called with mu held.
func (c *Cache) bumpLocked() {
	c.version++
}

func (c *Cache) notify() {
	v := c.Version()
	c.watchMu.Lock()
	fns := make([]func(uint64), 0, len(c.watchers))
	for _, fn := range c.watchers {
		fns = append(fns, fn)
	}
	c.watchMu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}

func (c *Cache) listingIndex(id string) int {
	for i := range c.listings {
		if c.listings[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Cache) conversationIndex(id string) int {
	for i := range c.conversations {
		if c.conversations[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneListings(in []marketplace.Listing) []marketplace.Listing {
	out := make([]marketplace.Listing, len(in))
	for i, l := range in {
		out[i] = l.Clone()
	}
	return out
}

func cloneProviders(in []marketplace.ProviderProfile) []marketplace.ProviderProfile {
	out := make([]marketplace.ProviderProfile, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}

func cloneConversations(in []messaging.Conversation) []messaging.Conversation {
	out := make([]messaging.Conversation, len(in))
	for i, conv := range in {
		out[i] = conv.Clone()
	}
	return out
}
