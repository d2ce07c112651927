package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sudo-init-do/lanceo/internal/alerts"
	"github.com/sudo-init-do/lanceo/internal/marketplace"
	"github.com/sudo-init-do/lanceo/internal/messaging"
	"github.com/sudo-init-do/lanceo/internal/remote"
	"github.com/sudo-init-do/lanceo/internal/user"
	"github.com/sudo-init-do/lanceo/pkg/logger"
)

// LocalIDPrefix marks identifiers generated for optimistic listings.
const LocalIDPrefix = "local-"

// CreateListing publishes a draft. The listing is visible immediately as
// pending; on success it is replaced in place by the stored row, on failure
// it is removed and a warning alert is raised. Demo sessions keep it local.
func (c *Cache) CreateListing(ctx context.Context, d marketplace.Draft) (marketplace.Listing, error) {
	if err := marketplace.ValidateDraft(d); err != nil {
		return marketplace.Listing{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	sess := c.sessions.Current()
	if !sess.Active() {
		return marketplace.Listing{}, ErrNotSignedIn
	}

	d = d.Normalize()
	clientLabel := d.ClientLabel
	if clientLabel == "" {
		clientLabel = sess.Identity.Name
	}
	now := c.now()
	tmp := marketplace.Listing{
		ID:          LocalIDPrefix + uuid.NewString(),
		Title:       d.Title,
		Description: d.Description,
		Status:      marketplace.StatusOpen,
		Budget:      d.Budget,
		CreatedAt:   now,
		DateLabel:   marketplace.RelativeLabel(now, now),
		OwnerID:     sess.Identity.ID,
		ClientLabel: clientLabel,
		Skills:      d.Skills,
		Sync:        marketplace.SyncPending,
	}
	if sess.Offline() {
		tmp.Sync = marketplace.SyncLocal
	}

	c.mu.Lock()
	c.listings = append([]marketplace.Listing{tmp.Clone()}, c.listings...)
	if sess.Offline() {
		c.inbox.Push(alerts.New(alerts.SeveritySuccess, alerts.MsgListingPublished, now))
	}
	c.bumpLocked()
	c.mu.Unlock()
	c.metrics.IncOptimisticWrite("create_listing")
	c.notify()

	if sess.Offline() {
		return tmp, nil
	}

	row, err := c.tables.Insert(ctx, remote.TableProjects, d.Row(sess.Identity.ID, clientLabel))
	if err != nil {
		c.log.Warn(ctx, "listing insert failed, rolling back", logger.String("temp_id", tmp.ID), logger.Error(err))
		c.metrics.IncRemoteFailure("create_listing")
		c.metrics.IncRollback("create_listing")
		c.mu.Lock()
		if i := c.listingIndex(tmp.ID); i >= 0 {
			c.listings = append(c.listings[:i], c.listings[i+1:]...)
		}
		c.inbox.Push(alerts.New(alerts.SeverityWarning, alerts.MsgListingFailed, c.now()))
		c.bumpLocked()
		c.mu.Unlock()
		c.notify()
		return tmp, fmt.Errorf("create listing: %w", err)
	}

	stored := marketplace.ListingFromRow(row, c.now())
	c.mu.Lock()
	i := c.listingIndex(tmp.ID)
	if i >= 0 {
		stored.Followed = c.listings[i].Followed
		if stored.Followed {
			c.follows[stored.ID] = true
		}
	}
	switch j := c.listingIndex(stored.ID); {
	case i >= 0 && j >= 0:
		// A reload already brought the stored row in.
		c.listings = append(c.listings[:i], c.listings[i+1:]...)
	case i >= 0:
		c.listings[i] = stored
	case j < 0:
		c.listings = append([]marketplace.Listing{stored}, c.listings...)
	}
	c.inbox.Push(alerts.New(alerts.SeveritySuccess, alerts.MsgListingPublished, c.now()))
	c.bumpLocked()
	c.mu.Unlock()
	c.notify()
	return stored.Clone(), nil
}

// ApplyToListing submits a proposal. It opens a conversation seeded with the
// proposal and bumps the listing's offer count at once; the proposal row is
// written afterwards. A failed write reverts the offer count but keeps the
// conversation.
func (c *Cache) ApplyToListing(ctx context.Context, listingID, proposal string) (messaging.Conversation, error) {
	if err := marketplace.ValidateProposal(proposal); err != nil {
		return messaging.Conversation{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	sess := c.sessions.Current()
	if !sess.Active() {
		return messaging.Conversation{}, ErrNotSignedIn
	}

	c.mu.Lock()
	i := c.listingIndex(listingID)
	if i < 0 {
		c.mu.Unlock()
		return messaging.Conversation{}, fmt.Errorf("listing %s: %w", listingID, ErrNotFound)
	}
	c.listings[i].Offers++
	listing := c.listings[i].Clone()
	conv := messaging.NewFromProposal(listing, proposal, c.now())
	c.conversations = append([]messaging.Conversation{conv.Clone()}, c.conversations...)
	c.bumpLocked()
	c.mu.Unlock()
	c.metrics.IncOptimisticWrite("apply_to_listing")
	c.notify()

	if sess.Offline() || listing.Sync != marketplace.SyncCommitted {
		return conv, nil
	}

	_, err := c.tables.Insert(ctx, remote.TableProposals, remote.Row{
		"project_id":    listing.ID,
		"freelancer_id": sess.Identity.ID,
		"content":       strings.TrimSpace(proposal),
		"status":        "pending",
	})
	if err != nil {
		c.log.Warn(ctx, "proposal insert failed, reverting offer count", logger.String("listing_id", listing.ID), logger.Error(err))
		c.metrics.IncRemoteFailure("apply_to_listing")
		c.metrics.IncRollback("apply_to_listing")
		c.mu.Lock()
		if i := c.listingIndex(listing.ID); i >= 0 && c.listings[i].Offers > 0 {
			c.listings[i].Offers--
		}
		c.inbox.Push(alerts.New(alerts.SeverityWarning, alerts.MsgProposalFailed, c.now()))
		c.bumpLocked()
		c.mu.Unlock()
		c.notify()
		return conv, fmt.Errorf("apply to listing: %w", err)
	}

	c.mu.Lock()
	c.inbox.Push(alerts.New(alerts.SeveritySuccess, alerts.MsgProposalSent, c.now()))
	c.bumpLocked()
	c.mu.Unlock()
	c.notify()
	return conv, nil
}

// ToggleFollow flips the follow flag and returns its new value.
func (c *Cache) ToggleFollow(listingID string) (bool, error) {
	c.mu.Lock()
	i := c.listingIndex(listingID)
	if i < 0 {
		c.mu.Unlock()
		return false, fmt.Errorf("listing %s: %w", listingID, ErrNotFound)
	}
	followed := !c.listings[i].Followed
	c.listings[i].Followed = followed
	if followed {
		c.follows[listingID] = true
	} else {
		delete(c.follows, listingID)
	}
	c.bumpLocked()
	c.mu.Unlock()
	c.notify()
	return followed, nil
}

// UpdateIdentity applies p to the local identity at once, then writes the
// mapped columns to the identity's profiles row. On failure exactly the
// patched fields are reverted.
func (c *Cache) UpdateIdentity(ctx context.Context, p user.Patch) (user.Identity, error) {
	sess := c.sessions.Current()
	if !sess.Active() {
		return user.Identity{}, ErrNotSignedIn
	}
	if p.Empty() {
		return sess.Identity, nil
	}

	prev, err := c.sessions.ApplyPatch(p)
	if err != nil {
		return user.Identity{}, ErrNotSignedIn
	}
	c.metrics.IncOptimisticWrite("update_identity")
	next := prev.Clone()
	p.Apply(&next)

	if sess.Offline() {
		return next, nil
	}

	if err := c.tables.Update(ctx, remote.TableProfiles, p.Columns(), remote.Eq("id", sess.Identity.ID)); err != nil {
		c.log.Warn(ctx, "profile update failed, reverting", logger.String("user_id", sess.Identity.ID), logger.Error(err))
		c.metrics.IncRemoteFailure("update_identity")
		c.metrics.IncRollback("update_identity")
		if _, rerr := c.sessions.ApplyPatch(p.Inverse(prev)); rerr != nil {
			c.log.Warn(ctx, "profile revert skipped", logger.Error(rerr))
		}
		c.mu.Lock()
		c.inbox.Push(alerts.New(alerts.SeverityWarning, alerts.MsgProfileFailed, c.now()))
		c.bumpLocked()
		c.mu.Unlock()
		c.notify()
		return prev, fmt.Errorf("update identity: %w", err)
	}
	return next, nil
}

// SendMessage appends a message from the identity to a conversation.
func (c *Cache) SendMessage(conversationID, text string) (messaging.Message, error) {
	if strings.TrimSpace(text) == "" {
		return messaging.Message{}, ErrEmptyMessage
	}
	c.mu.Lock()
	i := c.conversationIndex(conversationID)
	if i < 0 {
		c.mu.Unlock()
		return messaging.Message{}, fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
	}
	m := c.conversations[i].Append(text, messaging.SenderSelf, c.now())
	c.conversations[i].Unread = false
	c.bumpLocked()
	c.mu.Unlock()
	c.notify()
	return m, nil
}

// MarkConversationRead clears a thread's unread flag.
func (c *Cache) MarkConversationRead(conversationID string) error {
	c.mu.Lock()
	i := c.conversationIndex(conversationID)
	if i < 0 {
		c.mu.Unlock()
		return fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
	}
	c.conversations[i].Unread = false
	c.bumpLocked()
	c.mu.Unlock()
	c.notify()
	return nil
}

func (c *Cache) MarkAlertRead(id string) error {
	c.mu.Lock()
	ok := c.inbox.MarkRead(id)
	if ok {
		c.bumpLocked()
	}
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	c.notify()
	return nil
}

// MarkAllAlertsRead returns how many alerts changed.
func (c *Cache) MarkAllAlertsRead() int {
	c.mu.Lock()
	n := c.inbox.MarkAllRead()
	if n > 0 {
		c.bumpLocked()
	}
	c.mu.Unlock()
	if n > 0 {
		c.notify()
	}
	return n
}
