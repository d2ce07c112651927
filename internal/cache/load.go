package cache

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sudo-init-do/lanceo/internal/marketplace"
	"github.com/sudo-init-do/lanceo/internal/remote"
	"github.com/sudo-init-do/lanceo/internal/user"
	"github.com/sudo-init-do/lanceo/pkg/logger"
)

// LoadAll refetches providers and listings in parallel and swaps them in.
// On failure the previous contents are kept. Overlapping calls are not
// deduplicated; the last one to resolve wins. Optimistic listings still in
// flight stay on top, and follow flags carry over.
func (c *Cache) LoadAll(ctx context.Context) error {
	c.mu.Lock()
	c.loads++
	c.bumpLocked()
	c.mu.Unlock()
	c.notify()

	start := time.Now()
	var profileRows, projectRows []remote.Row
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := c.tables.Select(gctx, remote.Query{
			Table:   remote.TableProfiles,
			Filters: []remote.Filter{remote.Eq("type", user.TypeFreelance)},
		})
		if err != nil {
			return fmt.Errorf("select profiles: %w", err)
		}
		profileRows = rows
		return nil
	})
	g.Go(func() error {
		rows, err := c.tables.Select(gctx, remote.Query{
			Table:      remote.TableProjects,
			OrderBy:    "created_at",
			Descending: true,
		})
		if err != nil {
			return fmt.Errorf("select projects: %w", err)
		}
		projectRows = rows
		return nil
	})
	err := g.Wait()
	c.metrics.ObserveCacheLoad(time.Since(start), err)

	if err != nil {
		c.log.Error(ctx, "load all failed", logger.Error(err))
		c.mu.Lock()
		c.loads--
		c.bumpLocked()
		c.mu.Unlock()
		c.notify()
		return err
	}

	now := c.now()
	providers := make([]marketplace.ProviderProfile, 0, len(profileRows))
	for _, r := range profileRows {
		providers = append(providers, marketplace.ProviderFromRow(r))
	}
	fetched := make([]marketplace.Listing, 0, len(projectRows))
	for _, r := range projectRows {
		fetched = append(fetched, marketplace.ListingFromRow(r, now))
	}

	c.mu.Lock()
	seen := make(map[string]bool, len(fetched))
	for i := range fetched {
		seen[fetched[i].ID] = true
		fetched[i].Followed = c.follows[fetched[i].ID]
	}
	listings := make([]marketplace.Listing, 0, len(fetched)+1)
	for _, l := range c.listings {
		if l.Sync != marketplace.SyncCommitted && !seen[l.ID] {
			listings = append(listings, l)
		}
	}
	c.listings = append(listings, fetched...)
	c.providers = providers
	c.loads--
	c.bumpLocked()
	nl, np := len(c.listings), len(c.providers)
	c.mu.Unlock()

	c.metrics.SetCacheSizes(nl, np)
	c.log.Debug(ctx, "cache loaded", logger.Int("listings", nl), logger.Int("providers", np))
	c.notify()
	return nil
}

// ApplyChange patches the cache from a change event carrying a row payload.
// It reports false when the event cannot be applied locally and a full
// LoadAll is needed instead.
func (c *Cache) ApplyChange(ev remote.ChangeEvent) bool {
	id := ev.ID()
	if id == "" {
		return false
	}
	if ev.Type != remote.EventDelete && len(ev.New) == 0 {
		return false
	}

	switch ev.Table {
	case remote.TableProjects:
		c.mu.Lock()
		if ev.Type == remote.EventDelete {
			if i := c.listingIndex(id); i >= 0 {
				c.listings = append(c.listings[:i], c.listings[i+1:]...)
			}
			delete(c.follows, id)
		} else {
			l := marketplace.ListingFromRow(ev.New, c.now())
			l.Followed = c.follows[l.ID]
			c.upsertListingLocked(l)
		}
		c.bumpLocked()
		c.mu.Unlock()

	case remote.TableProfiles:
		c.mu.Lock()
		i := -1
		for j := range c.providers {
			if c.providers[j].ID == id {
				i = j
				break
			}
		}
		isProvider := ev.Type != remote.EventDelete && ev.New.String("type") == user.TypeFreelance
		switch {
		case !isProvider && i >= 0:
			c.providers = append(c.providers[:i], c.providers[i+1:]...)
		case isProvider && i >= 0:
			c.providers[i] = marketplace.ProviderFromRow(ev.New)
		case isProvider:
			c.providers = append(c.providers, marketplace.ProviderFromRow(ev.New))
		}
		c.bumpLocked()
		c.mu.Unlock()

	default:
		return false
	}

	c.notify()
	return true
}

// upsertListingLocked replaces the listing with the same id or inserts l
// among the committed listings, newest first. Must be called with mu held.
func (c *Cache) upsertListingLocked(l marketplace.Listing) {
	if i := c.listingIndex(l.ID); i >= 0 {
		c.listings[i] = l
		return
	}
	c.listings = append(c.listings, l)
	sort.SliceStable(c.listings, func(i, j int) bool {
		a, b := c.listings[i], c.listings[j]
		if (a.Sync == marketplace.SyncCommitted) != (b.Sync == marketplace.SyncCommitted) {
			return a.Sync != marketplace.SyncCommitted
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}
