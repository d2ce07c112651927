package feed

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/sudo-init-do/lanceo/internal/cache"
	"github.com/sudo-init-do/lanceo/internal/config"
	"github.com/sudo-init-do/lanceo/internal/localstate"
	"github.com/sudo-init-do/lanceo/internal/remote"
	"github.com/sudo-init-do/lanceo/internal/remote/remotetest"
	"github.com/sudo-init-do/lanceo/internal/session"
)

func setup(ctx context.Context, opts ...Option) (*remotetest.Fake, *session.Store, *cache.Cache, *Listener) {
	fake := remotetest.New()
	fake.Seed(remote.TableProfiles,
		remote.Row{"id": "u1", "name": "Kwame Mensah", "type": "freelance", "tagline": "Go developer"},
	)
	fake.Seed(remote.TableProjects,
		remote.Row{"id": "p1", "title": "Telegram bot", "created_at": time.Now().Add(-time.Hour)},
	)
	fake.SetSession(&remote.AuthSession{AccessToken: "t", User: remote.AuthUser{ID: "u1", Email: "kwame@example.com"}})

	sessions := session.New(fake, fake, localstate.NewMemory())
	sessions.Establish(ctx)
	c := cache.New(fake, sessions)
	return fake, sessions, c, New(fake, c, sessions, opts...)
}

func TestListener(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started listener in resync mode", t, func() {
		fake, sessions, c, l := setup(ctx)
		So(l.Start(ctx), ShouldBeNil)
		So(l.Running(), ShouldBeTrue)
		So(fake.Subscriptions(), ShouldEqual, 1)

		Convey("starting twice keeps one subscription", func() {
			So(l.Start(ctx), ShouldBeNil)
			So(fake.Calls(remotetest.CallSubscribe), ShouldEqual, 1)
		})

		Convey("every project event reloads the cache", func() {
			fake.Seed(remote.TableProjects, remote.Row{"id": "p2", "title": "Shopify", "created_at": time.Now()})
			selects := fake.Calls(remotetest.CallSelect)

			fake.Emit(remote.ChangeEvent{Table: remote.TableProjects, Type: remote.EventInsert, New: remote.Row{"id": "p2"}})

			So(fake.Calls(remotetest.CallSelect), ShouldEqual, selects+2)
			So(c.Listings(), ShouldHaveLength, 2)
			So(c.Listings()[0].ID, ShouldEqual, "p2")
		})

		Convey("a change to the identity's profile refreshes the session", func() {
			So(fake.Update(ctx, remote.TableProfiles, remote.Row{"tagline": "Rust developer"}, remote.Eq("id", "u1")), ShouldBeNil)

			fake.Emit(remote.ChangeEvent{Table: remote.TableProfiles, Type: remote.EventUpdate, New: remote.Row{"id": "u1"}})

			id, _ := sessions.Identity()
			So(id.Tagline, ShouldEqual, "Rust developer")
			So(fake.Calls(remotetest.CallGetSession), ShouldEqual, 2)
		})

		Convey("another profile's change leaves the session alone", func() {
			fake.Emit(remote.ChangeEvent{Table: remote.TableProfiles, Type: remote.EventUpdate, New: remote.Row{"id": "someone-else"}})
			So(fake.Calls(remotetest.CallGetSession), ShouldEqual, 1)
		})

		Convey("events for other tables are not delivered", func() {
			selects := fake.Calls(remotetest.CallSelect)
			fake.Emit(remote.ChangeEvent{Table: remote.TableMessages, Type: remote.EventInsert, New: remote.Row{"id": "m"}})
			So(fake.Calls(remotetest.CallSelect), ShouldEqual, selects)
		})

		Convey("Stop releases the subscription", func() {
			So(l.Stop(), ShouldBeNil)
			So(l.Running(), ShouldBeFalse)
			So(fake.Subscriptions(), ShouldEqual, 0)
			So(l.Stop(), ShouldBeNil)
		})
	})

	Convey("Given a listener in patch mode", t, func() {
		fake, _, c, l := setup(ctx, WithMode(config.FeedModePatch))
		So(c.LoadAll(ctx), ShouldBeNil)
		So(l.Start(ctx), ShouldBeNil)
		selects := fake.Calls(remotetest.CallSelect)

		Convey("events with a payload are applied without a reload", func() {
			fake.Emit(remote.ChangeEvent{
				Table: remote.TableProjects,
				Type:  remote.EventInsert,
				New:   remote.Row{"id": "p9", "title": "NFT marketplace", "created_at": time.Now()},
			})
			So(fake.Calls(remotetest.CallSelect), ShouldEqual, selects)
			So(c.Listings()[0].ID, ShouldEqual, "p9")
		})

		Convey("events without a payload fall back to a reload", func() {
			fake.Emit(remote.ChangeEvent{Table: remote.TableProjects, Type: remote.EventDelete})
			So(fake.Calls(remotetest.CallSelect), ShouldEqual, selects+2)
		})
	})
}
