package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/sudo-init-do/lanceo/internal/alerts"
	"github.com/sudo-init-do/lanceo/internal/backend"
	"github.com/sudo-init-do/lanceo/internal/cache"
	"github.com/sudo-init-do/lanceo/internal/localstate"
	"github.com/sudo-init-do/lanceo/internal/marketplace"
	"github.com/sudo-init-do/lanceo/internal/messaging"
	"github.com/sudo-init-do/lanceo/internal/remote"
	"github.com/sudo-init-do/lanceo/internal/remote/remotetest"
	"github.com/sudo-init-do/lanceo/internal/session"
	"github.com/sudo-init-do/lanceo/pkg/metrics"
)

type fixture struct {
	fake     *remotetest.Fake
	sessions *session.Store
	cache    *cache.Cache
	server   *Server
}

func newFixture(opts ...Option) *fixture {
	ctx := context.Background()
	fake := remotetest.New()
	fake.Seed(remote.TableProfiles,
		remote.Row{"id": "f1", "name": "Aminata Diop", "type": "freelance", "skills": []string{"Go", "Docker"}},
		remote.Row{"id": "u1", "name": "Kwame Mensah", "type": "client", "location": "Dakar, Senegal"},
	)
	fake.Seed(remote.TableProjects,
		remote.Row{"id": "p1", "title": "Shopify migration", "description": "Move a store", "budget_min": 1500.0, "budget_max": 3000.0, "created_at": time.Now().Add(-2 * time.Hour)},
		remote.Row{"id": "p2", "title": "Telegram bot", "description": "Trading alerts", "budget_min": 800.0, "budget_max": 1500.0, "created_at": time.Now().Add(-time.Hour)},
	)
	fake.AddAccount("kwame@example.com", "secret123", remote.AuthUser{ID: "u1", Metadata: map[string]any{"name": "Kwame Mensah", "type": "client"}})

	flags := localstate.NewMemory()
	sessions := session.New(fake, fake, flags)
	c := cache.New(fake, sessions, cache.WithFilterStore(flags))
	sessions.SubscribeToAuthChanges(c.HandleSession)
	sessions.Establish(ctx)
	_ = c.LoadAll(ctx)

	return &fixture{fake: fake, sessions: sessions, cache: c, server: New(sessions, c, opts...)}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(rec *httptest.ResponseRecorder, v any) {
	So(json.Unmarshal(rec.Body.Bytes(), v), ShouldBeNil)
}

const proposal = "I have shipped three Shopify migrations this year."

func TestSessionRoutes(t *testing.T) {
	Convey("Given an anonymous server", t, func() {
		f := newFixture()
		Reset(f.server.Close)

		Convey("GET /session reports anonymous", func() {
			rec := f.do(http.MethodGet, "/session", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			var v sessionView
			decode(rec, &v)
			So(v.Kind, ShouldEqual, session.KindAnonymous)
			So(v.Identity, ShouldBeNil)
		})

		Convey("mutations require a session", func() {
			So(f.do(http.MethodPost, "/projects", `{"title":"x","description":"y"}`).Code, ShouldEqual, http.StatusUnauthorized)
			So(f.do(http.MethodGet, "/messages", "").Code, ShouldEqual, http.StatusUnauthorized)
			So(f.do(http.MethodPatch, "/profile", `{"tagline":"x"}`).Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("wrong credentials are rejected", func() {
			rec := f.do(http.MethodPost, "/auth/signin", `{"email":"kwame@example.com","password":"nope"}`)
			So(rec.Code, ShouldEqual, http.StatusUnauthorized)
			So(rec.Body.String(), ShouldContainSubstring, "invalid credentials")
		})

		Convey("malformed sign-in is a bad request", func() {
			So(f.do(http.MethodPost, "/auth/signin", `{"email":"not-an-email","password":"x"}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("signing in adopts the remote session", func() {
			rec := f.do(http.MethodPost, "/auth/signin", `{"email":"kwame@example.com","password":"secret123"}`)
			So(rec.Code, ShouldEqual, http.StatusOK)
			var v sessionView
			decode(rec, &v)
			So(v.Kind, ShouldEqual, session.KindAuthenticated)
			So(v.Identity.ID, ShouldEqual, "u1")
			So(v.Identity.Location, ShouldEqual, "Dakar, Senegal")

			Convey("and money is formatted for the identity's location", func() {
				rec := f.do(http.MethodGet, "/money?amount=500", "")
				So(rec.Body.String(), ShouldContainSubstring, "327 500 CFA")
			})

			Convey("and a client may not apply to listings", func() {
				rec := f.do(http.MethodPost, "/projects/p1/apply", `{"proposal":"`+proposal+`"}`)
				So(rec.Code, ShouldEqual, http.StatusForbidden)
			})

			Convey("and signing out returns to anonymous", func() {
				So(f.do(http.MethodPost, "/auth/signout", "").Code, ShouldEqual, http.StatusNoContent)
				So(f.sessions.Current().Kind, ShouldEqual, session.KindAnonymous)
			})
		})

		Convey("the demo credentials enter demo mode without the remote", func() {
			rec := f.do(http.MethodPost, "/auth/signin", `{"email":"demo@developpeurs.com","password":"demo123"}`)
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(f.sessions.Current().Kind, ShouldEqual, session.KindDemo)
			So(f.fake.Calls(remotetest.CallSignIn), ShouldEqual, 0)
		})

		Convey("sign-up validates its input", func() {
			rec := f.do(http.MethodPost, "/auth/signup", `{"email":"new@example.com","password":"123","name":"New"}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)

			rec = f.do(http.MethodPost, "/auth/signup", `{"email":"new@example.com","password":"123456","name":"New","role":"client"}`)
			So(rec.Code, ShouldEqual, http.StatusCreated)
			So(f.sessions.Current().Identity.Name, ShouldEqual, "New")
		})

		Convey("an existing email conflicts", func() {
			rec := f.do(http.MethodPost, "/auth/signup", `{"email":"kwame@example.com","password":"123456","name":"Kwame"}`)
			So(rec.Code, ShouldEqual, http.StatusConflict)
		})

		Convey("password reset requests never reveal accounts", func() {
			So(f.do(http.MethodPost, "/auth/password/request", `{"email":"nobody@example.com"}`).Code, ShouldEqual, http.StatusOK)
			So(f.do(http.MethodPost, "/auth/password/request", `{"email":"nope"}`).Code, ShouldEqual, http.StatusBadRequest)
			So(f.fake.Calls(remotetest.CallResetPassword), ShouldEqual, 1)
		})

		Convey("password reset needs a resetter", func() {
			So(f.do(http.MethodPost, "/auth/password/reset", `{"token":"t","new_password":"secret123"}`).Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

type stubResetter struct{ err error }

func (s stubResetter) ResetPassword(context.Context, string, string) error { return s.err }

func TestPasswordReset(t *testing.T) {
	Convey("Given a server with a resetter", t, func() {
		Convey("a valid token updates the password", func() {
			f := newFixture(WithPasswordResetter(stubResetter{}))
			defer f.server.Close()
			So(f.do(http.MethodPost, "/auth/password/reset", `{"token":"t","new_password":"secret123"}`).Code, ShouldEqual, http.StatusOK)
			So(f.do(http.MethodPost, "/auth/password/reset", `{"token":"t","new_password":"123"}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("an expired token is unauthorized", func() {
			f := newFixture(WithPasswordResetter(stubResetter{err: backend.ErrInvalidToken}))
			defer f.server.Close()
			So(f.do(http.MethodPost, "/auth/password/reset", `{"token":"t","new_password":"secret123"}`).Code, ShouldEqual, http.StatusUnauthorized)
		})
	})
}

func TestMarketplaceRoutes(t *testing.T) {
	Convey("Given a demo session", t, func() {
		f := newFixture()
		Reset(f.server.Close)
		So(f.do(http.MethodPost, "/auth/demo", "").Code, ShouldEqual, http.StatusOK)

		Convey("listings are served newest first", func() {
			var ls []marketplace.Listing
			decode(f.do(http.MethodGet, "/projects", ""), &ls)
			So(ls, ShouldHaveLength, 2)
			So(ls[0].ID, ShouldEqual, "p2")
		})

		Convey("query filters narrow listings", func() {
			var ls []marketplace.Listing
			decode(f.do(http.MethodGet, "/projects?search=shopify", ""), &ls)
			So(ls, ShouldHaveLength, 1)
			So(ls[0].ID, ShouldEqual, "p1")
		})

		Convey("a saved filter applies when the query has none", func() {
			So(f.do(http.MethodPut, "/projects/filter", `{"search":"telegram","category":"","minBudget":0,"maxBudget":10000}`).Code, ShouldEqual, http.StatusOK)
			var ls []marketplace.Listing
			decode(f.do(http.MethodGet, "/projects", ""), &ls)
			So(ls, ShouldHaveLength, 1)
			So(ls[0].ID, ShouldEqual, "p2")
		})

		Convey("unknown listings are 404", func() {
			So(f.do(http.MethodGet, "/projects/missing", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("a demo listing stays local", func() {
			rec := f.do(http.MethodPost, "/projects", `{"title":"Landing page","description":"One page","budget":{"min":100,"max":300}}`)
			So(rec.Code, ShouldEqual, http.StatusCreated)
			var l marketplace.Listing
			decode(rec, &l)
			So(l.Sync, ShouldEqual, marketplace.SyncLocal)
			So(f.fake.Calls(remotetest.CallInsert), ShouldEqual, 0)
		})

		Convey("a draft without a title is rejected with its message", func() {
			rec := f.do(http.MethodPost, "/projects", `{"title":"  ","description":"One page"}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(rec.Body.String(), ShouldContainSubstring, "title is required")
		})

		Convey("applying opens a conversation", func() {
			rec := f.do(http.MethodPost, "/projects/p1/apply", `{"proposal":"`+proposal+`"}`)
			So(rec.Code, ShouldEqual, http.StatusCreated)
			var conv messaging.Conversation
			decode(rec, &conv)
			So(conv.Messages, ShouldHaveLength, 1)

			var list struct {
				Conversations []struct {
					messaging.Conversation
					LastMessage *messaging.Message `json:"last_message"`
				} `json:"conversations"`
				Unread int `json:"unread"`
			}
			decode(f.do(http.MethodGet, "/messages", ""), &list)
			So(list.Conversations[0].ID, ShouldEqual, conv.ID)
			So(list.Conversations[0].LastMessage, ShouldNotBeNil)
			So(list.Conversations[0].LastMessage.Text, ShouldEqual, conv.Messages[0].Text)

			Convey("and messages can be sent to it", func() {
				So(f.do(http.MethodPost, "/messages/"+conv.ID, `{"text":"Any deadline?"}`).Code, ShouldEqual, http.StatusCreated)
				So(f.do(http.MethodPost, "/messages/"+conv.ID, `{"text":"   "}`).Code, ShouldEqual, http.StatusBadRequest)
				got, _ := f.cache.Conversation(conv.ID)
				So(got.Messages, ShouldHaveLength, 2)
			})
		})

		Convey("a short proposal is rejected", func() {
			So(f.do(http.MethodPost, "/projects/p1/apply", `{"proposal":"too short"}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("follow toggles and shows up in my projects", func() {
			var res struct {
				Followed bool `json:"followed"`
			}
			decode(f.do(http.MethodPost, "/projects/p2/follow", ""), &res)
			So(res.Followed, ShouldBeTrue)
			var ls []marketplace.Listing
			decode(f.do(http.MethodGet, "/projects/mine", ""), &ls)
			So(ls, ShouldHaveLength, 1)
			So(ls[0].ID, ShouldEqual, "p2")
		})

		Convey("providers can be searched and fetched", func() {
			var ps []marketplace.ProviderProfile
			decode(f.do(http.MethodGet, "/freelancers?search=go", ""), &ps)
			So(ps, ShouldHaveLength, 1)
			So(f.do(http.MethodGet, "/freelancers/f1", "").Code, ShouldEqual, http.StatusOK)
			So(f.do(http.MethodGet, "/freelancers/u1", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("alerts are listed with their total", func() {
			var res struct {
				Notifications []alerts.Alert `json:"notifications"`
				Total         int            `json:"total"`
			}
			decode(f.do(http.MethodGet, "/notifications?limit=0", ""), &res)
			So(res.Total, ShouldEqual, 1)
			So(res.Notifications, ShouldHaveLength, 1)
			So(f.do(http.MethodGet, "/notifications?limit=x", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("the welcome alert can be marked read", func() {
			var res struct {
				Updated int `json:"updated"`
			}
			decode(f.do(http.MethodPost, "/notifications/read-all", ""), &res)
			So(res.Updated, ShouldEqual, 1)
			So(f.cache.UnreadAlerts(), ShouldEqual, 0)
			So(f.do(http.MethodPost, "/notifications/missing/read", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("the profile can be patched", func() {
			rec := f.do(http.MethodPatch, "/profile", `{"tagline":"Go and React"}`)
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(f.sessions.Current().Identity.Tagline, ShouldEqual, "Go and React")
		})
	})
}

func TestStatus(t *testing.T) {
	Convey("Errors map to status codes", t, func() {
		So(statusFor(remote.ErrOffline), ShouldEqual, http.StatusServiceUnavailable)
		So(statusFor(errors.New("connection reset")), ShouldEqual, http.StatusBadGateway)
		So(message(remote.ErrOffline), ShouldEqual, "service unavailable")
	})
}

func TestMetricsRoute(t *testing.T) {
	Convey("Requests are counted per route", t, func() {
		f := newFixture(WithMetrics(metrics.NewManager()))
		defer f.server.Close()
		So(f.do(http.MethodGet, "/health", "").Code, ShouldEqual, http.StatusOK)
		rec := f.do(http.MethodGet, "/metrics", "")
		So(rec.Code, ShouldEqual, http.StatusOK)
		So(rec.Body.String(), ShouldContainSubstring, `route="/health"`)
	})
}

func TestWebsocket(t *testing.T) {
	Convey("Given a connected websocket client", t, func() {
		f := newFixture()
		ts := httptest.NewServer(f.server.Handler())
		Reset(func() {
			f.server.Close()
			ts.Close()
		})

		conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
		So(err, ShouldBeNil)
		defer conn.Close()
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

		var first struct {
			Type string `json:"type"`
			Data struct {
				Session  sessionView           `json:"session"`
				Listings []marketplace.Listing `json:"projects"`
			} `json:"data"`
		}
		So(conn.ReadJSON(&first), ShouldBeNil)
		So(first.Type, ShouldEqual, EventSnapshot)
		So(first.Data.Session.Kind, ShouldEqual, session.KindAnonymous)
		So(first.Data.Listings, ShouldHaveLength, 2)

		Convey("state changes are pushed", func() {
			_, err := f.cache.ToggleFollow("p1")
			So(err, ShouldBeNil)

			var ev wsEvent
			So(conn.ReadJSON(&ev), ShouldBeNil)
			So(ev.Type, ShouldEqual, EventStateChanged)
		})
	})
}
