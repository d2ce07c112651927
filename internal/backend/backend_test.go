package backend

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/sudo-init-do/lanceo/internal/db"
	"github.com/sudo-init-do/lanceo/internal/localstate"
	"github.com/sudo-init-do/lanceo/internal/remote"
)

func TestBuildSelect(t *testing.T) {
	cases := []struct {
		name string
		q    remote.Query
		sql  string
		args []any
	}{
		{
			name: "all rows",
			q:    remote.Query{Table: remote.TableProjects},
			sql:  `SELECT * FROM "projects"`,
		},
		{
			name: "filtered and ordered",
			q: remote.Query{
				Table:      remote.TableProjects,
				Filters:    []remote.Filter{remote.Eq("status", "open"), remote.Eq("owner_id", "u1")},
				OrderBy:    "created_at",
				Descending: true,
			},
			sql:  `SELECT * FROM "projects" WHERE "status" = $1 AND "owner_id" = $2 ORDER BY "created_at" DESC`,
			args: []any{"open", "u1"},
		},
		{
			name: "null filter",
			q:    remote.Query{Table: remote.TableProfiles, Filters: []remote.Filter{remote.Eq("location", nil), remote.Eq("type", "freelance")}},
			sql:  `SELECT * FROM "profiles" WHERE "location" IS NULL AND "type" = $1`,
			args: []any{"freelance"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sql, args, err := buildSelect(tc.q)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if sql != tc.sql {
				t.Errorf("sql = %s, want %s", sql, tc.sql)
			}
			if !reflect.DeepEqual(args, tc.args) {
				t.Errorf("args = %v, want %v", args, tc.args)
			}
		})
	}

	if _, _, err := buildSelect(remote.Query{Table: "auth_users"}); !errors.Is(err, ErrUnknownTable) {
		t.Errorf("auth_users must not be selectable, got %v", err)
	}
	if _, _, err := buildSelect(remote.Query{Table: remote.TableProjects, OrderBy: "title; DROP TABLE projects"}); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("unexpected order column accepted, got %v", err)
	}
}

func TestBuildInsert(t *testing.T) {
	sql, args, err := buildInsert(remote.TableProposals, remote.Row{
		"project_id":    "p1",
		"freelancer_id": "u1",
		"content":       "I can do it",
		"status":        "pending",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `INSERT INTO "proposals" ("content", "freelancer_id", "project_id", "status") VALUES ($1, $2, $3, $4) RETURNING *`
	if sql != want {
		t.Errorf("sql = %s", sql)
	}
	if !reflect.DeepEqual(args, []any{"I can do it", "u1", "p1", "pending"}) {
		t.Errorf("args = %v", args)
	}

	sql, _, err = buildInsert(remote.TableMessages, nil)
	if err != nil || sql != `INSERT INTO "messages" DEFAULT VALUES RETURNING *` {
		t.Errorf("empty insert = %q, %v", sql, err)
	}
	if _, _, err := buildInsert(remote.TableProjects, remote.Row{"password": "x"}); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("unknown column accepted, got %v", err)
	}
}

func TestBuildUpdate(t *testing.T) {
	sql, args, err := buildUpdate(remote.TableProfiles, remote.Row{"tagline": "Go", "hourly_rate": 40.0}, []remote.Filter{remote.Eq("id", "u1")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sql != `UPDATE "profiles" SET "hourly_rate" = $1, "tagline" = $2 WHERE "id" = $3` {
		t.Errorf("sql = %s", sql)
	}
	if !reflect.DeepEqual(args, []any{40.0, "Go", "u1"}) {
		t.Errorf("args = %v", args)
	}
	if _, _, err := buildUpdate(remote.TableProfiles, remote.Row{"tagline": "Go"}, nil); !errors.Is(err, ErrNoFilter) {
		t.Errorf("unfiltered update accepted, got %v", err)
	}
	if _, _, err := buildUpdate("wallets", remote.Row{"balance": 1}, []remote.Filter{remote.Eq("id", "x")}); !errors.Is(err, ErrUnknownTable) {
		t.Errorf("unknown table accepted, got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	id := uuid.MustParse("6f1c8b9e-2d4a-4c3b-9a57-0e1f2a3b4c5d")
	if got := normalize([16]byte(id)); got != id.String() {
		t.Errorf("uuid = %v", got)
	}

	var n pgtype.Numeric
	if err := n.Scan("1250.5"); err != nil {
		t.Fatalf("scan numeric: %v", err)
	}
	if got := normalize(n); got != 1250.5 {
		t.Errorf("numeric = %v", got)
	}
	if got := normalize(pgtype.Numeric{}); got != nil {
		t.Errorf("null numeric = %v", got)
	}

	got := normalize([]any{"go", "react"})
	if !reflect.DeepEqual(got, []any{"go", "react"}) {
		t.Errorf("array = %v", got)
	}

	row := toRow(map[string]any{"id": [16]byte(id), "offers_count": int32(3)})
	if row.String("id") != id.String() {
		t.Errorf("row id = %v", row["id"])
	}
	if n, _ := row.Int("offers_count"); n != 3 {
		t.Errorf("offers_count = %d", n)
	}
}

func newTestService(now *time.Time) (*Service, *localstate.Memory) {
	store := localstate.NewMemory()
	s := New(nil, "test-secret", store, WithClock(func() time.Time { return *now }))
	return s, store
}

func TestTokens(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s, _ := newTestService(&now)

	tok, exp, err := s.issueToken("u1", PurposeSession, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !exp.Equal(now.Add(time.Hour)) {
		t.Errorf("exp = %v", exp)
	}

	id, gotExp, err := s.parseToken(tok, PurposeSession)
	if err != nil || id != "u1" || !gotExp.Equal(exp) {
		t.Fatalf("parse = %q %v %v", id, gotExp, err)
	}

	if _, _, err := s.parseToken(tok, PurposePasswordReset); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("session token accepted as reset token: %v", err)
	}

	other := New(nil, "another-secret", localstate.NewMemory(), WithClock(func() time.Time { return now }))
	if _, _, err := other.parseToken(tok, PurposeSession); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("token accepted under another secret: %v", err)
	}

	now = now.Add(2 * time.Hour)
	if _, _, err := s.parseToken(tok, PurposeSession); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token accepted: %v", err)
	}

	if _, _, err := s.parseToken("not-a-token", PurposeSession); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage accepted: %v", err)
	}
}

func TestService(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service without a database", t, func() {
		now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		s, store := newTestService(&now)

		var events []remote.AuthEvent
		sub := s.OnAuthStateChange(func(ev remote.AuthEvent) { events = append(events, ev) })

		Convey("GetSession without a stored token is empty", func() {
			sess, err := s.GetSession(ctx)
			So(err, ShouldBeNil)
			So(sess, ShouldBeNil)
		})

		Convey("an expired stored token is forgotten", func() {
			tok, _, err := s.issueToken("u1", PurposeSession, time.Minute)
			So(err, ShouldBeNil)
			So(store.Set(localstate.KeyAuthToken, tok), ShouldBeNil)
			now = now.Add(time.Hour)

			sess, err := s.GetSession(ctx)
			So(err, ShouldBeNil)
			So(sess, ShouldBeNil)
			_, ok := store.Get(localstate.KeyAuthToken)
			So(ok, ShouldBeFalse)
		})

		Convey("SignOut removes the token and notifies listeners", func() {
			So(store.Set(localstate.KeyAuthToken, "t"), ShouldBeNil)
			So(s.SignOut(ctx), ShouldBeNil)
			_, ok := store.Get(localstate.KeyAuthToken)
			So(ok, ShouldBeFalse)
			So(events, ShouldHaveLength, 1)
			So(events[0].Kind, ShouldEqual, remote.AuthSignedOut)

			Convey("closed listeners hear nothing", func() {
				So(sub.Close(), ShouldBeNil)
				So(s.SignOut(ctx), ShouldBeNil)
				So(events, ShouldHaveLength, 1)
			})
		})

		Convey("short passwords are rejected before any query", func() {
			_, err := s.SignUp(ctx, "a@b.co", "123", nil)
			So(errors.Is(err, ErrWeakPassword), ShouldBeTrue)
			So(errors.Is(s.ResetPassword(ctx, "tok", "123"), ErrWeakPassword), ShouldBeTrue)
		})

		Convey("ResetPassword rejects a session token", func() {
			tok, _, err := s.issueToken("u1", PurposeSession, time.Hour)
			So(err, ShouldBeNil)
			So(errors.Is(s.ResetPassword(ctx, tok, "secret123"), ErrInvalidToken), ShouldBeTrue)
		})

		Convey("change notifications reach matching subscriptions only", func() {
			var projects, profiles []remote.ChangeEvent
			_, err := s.Subscribe(ctx, "db-sync", []remote.Binding{{Table: remote.TableProjects, Event: remote.EventAll}},
				func(ev remote.ChangeEvent) { projects = append(projects, ev) })
			So(err, ShouldBeNil)
			profSub, err := s.Subscribe(ctx, "db-sync", []remote.Binding{{Table: remote.TableProfiles, Event: remote.EventUpdate}},
				func(ev remote.ChangeEvent) { profiles = append(profiles, ev) })
			So(err, ShouldBeNil)

			s.dispatchChange(db.Change{Table: "projects", Type: "INSERT", Record: map[string]any{"id": "p1"}})
			s.dispatchChange(db.Change{Table: "profiles", Type: "INSERT", Record: map[string]any{"id": "u1"}})
			s.dispatchChange(db.Change{Table: "profiles", Type: "UPDATE", Record: map[string]any{"id": "u1"}, OldRecord: map[string]any{"id": "u1"}})

			So(projects, ShouldHaveLength, 1)
			So(projects[0].ID(), ShouldEqual, "p1")
			So(projects[0].Old, ShouldBeNil)
			So(profiles, ShouldHaveLength, 1)
			So(profiles[0].Type, ShouldEqual, remote.EventUpdate)

			So(profSub.Close(), ShouldBeNil)
			s.dispatchChange(db.Change{Table: "profiles", Type: "UPDATE", Record: map[string]any{"id": "u1"}})
			So(profiles, ShouldHaveLength, 1)
		})

		Reset(func() { s.Close() })
	})

	Convey("Offline fails every remote call but has no session", t, func() {
		var off Offline
		_, err := off.Select(ctx, remote.Query{Table: remote.TableProjects})
		So(errors.Is(err, remote.ErrOffline), ShouldBeTrue)
		_, err = off.Insert(ctx, remote.TableProjects, remote.Row{})
		So(errors.Is(err, remote.ErrOffline), ShouldBeTrue)
		So(errors.Is(off.Update(ctx, remote.TableProfiles, remote.Row{}), remote.ErrOffline), ShouldBeTrue)
		sess, err := off.GetSession(ctx)
		So(sess, ShouldBeNil)
		So(err, ShouldBeNil)
		So(off.SignOut(ctx), ShouldBeNil)
		sub, err := off.Subscribe(ctx, "db-sync", nil, nil)
		So(err, ShouldBeNil)
		So(sub.Close(), ShouldBeNil)
	})
}
