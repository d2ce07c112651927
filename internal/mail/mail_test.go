package mail

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/sudo-init-do/lanceo/internal/config"
	"github.com/sudo-init-do/lanceo/pkg/logger"
)

type fakeQueue struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	err   error
}

func (q *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, task)
	q.opts = append(q.opts, opts)
	return &asynq.TaskInfo{ID: "t1", Type: task.Type(), Queue: QueueEmails}, nil
}

type sent struct{ to, subject, body string }

type fakeSender struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (s *fakeSender) Send(_ context.Context, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sent{to, subject, body})
	return nil
}

func TestClient(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	Convey("Given a client over a fake queue", t, func() {
		q := &fakeQueue{}
		c := NewClient(q, WithAppURL("https://lanceo.dev/"), WithResetMinutes(45), WithClock(func() time.Time { return now }))

		Convey("EnqueueWelcome schedules a welcome task", func() {
			So(c.EnqueueWelcome(ctx, "u1", "kwame@example.com", "Kwame"), ShouldBeNil)
			So(q.tasks, ShouldHaveLength, 1)
			So(q.tasks[0].Type(), ShouldEqual, TaskWelcomeEmail)

			var p WelcomeEmailPayload
			So(json.Unmarshal(q.tasks[0].Payload(), &p), ShouldBeNil)
			So(p.UserID, ShouldEqual, "u1")
			So(p.Envelope.To, ShouldEqual, "kwame@example.com")
			So(p.Envelope.Subject, ShouldEqual, "Welcome to Lanceo, Kwame!")
			So(p.Envelope.Body, ShouldContainSubstring, "https://lanceo.dev\n")
			So(p.SentAt.Equal(now), ShouldBeTrue)
		})

		Convey("EnqueuePasswordReset embeds the token in the link", func() {
			So(c.EnqueuePasswordReset(ctx, "u1", "kwame@example.com", "Kwame", "a.b+c"), ShouldBeNil)

			var p PasswordResetPayload
			So(json.Unmarshal(q.tasks[0].Payload(), &p), ShouldBeNil)
			So(q.tasks[0].Type(), ShouldEqual, TaskPasswordReset)
			So(p.ResetURL, ShouldEqual, "https://lanceo.dev/reset-password?token=a.b%2Bc")
			So(p.Envelope.Body, ShouldContainSubstring, "expires in 45 minutes")
		})

		Convey("broker failures are wrapped", func() {
			q.err = errors.New("redis down")
			err := c.EnqueueWelcome(ctx, "u1", "x@example.com", "X")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, TaskWelcomeEmail)
			So(errors.Is(err, q.err), ShouldBeTrue)
		})
	})
}

func TestProcessorHandlers(t *testing.T) {
	ctx := context.Background()

	Convey("Given a processor with a fake sender", t, func() {
		s := &fakeSender{}
		p := &Processor{sender: s, log: logger.Nop()}

		Convey("a welcome task is delivered", func() {
			b, _ := json.Marshal(WelcomeEmailPayload{UserID: "u1", Email: "a@b.c", Envelope: EmailEnvelope{To: "a@b.c", Subject: "Hi", Body: "Body"}})
			So(p.HandleWelcome(ctx, asynq.NewTask(TaskWelcomeEmail, b)), ShouldBeNil)
			So(s.sent, ShouldResemble, []sent{{"a@b.c", "Hi", "Body"}})
		})

		Convey("a malformed payload is not retried", func() {
			err := p.HandlePasswordReset(ctx, asynq.NewTask(TaskPasswordReset, []byte("{")))
			So(errors.Is(err, asynq.SkipRetry), ShouldBeTrue)
		})

		Convey("send failures are returned for retry", func() {
			s.err = errors.New("smtp down")
			b, _ := json.Marshal(PasswordResetPayload{Email: "a@b.c"})
			So(p.HandlePasswordReset(ctx, asynq.NewTask(TaskPasswordReset, b)), ShouldEqual, s.err)
		})
	})
}

func TestDirect(t *testing.T) {
	s := &fakeSender{}
	d := NewDirect(s, WithAppURL("http://localhost:3000"))
	if err := d.EnqueuePasswordReset(context.Background(), "u1", "a@b.c", "Ama", "tok"); err != nil {
		t.Fatal(err)
	}
	if len(s.sent) != 1 || !strings.Contains(s.sent[0].body, "http://localhost:3000/reset-password?token=tok") {
		t.Fatalf("unexpected delivery %+v", s.sent)
	}
}

func TestSMTPBuildMessage(t *testing.T) {
	s := SMTPSender{From: "no-reply@lanceo.dev", ReplyTo: "support@lanceo.dev"}

	plain := s.buildMessage("a@b.c", "Hello", "plain body")
	if !strings.Contains(plain, "Content-Type: text/plain") || !strings.Contains(plain, "Reply-To: support@lanceo.dev\r\n") {
		t.Fatalf("unexpected headers:\n%s", plain)
	}
	html := s.buildMessage("a@b.c", "Hello", "<html><body>hi</body></html>")
	if !strings.Contains(html, "Content-Type: text/html") {
		t.Fatalf("html body not detected:\n%s", html)
	}
	if err := (SMTPSender{}).Send(context.Background(), "a@b.c", "s", "b"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("unconfigured smtp: %v", err)
	}
}

func TestPlunkSender(t *testing.T) {
	var got plunkSendBody
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		if got.To == "bad@b.c" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, "invalid recipient")
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := PlunkSender{APIKey: "key", From: "hello@lanceo.dev", APIURL: srv.URL}
	if err := p.Send(context.Background(), "a@b.c", "Subject", "Body"); err != nil {
		t.Fatal(err)
	}
	if auth != "Bearer key" || got.Subject != "Subject" || got.From != "hello@lanceo.dev" {
		t.Fatalf("unexpected request auth=%q body=%+v", auth, got)
	}
	err := p.Send(context.Background(), "bad@b.c", "Subject", "Body")
	if err == nil || !strings.Contains(err.Error(), "invalid recipient") {
		t.Fatalf("expected plunk failure, got %v", err)
	}
}

func TestNewSender(t *testing.T) {
	cfg := config.New()
	if s, err := NewSender(cfg, logger.Nop()); err != nil {
		t.Fatal(err)
	} else if _, ok := s.(LogSender); !ok {
		t.Fatalf("default sender = %T", s)
	}

	cfg.MailProvider = config.MailProviderSMTP
	if _, err := NewSender(cfg, logger.Nop()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("smtp without credentials: %v", err)
	}

	cfg.MailProvider = config.MailProviderPlunk
	cfg.PlunkAPIKey = "k"
	if s, err := NewSender(cfg, logger.Nop()); err != nil {
		t.Fatal(err)
	} else if _, ok := s.(PlunkSender); !ok {
		t.Fatalf("plunk sender = %T", s)
	}

	cfg.MailProvider = "pigeon"
	if _, err := NewSender(cfg, logger.Nop()); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("unknown provider: %v", err)
	}
}
