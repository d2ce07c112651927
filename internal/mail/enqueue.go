package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sudo-init-do/lanceo/pkg/logger"
)

// Enqueuer is the subset of *asynq.Client used to schedule tasks.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type composer struct {
	appURL       string
	resetMinutes int
	log          logger.Logger
	now          func() time.Time
}

func newComposer(opts []Option) composer {
	c := composer{
		appURL:       "http://localhost:3000",
		resetMinutes: 30,
		log:          logger.Nop(),
		now:          time.Now,
	}
	for _, o := range opts {
		o(&c)
	}
	c.appURL = strings.TrimRight(c.appURL, "/")
	return c
}

func (c composer) welcome(userID, email, name string) WelcomeEmailPayload {
	subject := fmt.Sprintf("Welcome to Lanceo, %s!", name)
	body := fmt.Sprintf("Hi %s, thanks for joining Lanceo.\n\nOpen Lanceo: %s\n\nIf the link doesn't work, copy and paste the URL above.", name, c.appURL)
	return WelcomeEmailPayload{
		UserID:   userID,
		Name:     name,
		Email:    email,
		Envelope: EmailEnvelope{To: email, Subject: subject, Body: body},
		SentAt:   c.now(),
	}
}

func (c composer) passwordReset(userID, email, name, token string) PasswordResetPayload {
	resetURL := c.appURL + "/reset-password?token=" + url.QueryEscape(token)
	body := fmt.Sprintf("Hello %s,\n\nWe received a request to reset your Lanceo password.\n\nTo proceed, open the link below:\n%s\n\nThis link expires in %d minutes. If you did not request this, no action is required.\n\nThe Lanceo team", name, resetURL, c.resetMinutes)
	return PasswordResetPayload{
		UserID:    userID,
		Email:     email,
		ResetURL:  resetURL,
		Envelope:  EmailEnvelope{To: email, Subject: "Password reset instructions", Body: body},
		Requested: c.now(),
	}
}

// Client schedules email tasks on the asynq broker.
type Client struct {
	composer
	q Enqueuer
}

// NewClient wraps an asynq enqueuer, usually asynq.NewClient(asynq.RedisClientOpt{Addr: addr}).
func NewClient(q Enqueuer, opts ...Option) *Client {
	return &Client{composer: newComposer(opts), q: q}
}

// EnqueueWelcome schedules a welcome email to a new account.
func (c *Client) EnqueueWelcome(ctx context.Context, userID, email, name string) error {
	return c.enqueue(ctx, TaskWelcomeEmail, c.welcome(userID, email, name))
}

// EnqueuePasswordReset schedules a password reset email carrying token.
func (c *Client) EnqueuePasswordReset(ctx context.Context, userID, email, name, token string) error {
	return c.enqueue(ctx, TaskPasswordReset, c.passwordReset(userID, email, name, token))
}

func (c *Client) enqueue(ctx context.Context, taskType string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", taskType, err)
	}
	info, err := c.q.EnqueueContext(ctx, asynq.NewTask(taskType, b), asynq.Queue(QueueEmails), asynq.MaxRetry(5))
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	c.log.Debug(ctx, "email task enqueued", logger.String("type", taskType), logger.String("task_id", info.ID))
	return nil
}

// Direct delivers emails synchronously through a Sender. It stands in for
// Client when no broker is configured.
type Direct struct {
	composer
	sender Sender
}

func NewDirect(s Sender, opts ...Option) *Direct {
	return &Direct{composer: newComposer(opts), sender: s}
}

func (d *Direct) EnqueueWelcome(ctx context.Context, userID, email, name string) error {
	p := d.welcome(userID, email, name)
	return d.sender.Send(ctx, p.Envelope.To, p.Envelope.Subject, p.Envelope.Body)
}

func (d *Direct) EnqueuePasswordReset(ctx context.Context, userID, email, name, token string) error {
	p := d.passwordReset(userID, email, name, token)
	return d.sender.Send(ctx, p.Envelope.To, p.Envelope.Subject, p.Envelope.Body)
}
