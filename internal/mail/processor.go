package mail

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/sudo-init-do/lanceo/pkg/logger"
)

// Processor consumes email tasks from the broker and hands them to a Sender.
type Processor struct {
	server *asynq.Server
	sender Sender
	log    logger.Logger
}

// NewProcessor builds a processor bound to the redis broker at redisAddr.
func NewProcessor(redisAddr string, sender Sender, log logger.Logger) *Processor {
	if log == nil {
		log = logger.Nop()
	}
	server := asynq.NewServer(asynq.RedisClientOpt{Addr: redisAddr}, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			QueueEmails: 10,
		},
	})
	return &Processor{server: server, sender: sender, log: log}
}

// Mux routes task types to their handlers.
func (p *Processor) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskWelcomeEmail, p.HandleWelcome)
	mux.HandleFunc(TaskPasswordReset, p.HandlePasswordReset)
	return mux
}

// Start runs the worker pool in the background.
func (p *Processor) Start() error {
	if err := p.server.Start(p.Mux()); err != nil {
		return fmt.Errorf("start email processor: %w", err)
	}
	p.log.Info(context.Background(), "email processor started")
	return nil
}

func (p *Processor) Shutdown() {
	p.server.Shutdown()
}

func (p *Processor) HandleWelcome(ctx context.Context, t *asynq.Task) error {
	var pl WelcomeEmailPayload
	if err := json.Unmarshal(t.Payload(), &pl); err != nil {
		return fmt.Errorf("decode welcome payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := p.sender.Send(ctx, pl.Email, pl.Envelope.Subject, pl.Envelope.Body); err != nil {
		p.log.Error(ctx, "welcome email send failed", logger.String("user_id", pl.UserID), logger.Error(err))
		return err
	}
	p.log.Info(ctx, "welcome email sent", logger.String("to", pl.Email), logger.String("user_id", pl.UserID))
	return nil
}

func (p *Processor) HandlePasswordReset(ctx context.Context, t *asynq.Task) error {
	var pl PasswordResetPayload
	if err := json.Unmarshal(t.Payload(), &pl); err != nil {
		return fmt.Errorf("decode password reset payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := p.sender.Send(ctx, pl.Email, pl.Envelope.Subject, pl.Envelope.Body); err != nil {
		p.log.Error(ctx, "password reset email send failed", logger.String("user_id", pl.UserID), logger.Error(err))
		return err
	}
	p.log.Info(ctx, "password reset email sent", logger.String("to", pl.Email))
	return nil
}
