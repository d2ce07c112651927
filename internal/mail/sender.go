package mail

import (
	"context"
	"fmt"

	"github.com/sudo-init-do/lanceo/internal/config"
	"github.com/sudo-init-do/lanceo/pkg/logger"
)

// Sender delivers a single email.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSender writes emails to the log instead of delivering them.
type LogSender struct {
	Log logger.Logger
}

func (s LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.Log.Info(ctx, "email", logger.String("to", to), logger.String("subject", subject), logger.String("body", body))
	return nil
}

// NewSender selects the sender named by cfg.MailProvider.
func NewSender(cfg *config.Config, log logger.Logger) (Sender, error) {
	switch cfg.MailProvider {
	case "", config.MailProviderLog:
		return LogSender{Log: log}, nil
	case config.MailProviderSMTP:
		s := SMTPSender{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}
		if !s.configured() {
			return nil, fmt.Errorf("smtp: set smtp_host, smtp_port, smtp_username, smtp_password and smtp_from: %w", ErrNotConfigured)
		}
		return s, nil
	case config.MailProviderPlunk:
		if cfg.PlunkAPIKey == "" {
			return nil, fmt.Errorf("plunk: set plunk_api_key: %w", ErrNotConfigured)
		}
		return PlunkSender{APIKey: cfg.PlunkAPIKey, From: cfg.PlunkFrom}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.MailProvider)
}
