package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sudo-init-do/lanceo/internal/api"
	"github.com/sudo-init-do/lanceo/internal/backend"
	"github.com/sudo-init-do/lanceo/internal/cache"
	"github.com/sudo-init-do/lanceo/internal/config"
	"github.com/sudo-init-do/lanceo/internal/db"
	"github.com/sudo-init-do/lanceo/internal/feed"
	"github.com/sudo-init-do/lanceo/internal/localstate"
	"github.com/sudo-init-do/lanceo/internal/mail"
	"github.com/sudo-init-do/lanceo/internal/remote"
	"github.com/sudo-init-do/lanceo/internal/session"
	"github.com/sudo-init-do/lanceo/pkg/logger"
	"github.com/sudo-init-do/lanceo/pkg/metrics"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> .env -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	m := metrics.NewManager()

	state, err := localstate.OpenFile(cfg.StatePath)
	if err != nil {
		log.Fatal(ctx, "failed to open local state", logger.String("path", cfg.StatePath), logger.Error(err))
	}

	// Outgoing email: queued through asynq when a broker is configured,
	// sent inline otherwise.
	sender, err := mail.NewSender(cfg, log.Named("mail"))
	if err != nil {
		log.Fatal(ctx, "failed to configure mail", logger.Error(err))
	}
	mailOpts := []mail.Option{
		mail.WithAppURL(cfg.AppURL),
		mail.WithResetMinutes(cfg.PasswordResetMinutes),
		mail.WithLogger(log.Named("mail")),
	}
	var mailer backend.Mailer = mail.NewDirect(sender, mailOpts...)
	if cfg.RedisAddr != "" {
		queue := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer queue.Close()
		mailer = mail.NewClient(queue, mailOpts...)

		proc := mail.NewProcessor(cfg.RedisAddr, sender, log.Named("mail"))
		if err := proc.Start(); err != nil {
			log.Fatal(ctx, "failed to start mail processor", logger.Error(err))
		}
		defer proc.Shutdown()
	}

	// Remote data service: Postgres when configured, offline otherwise.
	var svc remote.Service = backend.Offline{}
	var resetter api.PasswordResetter
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal(ctx, "failed to connect to database", logger.Error(err))
		}
		defer pool.Close()
		if err := db.Ensure(ctx, pool, log.Named("db")); err != nil {
			log.Fatal(ctx, "failed to ensure schema", logger.Error(err))
		}
		b := backend.New(pool, cfg.JWTSecret, state,
			backend.WithLogger(log.Named("backend")),
			backend.WithMailer(mailer),
			backend.WithResetTTL(time.Duration(cfg.PasswordResetMinutes)*time.Minute),
		)
		defer b.Close()
		svc, resetter = b, b
		log.Info(ctx, "connected to postgres")
	} else {
		log.Warn(ctx, "no database_url configured; running offline, only demo sessions work")
	}

	sessions := session.New(svc, svc, state,
		session.WithLogger(log.Named("session")),
		session.WithMetrics(m),
	)
	defer sessions.Close()

	entities := cache.New(svc, sessions,
		cache.WithLogger(log.Named("cache")),
		cache.WithMetrics(m),
		cache.WithFilterStore(state),
	)
	sessionSub := sessions.SubscribeToAuthChanges(entities.HandleSession)
	defer sessionSub.Close()

	sessions.Establish(ctx)
	if err := entities.LoadAll(ctx); err != nil {
		log.Warn(ctx, "initial load failed", logger.Error(err))
	}

	listener := feed.New(svc, entities, sessions,
		feed.WithMode(cfg.FeedMode),
		feed.WithLogger(log.Named("feed")),
		feed.WithMetrics(m),
	)
	if err := listener.Start(ctx); err != nil {
		log.Error(ctx, "change feed not started", logger.Error(err))
	}
	defer listener.Stop()

	opts := []api.Option{api.WithLogger(log.Named("api")), api.WithMetrics(m)}
	if resetter != nil {
		opts = append(opts, api.WithPasswordResetter(resetter))
	}
	srv := api.New(sessions, entities, opts...)
	defer srv.Close()

	go func() {
		if err := srv.Start(cfg.Addr); err != nil {
			log.Error(ctx, "http server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
}
