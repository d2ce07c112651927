// Package config defines process configuration and its loading hooks.
package config

// Feed modes.
const (
	FeedModeResync = "resync"
	FeedModePatch  = "patch"
)

// Mail providers.
const (
	MailProviderLog   = "log"
	MailProviderSMTP  = "smtp"
	MailProviderPlunk = "plunk"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the local HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DatabaseURL points at the Postgres instance backing the remote data service.
	// Empty means the process runs offline and only demo sessions work.
	DatabaseURL string `koanf:"database_url"`

	// JWTSecret signs session and password reset tokens.
	JWTSecret string `koanf:"jwt_secret"`

	// StatePath is the JSON file holding local persisted state (demo flag, auth token, filters).
	StatePath string `koanf:"state_path"`

	// RedisAddr is the asynq broker used for outgoing email. Empty disables email jobs.
	RedisAddr string `koanf:"redis_addr"`

	// AppURL is the public front-end base used in email links.
	AppURL string `koanf:"app_url"`

	// FeedMode selects full resync or differential patching on change events.
	FeedMode string `koanf:"feed_mode"`

	// PasswordResetMinutes bounds the lifetime of password reset links.
	PasswordResetMinutes int `koanf:"password_reset_minutes"`

	// MailProvider selects how email jobs are delivered: log, smtp or plunk.
	MailProvider string `koanf:"mail_provider"`

	SMTPHost     string `koanf:"smtp_host"`
	SMTPPort     string `koanf:"smtp_port"`
	SMTPUsername string `koanf:"smtp_username"`
	SMTPPassword string `koanf:"smtp_password"`
	SMTPFrom     string `koanf:"smtp_from"`

	PlunkAPIKey string `koanf:"plunk_api_key"`
	PlunkFrom   string `koanf:"plunk_from"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":8080",
		StatePath:            ".lanceo/state.json",
		AppURL:               "http://localhost:3000",
		FeedMode:             FeedModeResync,
		PasswordResetMinutes: 30,
		MailProvider:         MailProviderLog,
	}
}
