package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "LANCEO_"

// plainEnv maps the unprefixed variable names of existing .env files onto
// config keys. PORT and the DB_* parts are handled separately.
var plainEnv = map[string]string{
	"DATABASE_URL":               "database_url",
	"JWT_SECRET":                 "jwt_secret",
	"REDIS_ADDR":                 "redis_addr",
	"APP_URL":                    "app_url",
	"MAIL_PROVIDER":              "mail_provider",
	"PASSWORD_RESET_EXP_MINUTES": "password_reset_minutes",
	"SMTP_HOST":                  "smtp_host",
	"SMTP_PORT":                  "smtp_port",
	"SMTP_USERNAME":              "smtp_username",
	"SMTP_PASSWORD":              "smtp_password",
	"SMTP_FROM":                  "smtp_from",
	"PLUNK_API_KEY":              "plunk_api_key",
	"PLUNK_FROM":                 "plunk_from",
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. .env in the working directory, merged into the process environment
//  3. file (YAML) if LANCEO_CONFIG is set
//  4. unprefixed env (DATABASE_URL, JWT_SECRET, PORT, DB_HOST ...)
//  5. env (prefix LANCEO_)
func Load(_ context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: .env: %v", ErrLoadConfig, err)
	}

	base := New()
	k := koanf.New(".")

	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	plainProvider := env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		if key == "PORT" && value != "" {
			return "addr", ":" + value
		}
		return plainEnv[key], value
	})
	if err := k.Load(plainProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	// LANCEO_DATABASE_URL -> database_url; keys stay flat to match koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = databaseURLFromParts()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// databaseURLFromParts assembles a Postgres URL from DB_HOST, DB_PORT,
// DB_USER, DB_PASSWORD and DB_NAME. Without DB_HOST it returns "".
func databaseURLFromParts() string {
	host := os.Getenv("DB_HOST")
	if host == "" {
		return ""
	}
	port := os.Getenv("DB_PORT")
	if port == "" {
		port = "5432"
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + os.Getenv("DB_NAME"),
	}
	if name := os.Getenv("DB_USER"); name != "" {
		u.User = url.UserPassword(name, os.Getenv("DB_PASSWORD"))
	}
	return u.String()
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.FeedMode {
	case FeedModeResync, FeedModePatch:
	default:
		return fmt.Errorf("%w: unknown feed_mode %q", ErrInvalidConfig, c.FeedMode)
	}
	switch c.MailProvider {
	case MailProviderLog, MailProviderSMTP, MailProviderPlunk:
	default:
		return fmt.Errorf("%w: unknown mail_provider %q", ErrInvalidConfig, c.MailProvider)
	}
	if c.DatabaseURL != "" && c.JWTSecret == "" {
		return fmt.Errorf("%w: jwt_secret is required with database_url", ErrInvalidConfig)
	}
	if c.PasswordResetMinutes <= 0 {
		return fmt.Errorf("%w: password_reset_minutes must be positive", ErrInvalidConfig)
	}
	return nil
}
