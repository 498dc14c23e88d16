// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads the membership service configuration from defaults,
// a YAML file, command-line flags and a few environment variables, in that
// order of precedence (later wins).
package config

import (
	"net/url"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/membership/internal/logging"
	"github.com/holomush/membership/internal/membership"
)

// Environment variables that override file and flag values when set.
const (
	EnvDatabaseURL = "DATABASE_URL"
	EnvSalt        = "MEMBERSHIP_SALT"
)

// Config is the full service configuration.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	HTTP     HTTPConfig     `koanf:"http"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Log      LogConfig      `koanf:"log"`
	Security SecurityConfig `koanf:"security"`
	Mail     MailConfig     `koanf:"mail"`
	Facebook FacebookConfig `koanf:"facebook"`
}

// DatabaseConfig locates PostgreSQL.
type DatabaseConfig struct {
	URL             string `koanf:"url" jsonschema:"description=PostgreSQL URL; DATABASE_URL overrides"`
	MaxConns        int32  `koanf:"max_conns" jsonschema:"minimum=0"`
	ConnectAttempts uint64 `koanf:"connect_attempts" jsonschema:"minimum=1"`
	// InMemory swaps PostgreSQL for process-local storage.
	InMemory bool `koanf:"in_memory"`
}

// HTTPConfig configures the public JSON API.
type HTTPConfig struct {
	Addr string `koanf:"addr" jsonschema:"description=host:port of the JSON API"`
}

// MetricsConfig configures the metrics and health endpoint. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig selects the log output.
type LogConfig struct {
	Format string `koanf:"format" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// SecurityConfig holds the credential and lockout settings.
type SecurityConfig struct {
	// Salt is the process-wide pepper mixed into every password hash.
	Salt              string        `koanf:"salt" jsonschema:"minLength=8,description=password pepper; MEMBERSHIP_SALT overrides"`
	MaxFailedAttempts int           `koanf:"max_failed_attempts" jsonschema:"minimum=1"`
	SessionTTL        time.Duration `koanf:"session_ttl" jsonschema:"type=string,description=Go duration such as 24h"`
	ResetCodeTTL      time.Duration `koanf:"reset_code_ttl" jsonschema:"type=string,description=Go duration such as 3h"`
}

// MailConfig configures outgoing email. An empty SMTP.Host logs messages
// instead of sending them.
type MailConfig struct {
	AppName      string     `koanf:"app_name"`
	SupportEmail string     `koanf:"support_email"`
	SupportName  string     `koanf:"support_name"`
	VerifyURL    string     `koanf:"verify_url" jsonschema:"description=base URL of the email confirmation page"`
	ResetURL     string     `koanf:"reset_url" jsonschema:"description=base URL of the password reset page"`
	SMTP         SMTPConfig `koanf:"smtp"`
}

// SMTPConfig locates the SMTP relay.
type SMTPConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port" jsonschema:"minimum=1,maximum=65535"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

// FacebookConfig enables Facebook login when both fields are set.
type FacebookConfig struct {
	AppID     string `koanf:"app_id"`
	AppSecret string `koanf:"app_secret"`
	GraphURL  string `koanf:"graph_url"`
}

// Enabled reports whether Facebook login is configured.
func (f FacebookConfig) Enabled() bool {
	return f.AppID != "" && f.AppSecret != ""
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			ConnectAttempts: 5,
		},
		HTTP:    HTTPConfig{Addr: "127.0.0.1:8080"},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Log:     LogConfig{Format: "json", Level: "info"},
		Security: SecurityConfig{
			MaxFailedAttempts: membership.DefaultMaxFailedAttempts,
			SessionTTL:        membership.DefaultSessionTTL,
			ResetCodeTTL:      membership.DefaultResetCodeTTL,
		},
		Mail: MailConfig{
			AppName: "Membership",
			SMTP:    SMTPConfig{Port: 587},
		},
		Facebook: FacebookConfig{GraphURL: "https://graph.facebook.com/v19.0"},
	}
}

// flagKeys maps command-line flag names to configuration keys. Flags not
// listed here are not configuration.
var flagKeys = map[string]string{
	"database-url":   "database.url",
	"in-memory":      "database.in_memory",
	"http-addr":      "http.addr",
	"metrics-addr":   "metrics.addr",
	"log-format":     "log.format",
	"log-level":      "log.level",
	"max-attempts":   "security.max_failed_attempts",
	"session-ttl":    "security.session_ttl",
	"reset-code-ttl": "security.reset_code_ttl",
}

// RegisterFlags adds the configuration flags to fs with defaults from Default.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("database-url", d.Database.URL, "PostgreSQL URL")
	fs.Bool("in-memory", d.Database.InMemory, "keep all data in process memory")
	fs.String("http-addr", d.HTTP.Addr, "JSON API listen address")
	fs.String("metrics-addr", d.Metrics.Addr, "metrics/health listen address (empty = disabled)")
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.Int("max-attempts", d.Security.MaxFailedAttempts, "failed logins before an account locks")
	fs.Duration("session-ttl", d.Security.SessionTTL, "default session lifetime")
	fs.Duration("reset-code-ttl", d.Security.ResetCodeTTL, "password reset code lifetime")
}

// Load builds a Config. path may be empty; fs may be nil.
func Load(path string, fs *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
		if err != nil {
			return Config{}, oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
		}
		if err := ValidateDocument(data); err != nil {
			return Config{}, oops.With("path", path).Wrap(err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_PARSE_FAILED").With("path", path).Wrap(err)
		}
	}

	if fs != nil {
		provider := posflag.ProviderWithValue(fs, ".", k, func(name, value string) (string, any) {
			return flagKeys[name], value
		})
		if err := k.Load(provider, nil); err != nil {
			return Config{}, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}

	if v := os.Getenv(EnvDatabaseURL); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv(EnvSalt); v != "" {
		cfg.Security.Salt = v
	}
	return cfg, nil
}

// Validate checks the configuration as a whole.
func (c Config) Validate() error {
	invalid := func(field, format string, args ...any) error {
		return oops.Code("CONFIG_INVALID").With("field", field).Errorf(format, args...)
	}

	if !c.Database.InMemory && c.Database.URL == "" {
		return invalid("database.url", "database url is required (set %s or use --in-memory)", EnvDatabaseURL)
	}
	if c.HTTP.Addr == "" {
		return invalid("http.addr", "http address is required")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("log.format", "log format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", "log level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	if len(c.Security.Salt) < membership.MinPepperLength {
		return invalid("security.salt", "salt must be at least %d characters (set %s)", membership.MinPepperLength, EnvSalt)
	}
	if c.Security.MaxFailedAttempts < 1 {
		return invalid("security.max_failed_attempts", "max failed attempts must be positive")
	}
	if c.Security.SessionTTL <= 0 {
		return invalid("security.session_ttl", "session ttl must be positive")
	}
	if c.Security.ResetCodeTTL <= 0 {
		return invalid("security.reset_code_ttl", "reset code ttl must be positive")
	}
	for field, raw := range map[string]string{
		"mail.verify_url":    c.Mail.VerifyURL,
		"mail.reset_url":     c.Mail.ResetURL,
		"facebook.graph_url": c.Facebook.GraphURL,
	} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return invalid(field, "%s must be an absolute http(s) URL, got %q", field, raw)
		}
	}
	if (c.Facebook.AppID == "") != (c.Facebook.AppSecret == "") {
		return invalid("facebook", "facebook login needs both app_id and app_secret")
	}
	return nil
}

// EngineConfig converts the security and mail settings for membership.NewEngine.
func (c Config) EngineConfig() membership.Config {
	return membership.Config{
		MaxFailedAttempts: c.Security.MaxFailedAttempts,
		SessionTTL:        c.Security.SessionTTL,
		ResetCodeTTL:      c.Security.ResetCodeTTL,
		Mail: membership.MailSettings{
			AppName:      c.Mail.AppName,
			SupportEmail: c.Mail.SupportEmail,
			SupportName:  c.Mail.SupportName,
			VerifyURL:    c.Mail.VerifyURL,
			ResetURL:     c.Mail.ResetURL,
		},
	}
}
