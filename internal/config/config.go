// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

// Package config loads the server configuration.
//
// Sources are applied in order, each overriding the previous one: built-in
// defaults, a YAML file, environment variables and command-line flags.
// The resulting Config is a plain value; callers pass it around and never
// mutate it.
package config

import (
	"errors"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/taskforge/taskforge/internal/logging"
	"github.com/taskforge/taskforge/internal/xdg"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "TASKFORGE_"

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is the complete server configuration.
type Config struct {
	HTTP    HTTPConfig    `koanf:"http"    envPrefix:"HTTP_"`
	Metrics MetricsConfig `koanf:"metrics" envPrefix:"METRICS_"`
	Control ControlConfig `koanf:"control" envPrefix:"CONTROL_"`
	Log     LogConfig     `koanf:"log"     envPrefix:"LOG_"`
	Storage StorageConfig `koanf:"storage" envPrefix:"STORAGE_"`
	Auth    AuthConfig    `koanf:"auth"    envPrefix:"AUTH_"`
	Mail    MailConfig    `koanf:"mail"    envPrefix:"MAIL_"`
	Avatar  AvatarConfig  `koanf:"avatar"  envPrefix:"AVATAR_"`
}

// HTTPConfig configures the REST API listener.
type HTTPConfig struct {
	Addr        string   `koanf:"addr"         env:"ADDR"`
	CORSOrigins []string `koanf:"cors_origins" env:"CORS_ORIGINS"`
}

// MetricsConfig configures the metrics and probe listener. Empty disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" env:"ADDR"`
}

// ControlConfig configures the gRPC control listener. Empty disables it.
type ControlConfig struct {
	Addr string `koanf:"addr" env:"ADDR"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format" env:"FORMAT" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level"  env:"LEVEL"  jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// StorageConfig selects and configures persistence.
type StorageConfig struct {
	Driver         string `koanf:"driver"          env:"DRIVER"          jsonschema:"enum=postgres,enum=memory"`
	DatabaseURL    string `koanf:"database_url"    env:"DATABASE_URL"`
	AutoMigrate    bool   `koanf:"auto_migrate"    env:"AUTO_MIGRATE"`
	ConnectRetries int    `koanf:"connect_retries" env:"CONNECT_RETRIES" jsonschema:"minimum=0"`
}

// AuthConfig configures password hashing and token signing.
type AuthConfig struct {
	JWTSecret  string `koanf:"jwt_secret"  env:"JWT_SECRET"`
	BcryptCost int    `koanf:"bcrypt_cost" env:"BCRYPT_COST" jsonschema:"minimum=4,maximum=31"`
}

// MailConfig configures account notification delivery. Without an API key
// notifications are logged instead of sent.
type MailConfig struct {
	APIURL  string        `koanf:"api_url" env:"API_URL"`
	APIKey  string        `koanf:"api_key" env:"API_KEY"`
	From    string        `koanf:"from"    env:"FROM"`
	Timeout time.Duration `koanf:"timeout" env:"TIMEOUT"`
}

// AvatarConfig limits avatar uploads.
type AvatarConfig struct {
	MaxBytes int `koanf:"max_bytes" env:"MAX_BYTES" jsonschema:"minimum=1"`
}

// legacyEnv holds the unprefixed variable names older deployments use.
// The prefixed names win when both are set.
type legacyEnv struct {
	DatabaseURL string `env:"DATABASE_URL"`
	JWTSecret   string `env:"JWT_SECRET"`
	MailAPIKey  string `env:"MAIL_API_KEY"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTP:    HTTPConfig{Addr: ":3000"},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Control: ControlConfig{Addr: "127.0.0.1:9101"},
		Log:     LogConfig{Format: "json", Level: "info"},
		Storage: StorageConfig{
			Driver:         DriverPostgres,
			AutoMigrate:    true,
			ConnectRetries: 5,
		},
		Auth: AuthConfig{BcryptCost: 8},
		Mail: MailConfig{
			APIURL:  "https://api.sendgrid.com/v3/mail/send",
			From:    "ifti3edu3cse@gmail.com",
			Timeout: 10 * time.Second,
		},
		Avatar: AvatarConfig{MaxBytes: 1_000_000},
	}
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"addr":            "http.addr",
	"cors-origin":     "http.cors_origins",
	"metrics-addr":    "metrics.addr",
	"control-addr":    "control.addr",
	"log-format":      "log.format",
	"log-level":       "log.level",
	"storage":         "storage.driver",
	"database-url":    "storage.database_url",
	"auto-migrate":    "storage.auto_migrate",
	"connect-retries": "storage.connect_retries",
}

// RegisterFlags adds the overridable settings to fs. Only flags the user
// sets take effect; their defaults are ignored by Load.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("addr", "", "API listen address")
	fs.StringSlice("cors-origin", nil, "allowed CORS origin (repeatable)")
	fs.String("metrics-addr", "", "metrics and health probe listen address (empty disables)")
	fs.String("control-addr", "", "gRPC control listen address (empty disables)")
	fs.String("log-format", "", "log format (json or text)")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("storage", "", "storage driver (postgres or memory)")
	fs.String("database-url", "", "PostgreSQL connection URL")
	fs.Bool("auto-migrate", false, "apply pending migrations on startup")
	fs.Int("connect-retries", 0, "database connection retries")
}

// Sources names the inputs Load reads.
type Sources struct {
	// File is an explicit config file. When empty the XDG config file is
	// read if it exists.
	File string
	// Flags holds parsed command-line flags registered with RegisterFlags.
	Flags *pflag.FlagSet
	// Environ replaces the process environment when non-nil.
	Environ map[string]string
}

// Load builds and validates a Config from src.
func Load(src Sources) (Config, error) {
	cfg, err := Read(src)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Read builds a Config from src without validating it. Tools that use a
// subset of the settings check what they need themselves.
func Read(src Sources) (Config, error) {
	cfg := Default()
	unmarshalConf := koanf.UnmarshalConf{Tag: "koanf"}

	path, required := src.File, true
	if path == "" {
		path, required = xdg.ConfigFile(), false
	}
	if _, err := os.Stat(path); err == nil || required {
		fp := file.Provider(path)
		data, err := fp.ReadBytes()
		if err != nil {
			code := "CONFIG_FILE_INVALID"
			if errors.Is(err, fs.ErrNotExist) {
				code = "CONFIG_FILE_NOT_FOUND"
			}
			return Config{}, oops.Code(code).With("path", path).Wrap(err)
		}
		if err := ValidateDocument(data); err != nil {
			return Config{}, oops.With("path", path).Wrap(err)
		}

		k := koanf.New(".")
		if err := k.Load(fp, yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_FILE_INVALID").With("path", path).Wrap(err)
		}
		if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
			return Config{}, oops.Code("CONFIG_FILE_INVALID").With("path", path).Wrap(err)
		}
	}

	if err := applyEnv(&cfg, src.Environ); err != nil {
		return Config{}, err
	}

	if src.Flags != nil {
		k := koanf.New(".")
		provider := posflag.ProviderWithFlag(src.Flags, ".", nil, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(src.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return Config{}, oops.Code("CONFIG_FLAGS_INVALID").Wrap(err)
		}
		if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
			return Config{}, oops.Code("CONFIG_FLAGS_INVALID").Wrap(err)
		}
	}
	return cfg, nil
}

func applyEnv(cfg *Config, environ map[string]string) error {
	opts := env.Options{Environment: environ}

	var legacy legacyEnv
	if err := env.ParseWithOptions(&legacy, opts); err != nil {
		return oops.Code("CONFIG_ENV_INVALID").Wrap(err)
	}
	if legacy.DatabaseURL != "" {
		cfg.Storage.DatabaseURL = legacy.DatabaseURL
	}
	if legacy.JWTSecret != "" {
		cfg.Auth.JWTSecret = legacy.JWTSecret
	}
	if legacy.MailAPIKey != "" {
		cfg.Mail.APIKey = legacy.MailAPIKey
	}

	opts.Prefix = EnvPrefix
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return oops.Code("CONFIG_ENV_INVALID").Wrap(err)
	}
	return nil
}

// Validate reports every invalid setting in one error.
func (c Config) Validate() error {
	var problems []string
	if c.HTTP.Addr == "" {
		problems = append(problems, "http.addr is required")
	}
	if !slices.Contains([]string{"json", "text"}, c.Log.Format) {
		problems = append(problems, "log.format must be json or text")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, "log.level must be debug, info, warn or error")
	}
	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			problems = append(problems, "storage.database_url is required for the postgres driver")
		}
	case DriverMemory:
	default:
		problems = append(problems, "storage.driver must be postgres or memory")
	}
	if c.Storage.ConnectRetries < 0 {
		problems = append(problems, "storage.connect_retries must not be negative")
	}
	if c.Auth.JWTSecret == "" {
		problems = append(problems, "auth.jwt_secret is required")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		problems = append(problems, "auth.bcrypt_cost must be between 4 and 31")
	}
	if c.Mail.Timeout <= 0 {
		problems = append(problems, "mail.timeout must be positive")
	}
	if c.Avatar.MaxBytes <= 0 {
		problems = append(problems, "avatar.max_bytes must be positive")
	}

	if len(problems) == 0 {
		return nil
	}
	return oops.Code("CONFIG_INVALID").
		With("problems", problems).
		Errorf("invalid configuration: %s", strings.Join(problems, "; "))
}
