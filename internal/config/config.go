// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Veril Contributors

// Package config loads service configuration from a YAML file and flags.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/veril/veril/internal/xdg"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Database DatabaseConfig `koanf:"database"`
	Session  SessionConfig  `koanf:"session"`
	Mail     MailConfig     `koanf:"mail"`
	Log      LogConfig      `koanf:"log"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Addr string `koanf:"addr"`
}

// MetricsConfig configures the observability server.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// DatabaseConfig configures PostgreSQL access.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// SessionConfig configures session token issuance.
type SessionConfig struct {
	Secret string        `koanf:"secret"`
	Expiry time.Duration `koanf:"expiry"`
}

// MailConfig configures verification email delivery.
type MailConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
	From    string `koanf:"from"`
	BaseURL string `koanf:"base_url"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Format string `koanf:"format"` // "json" or "text"
}

// Default returns the configuration defaults. The database URL and session
// secret have no safe default and must come from file or flags.
func Default() Config {
	return Config{
		Server:  ServerConfig{Addr: ":8080"},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Session: SessionConfig{Expiry: 24 * time.Hour},
		Mail: MailConfig{
			Enabled: false,
			Addr:    "127.0.0.1:25",
			From:    "noreply@veril.dev",
			BaseURL: "http://localhost:8080",
		},
		Log: LogConfig{Format: "json"},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigDir(), "veril.yaml")
}

// Load builds the configuration from defaults, an optional YAML file, and
// flag overrides, in that precedence order. An empty path falls back to
// DefaultPath; a missing file at the default location is not an error, a
// missing file at an explicit path is. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	if _, err := os.Stat(path); err == nil {
		if loadErr := k.Load(file.Provider(path), yaml.Parser()); loadErr != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("path", path).
				Wrap(loadErr)
		}
	} else if explicit {
		return nil, oops.Code("CONFIG_NOT_FOUND").
			With("path", path).
			Wrap(err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}
	return &cfg, nil
}

// Validate checks the settings the serve command cannot run without.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url is required")
	}
	if c.Session.Secret == "" {
		return oops.Code("CONFIG_INVALID").Errorf("session.secret is required")
	}
	if c.Session.Expiry <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("session.expiry must be positive")
	}
	if c.Mail.Enabled && c.Mail.Addr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("mail.addr is required when mail is enabled")
	}
	return nil
}
