// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package config loads service configuration from defaults, an optional
// YAML file, environment variables, and command-line flags, in that order
// of increasing precedence.
package config

import (
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	flag "github.com/spf13/pflag"
)

// Config is the full service configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Observability ObservabilityConfig `koanf:"observability"`
	Database      DatabaseConfig      `koanf:"database"`
	Auth          AuthConfig          `koanf:"auth"`
	Log           LogConfig           `koanf:"log"`
}

// ServerConfig configures the HTTP API listener.
type ServerConfig struct {
	Addr string `koanf:"addr"`
}

// ObservabilityConfig configures the metrics and health listener.
type ObservabilityConfig struct {
	Addr string `koanf:"addr"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	URL         string `koanf:"url"`
	AutoMigrate bool   `koanf:"auto_migrate"`
}

// AuthConfig configures credential hashing and token issuance.
type AuthConfig struct {
	SigningKey     string        `koanf:"signing_key"`
	Issuer         string        `koanf:"issuer"`
	Audience       string        `koanf:"audience"`
	AccessTTL      time.Duration `koanf:"access_ttl"`
	RefreshTTL     time.Duration `koanf:"refresh_ttl"`
	HashIterations int           `koanf:"hash_iterations"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// defaults are the lowest-precedence configuration values.
var defaults = map[string]any{
	"server.addr":           ":8080",
	"observability.addr":    ":9090",
	"database.auto_migrate": true,
	"auth.issuer":           "warden",
	"auth.audience":         "warden-clients",
	"auth.access_ttl":       "15m",
	"auth.refresh_ttl":      "336h", // 14 days
	"auth.hash_iterations":  100000,
	"log.level":             "info",
	"log.format":            "json",
}

// envOverrides maps environment variables to configuration keys. These sit
// between the config file and flags so secrets never need to live on disk.
var envOverrides = map[string]string{
	"DATABASE_URL":       "database.url",
	"WARDEN_SIGNING_KEY": "auth.signing_key",
	"WARDEN_ADDR":        "server.addr",
}

// Load builds a Config. path names an optional YAML file; flags, when
// non-nil, take precedence over everything else.
func Load(path string, flags *flag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "set default").
				With("key", key).
				Wrap(err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "load config file").
				With("path", path).
				Wrap(err)
		}
	}

	for env, key := range envOverrides {
		if value := os.Getenv(env); value != "" {
			if err := k.Set(key, value); err != nil {
				return nil, oops.Code("CONFIG_LOAD_FAILED").
					With("operation", "apply environment override").
					With("key", key).
					Wrap(err)
			}
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "load flags").
				Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").
			With("operation", "unmarshal config").
			Wrap(err)
	}

	return &cfg, nil
}

// Validate checks that the configuration is sufficient to start the
// service. It reports the first missing value; validation failures are
// fatal at startup.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").
			Errorf("database URL is required (database.url or DATABASE_URL)")
	}
	if c.Auth.SigningKey == "" {
		return oops.Code("CONFIG_INVALID").
			Errorf("signing key is required (auth.signing_key or WARDEN_SIGNING_KEY)")
	}
	if c.Auth.AccessTTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("access token TTL must be positive")
	}
	if c.Auth.RefreshTTL <= c.Auth.AccessTTL {
		return oops.Code("CONFIG_INVALID").
			Errorf("refresh token TTL must exceed access token TTL")
	}
	if c.Auth.HashIterations <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("hash iterations must be positive")
	}
	return nil
}
