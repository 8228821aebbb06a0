// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftboard Contributors

// Package config loads service configuration by layering flag defaults, an
// optional YAML file, and explicitly set flags, in that order of precedence
// (lowest first).
package config

import (
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Config is the full service configuration.
type Config struct {
	Server   Server   `koanf:"server"`
	Database Database `koanf:"database"`
	Redis    Redis    `koanf:"redis"`
	Mail     Mail     `koanf:"mail"`
	Log      Log      `koanf:"log"`
}

// Server configures the HTTP transport and session cookie.
type Server struct {
	Addr         string `koanf:"addr"`
	MetricsAddr  string `koanf:"metrics_addr"`
	BaseURL      string `koanf:"base_url"`
	CookieName   string `koanf:"cookie_name"`
	CookieSecure bool   `koanf:"cookie_secure"`
}

// Database configures PostgreSQL.
type Database struct {
	URL string `koanf:"url"`
}

// Redis configures the ephemeral session/token store.
type Redis struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// Mail configures outbound notification dispatch. With an empty token the
// service logs reset mails instead of sending them.
type Mail struct {
	Token  string `koanf:"token"`
	From   string `koanf:"from"`
	APIURL string `koanf:"api_url"`
}

// Log configures logging output.
type Log struct {
	Format string `koanf:"format"`
}

// Flags returns the flag set carrying every config key and its default.
// Flag names use dots so posflag maps them onto config paths directly.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("driftboard", pflag.ContinueOnError)
	fs.String("server.addr", ":8080", "HTTP listen address")
	fs.String("server.metrics_addr", "127.0.0.1:9100", "metrics/health HTTP address (empty = disabled)")
	fs.String("server.base_url", "http://localhost:3000", "public base URL used in reset links")
	fs.String("server.cookie_name", "qid", "session cookie name")
	fs.Bool("server.cookie_secure", false, "mark the session cookie Secure")
	fs.String("database.url", "", "PostgreSQL connection URL")
	fs.String("redis.addr", "localhost:6379", "Redis address")
	fs.String("redis.password", "", "Redis password")
	fs.Int("redis.db", 0, "Redis database number")
	fs.String("mail.token", "", "mail API server token (empty = log mails instead of sending)")
	fs.String("mail.from", "noreply@driftboard.local", "mail sender address")
	fs.String("mail.api_url", "https://api.postmarkapp.com", "mail API base URL")
	fs.String("log.format", "json", "log format (json or text)")
	return fs
}

// Load builds the configuration from the optional YAML file at path and the
// given flag set. Flag defaults fill gaps; file values override defaults;
// flags changed on the command line override the file.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_FAILED").With("path", path).Wrap(err)
		}
	}

	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints that koanf cannot express.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("server.addr is required")
	}
	if c.Server.CookieName == "" {
		return oops.Code("CONFIG_INVALID").Errorf("server.cookie_name is required")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").Errorf("log.format must be json or text, got %q", c.Log.Format)
	}
	return nil
}
