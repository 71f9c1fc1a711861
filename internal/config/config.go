// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

// Package config loads server configuration.
//
// Sources are layered in increasing precedence: built-in defaults, an
// optional YAML file, GRIDQUEST_* environment variables and finally
// command-line flags. Nested keys use "__" in environment variable names,
// so GRIDQUEST_HTTP__ALLOWED_ORIGIN sets http.allowed_origin.
package config

import (
	"errors"
	"net"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/gridquest/gridquest/internal/logging"
	"github.com/gridquest/gridquest/internal/store"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "GRIDQUEST_"

// Config is the complete server configuration.
type Config struct {
	HTTP      HTTPConfig      `koanf:"http"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Log       LogConfig       `koanf:"log"`
	Store     StoreConfig     `koanf:"store"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Session   SessionConfig   `koanf:"session"`
	World     WorldConfig     `koanf:"world"`
}

// HTTPConfig configures the player-facing HTTP server.
type HTTPConfig struct {
	Addr          string `koanf:"addr"`
	AllowedOrigin string `koanf:"allowed_origin"`
}

// MetricsConfig configures the metrics and health server. An empty address
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// StoreConfig selects and configures the storage backend.
type StoreConfig struct {
	Driver   string         `koanf:"driver"`
	SQLite   SQLiteConfig   `koanf:"sqlite"`
	Postgres PostgresConfig `koanf:"postgres"`
	Bolt     BoltConfig     `koanf:"bolt"`
}

// SQLiteConfig configures the sqlite backend.
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// PostgresConfig configures the postgres backend.
type PostgresConfig struct {
	URL string `koanf:"url"`
}

// BoltConfig configures the bbolt backend.
type BoltConfig struct {
	Path string `koanf:"path"`
}

// RateLimitConfig configures per-client request throttling.
type RateLimitConfig struct {
	Burst int     `koanf:"burst"`
	Rate  float64 `koanf:"rate"`
}

// SessionConfig configures login sessions.
type SessionConfig struct {
	TTL time.Duration `koanf:"ttl"`
}

// WorldConfig points at an alternative grid definition. Empty uses the
// built-in world.
type WorldConfig struct {
	File string `koanf:"file"`
}

// Default values.
const (
	DefaultHTTPAddr       = ":8080"
	DefaultAllowedOrigin  = "http://localhost:3000"
	DefaultMetricsAddr    = "127.0.0.1:9100"
	DefaultLogFormat      = "json"
	DefaultLogLevel       = "info"
	DefaultSQLitePath     = "gridquest.db"
	DefaultBoltPath       = "gridquest.bolt"
	DefaultRateLimitBurst = 5
	DefaultRateLimitRate  = 1.0
	DefaultSessionTTL     = 7 * 24 * time.Hour
)

// Defaults returns the built-in configuration as flat koanf keys.
func Defaults() map[string]any {
	return map[string]any{
		"http.addr":           DefaultHTTPAddr,
		"http.allowed_origin": DefaultAllowedOrigin,
		"metrics.addr":        DefaultMetricsAddr,
		"log.format":          DefaultLogFormat,
		"log.level":           DefaultLogLevel,
		"store.driver":        store.DriverSQLite,
		"store.sqlite.path":   DefaultSQLitePath,
		"store.postgres.url":  "",
		"store.bolt.path":     DefaultBoltPath,
		"ratelimit.burst":     DefaultRateLimitBurst,
		"ratelimit.rate":      DefaultRateLimitRate,
		"session.ttl":         DefaultSessionTTL.String(),
		"world.file":          "",
	}
}

// flagKeys maps command-line flag names to configuration keys. Flags not
// listed here are ignored by the loader.
var flagKeys = map[string]string{
	"http-addr":      "http.addr",
	"allowed-origin": "http.allowed_origin",
	"metrics-addr":   "metrics.addr",
	"log-format":     "log.format",
	"log-level":      "log.level",
	"store-driver":   "store.driver",
	"sqlite-path":    "store.sqlite.path",
	"database-url":   "store.postgres.url",
	"bolt-path":      "store.bolt.path",
	"world-file":     "world.file",
}

// RegisterFlags adds the configuration flags to fs. Their defaults are
// informational; the loader only applies flags that were set explicitly.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML config file")
	fs.String("env-file", ".env", "dotenv file loaded before reading the environment")
	fs.String("http-addr", DefaultHTTPAddr, "HTTP listen address")
	fs.String("allowed-origin", DefaultAllowedOrigin, "CORS origin allowed to call the API")
	fs.String("metrics-addr", DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	fs.String("log-format", DefaultLogFormat, "log format (json or text)")
	fs.String("log-level", DefaultLogLevel, "log level (debug, info, warn, error)")
	fs.String("store-driver", store.DriverSQLite, "storage driver ("+strings.Join(store.Drivers, ", ")+")")
	fs.String("sqlite-path", DefaultSQLitePath, "sqlite database file")
	fs.String("database-url", "", "postgres connection URL")
	fs.String("bolt-path", DefaultBoltPath, "bbolt database file")
	fs.String("world-file", "", "YAML grid definition (default: built-in world)")
}

// Load builds the configuration from every source. flags may be nil. The
// config file path and dotenv file are read from the "config" and
// "env-file" flags when flags defines them.
func Load(flags *pflag.FlagSet) (*Config, error) {
	var configPath, envFile string
	if flags != nil {
		configPath, _ = flags.GetString("config")
		envFile, _ = flags.GetString("env-file")
	}

	if envFile != "" {
		// Existing environment variables win over the dotenv file.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("env_file", envFile).Wrap(err)
		}
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").Wrap(err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("config_file", configPath).Wrap(err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").Wrap(err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagValue(flags)), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").Wrap(err)
	}
	return &cfg, nil
}

// envKey turns GRIDQUEST_STORE__SQLITE__PATH into store.sqlite.path.
func envKey(name string) string {
	name = strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	return strings.ReplaceAll(name, "__", ".")
}

func flagValue(fs *pflag.FlagSet) func(f *pflag.Flag) (string, any) {
	return func(f *pflag.Flag) (string, any) {
		key, ok := flagKeys[f.Name]
		if !ok || !f.Changed {
			return "", nil
		}
		return key, posflag.FlagVal(fs, f)
	}
}

// Validate checks that the configuration can start a server.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return invalid("http.addr", "is required")
	}
	if _, _, err := net.SplitHostPort(c.HTTP.Addr); err != nil {
		return invalid("http.addr", "must be host:port")
	}
	if c.Metrics.Addr != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.Addr); err != nil {
			return invalid("metrics.addr", "must be host:port or empty")
		}
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("log.format", "must be 'json' or 'text'")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", "must be debug, info, warn or error")
	}

	if !slices.Contains(store.Drivers, c.Store.Driver) {
		return invalid("store.driver", "must be one of "+strings.Join(store.Drivers, ", "))
	}
	switch c.Store.Driver {
	case store.DriverSQLite:
		if c.Store.SQLite.Path == "" {
			return invalid("store.sqlite.path", "is required for the sqlite driver")
		}
	case store.DriverPostgres:
		if c.Store.Postgres.URL == "" {
			return invalid("store.postgres.url", "is required for the postgres driver")
		}
	case store.DriverBolt:
		if c.Store.Bolt.Path == "" {
			return invalid("store.bolt.path", "is required for the bolt driver")
		}
	}

	if c.RateLimit.Burst < 1 {
		return invalid("ratelimit.burst", "must be at least 1")
	}
	if c.RateLimit.Rate <= 0 {
		return invalid("ratelimit.rate", "must be positive")
	}
	if c.Session.TTL <= 0 {
		return invalid("session.ttl", "must be positive")
	}
	return nil
}

func invalid(key, msg string) error {
	return oops.Code("CONFIG_INVALID").With("key", key).Errorf("%s %s", key, msg)
}
