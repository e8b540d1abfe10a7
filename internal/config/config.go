// Package config reads host settings from LIVEHOST_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/livehost/internal/logging"
	"github.com/aretw0/livehost/pkg/channel"
	"github.com/aretw0/livehost/pkg/diagnostic"
	"github.com/caarlos0/env/v11"
)

// Config holds the environment-driven settings. CLI flags override them.
type Config struct {
	HostID       string        `env:"LIVEHOST_HOST_ID" envDefault:"default"`
	StopTimeout  time.Duration `env:"LIVEHOST_STOP_TIMEOUT" envDefault:"5s"`
	Backpressure string        `env:"LIVEHOST_BACKPRESSURE" envDefault:"unbounded"`
	FatalKinds   []string      `env:"LIVEHOST_FATAL_KINDS" envSeparator:"," envDefault:"error,fatal"`
	LogLevel     string        `env:"LIVEHOST_LOG_LEVEL" envDefault:"info"`

	HTTPAddr string `env:"LIVEHOST_HTTP_ADDR" envDefault:"127.0.0.1:8080"`

	RedisAddr     string        `env:"LIVEHOST_REDIS_ADDR"`
	RedisPassword string        `env:"LIVEHOST_REDIS_PASSWORD"`
	RedisDB       int           `env:"LIVEHOST_REDIS_DB" envDefault:"0"`
	RedisPrefix   string        `env:"LIVEHOST_REDIS_PREFIX" envDefault:"livehost:status:"`
	RedisTTL      time.Duration `env:"LIVEHOST_REDIS_TTL" envDefault:"0s"`
}

// Load parses the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses vars instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if _, err := cfg.Policy(); err != nil {
		return Config{}, err
	}
	if _, err := cfg.Level(); err != nil {
		return Config{}, err
	}
	if cfg.StopTimeout < 0 {
		return Config{}, fmt.Errorf("LIVEHOST_STOP_TIMEOUT must not be negative, got %s", cfg.StopTimeout)
	}
	return cfg, nil
}

// Policy returns the channel backpressure policy.
func (c Config) Policy() (channel.Policy, error) {
	return channel.ParsePolicy(c.Backpressure)
}

// Level returns the slog level.
func (c Config) Level() (slog.Level, error) {
	return logging.ParseLevel(c.LogLevel)
}

// Kinds returns the fatal diagnostic kinds.
func (c Config) Kinds() []diagnostic.Kind {
	kinds := make([]diagnostic.Kind, 0, len(c.FatalKinds))
	for _, k := range c.FatalKinds {
		if k != "" {
			kinds = append(kinds, diagnostic.Kind(k))
		}
	}
	return kinds
}

// RedisEnabled reports whether a Redis status store is configured.
func (c Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}
