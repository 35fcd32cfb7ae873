// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"time"

	"github.com/adhocore/gronx"
	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local runs against the console transport.
	Development Environment = "development"
	// Production is for deployments with real counterparts.
	Production Environment = "production"
)

// Config is the complete debug bot configuration.
type Config struct {
	// Environment identifies the deployment type (development, production).
	Environment Environment `yaml:"environment"`

	// Bot configures identity and command timing.
	Bot BotConfig `yaml:"bot"`

	// Chatty configures unprompted small talk.
	Chatty ChattyConfig `yaml:"chatty"`

	// Store configures the sqlite message store.
	Store StoreConfig `yaml:"store"`

	// Cache configures the local crawl cache.
	Cache CacheConfig `yaml:"cache"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log"`

	// Per-environment overrides, applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Bot     *BotConfig     `yaml:"bot,omitempty"`
	Chatty  *ChattyConfig  `yaml:"chatty,omitempty"`
	Store   *StoreConfig   `yaml:"store,omitempty"`
	Metrics *MetricsConfig `yaml:"metrics,omitempty"`
	Log     *LogConfig     `yaml:"log,omitempty"`
}

// BotConfig configures the bot's identity and command timing.
type BotConfig struct {
	// Atom is the bot's own participant id.
	// Default: atom:debugbot
	Atom string `yaml:"atom"`

	// CrawlTimeout bounds every conversation crawl.
	// Default: 60s
	CrawlTimeout string `yaml:"crawl_timeout"`

	// SendInterval separates the messages of "send N".
	// Default: 1s
	SendInterval string `yaml:"send_interval"`

	// DefaultWait is the connect handshake delay for "wait" without a
	// number.
	// Default: 15s
	DefaultWait string `yaml:"default_wait"`

	// MaxWait caps the connect handshake delay.
	// Default: 99s
	MaxWait string `yaml:"max_wait"`

	// ConnectDelay separates creating a helper atom from using it.
	// Default: 2s
	ConnectDelay string `yaml:"connect_delay"`
}

// ChattyConfig configures unprompted small talk.
type ChattyConfig struct {
	// Enabled makes newly opened conversations chatty.
	// Default: true (development), false (production)
	Enabled bool `yaml:"enabled"`

	// Probability is the chance that a chatty conversation gets a
	// message on one tick.
	// Default: 0.1
	Probability float64 `yaml:"probability"`

	// Schedule is the cron expression of the ticks.
	// Default: "* * * * *"
	Schedule string `yaml:"schedule"`

	// Rate caps chatty messages per second across all conversations.
	// Default: 0.5
	Rate float64 `yaml:"rate"`

	// Burst is the rate limiter's bucket size.
	// Default: 5
	Burst int `yaml:"burst"`
}

// StoreConfig configures the sqlite message store.
type StoreConfig struct {
	// Path is the database file, or ":memory:".
	// Default: :memory:
	Path string `yaml:"path"`

	// PoolSize is the number of pooled connections. Zero picks the
	// pool's default.
	PoolSize int `yaml:"pool_size"`
}

// CacheConfig configures the local crawl cache.
type CacheConfig struct {
	// Eager records every observed message so crawls can be answered
	// locally. The "cache" command switches it at runtime.
	// Default: true
	Eager bool `yaml:"eager"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Listen is the address of the /metrics listener. Empty disables
	// the endpoint.
	Listen string `yaml:"listen"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	// Default: info
	Level string `yaml:"level"`

	// Format is json or text.
	// Default: text (development), json (production)
	Format string `yaml:"format"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Environment: Development,
		Bot: BotConfig{
			Atom:         "atom:debugbot",
			CrawlTimeout: "60s",
			SendInterval: "1s",
			DefaultWait:  "15s",
			MaxWait:      "99s",
			ConnectDelay: "2s",
		},
		Chatty: ChattyConfig{
			Enabled:     true,
			Probability: 0.1,
			Schedule:    "* * * * *",
			Rate:        0.5,
			Burst:       5,
		},
		Store: StoreConfig{
			Path: ":memory:",
		},
		Cache: CacheConfig{
			Eager: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from the file named by DEBUGBOT_CONFIG.
func Load() (*Config, error) {
	configPath := os.Getenv("DEBUGBOT_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("DEBUGBOT_CONFIG environment variable not set; " +
			"set it to the path of your debugbot.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path on top of
// [Default].
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.Store.Path = expandVars(cfg.Store.Path)
	return cfg, nil
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
		if overrides == nil {
			overrides = &ConfigOverrides{
				Chatty: &ChattyConfig{Enabled: false},
				Log:    &LogConfig{Format: "json"},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Bot != nil {
		if overrides.Bot.Atom != "" {
			c.Bot.Atom = overrides.Bot.Atom
		}
		if overrides.Bot.CrawlTimeout != "" {
			c.Bot.CrawlTimeout = overrides.Bot.CrawlTimeout
		}
		if overrides.Bot.SendInterval != "" {
			c.Bot.SendInterval = overrides.Bot.SendInterval
		}
		if overrides.Bot.DefaultWait != "" {
			c.Bot.DefaultWait = overrides.Bot.DefaultWait
		}
		if overrides.Bot.MaxWait != "" {
			c.Bot.MaxWait = overrides.Bot.MaxWait
		}
		if overrides.Bot.ConnectDelay != "" {
			c.Bot.ConnectDelay = overrides.Bot.ConnectDelay
		}
	}

	if overrides.Chatty != nil {
		// Enabled is a bool, so we always apply it from overrides.
		c.Chatty.Enabled = overrides.Chatty.Enabled
		if overrides.Chatty.Probability != 0 {
			c.Chatty.Probability = overrides.Chatty.Probability
		}
		if overrides.Chatty.Schedule != "" {
			c.Chatty.Schedule = overrides.Chatty.Schedule
		}
		if overrides.Chatty.Rate != 0 {
			c.Chatty.Rate = overrides.Chatty.Rate
		}
		if overrides.Chatty.Burst != 0 {
			c.Chatty.Burst = overrides.Chatty.Burst
		}
	}

	if overrides.Store != nil {
		if overrides.Store.Path != "" {
			c.Store.Path = overrides.Store.Path
		}
		if overrides.Store.PoolSize != 0 {
			c.Store.PoolSize = overrides.Store.PoolSize
		}
	}

	if overrides.Metrics != nil && overrides.Metrics.Listen != "" {
		c.Metrics.Listen = overrides.Metrics.Listen
	}

	if overrides.Log != nil {
		if overrides.Log.Level != "" {
			c.Log.Level = overrides.Log.Level
		}
		if overrides.Log.Format != "" {
			c.Log.Format = overrides.Log.Format
		}
	}
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Timing holds the parsed durations of [BotConfig].
type Timing struct {
	CrawlTimeout time.Duration
	SendInterval time.Duration
	DefaultWait  time.Duration
	MaxWait      time.Duration
	ConnectDelay time.Duration
}

// Timing parses the bot's duration strings.
func (c *Config) Timing() (Timing, error) {
	var timing Timing
	var errs []error
	fields := []struct {
		name   string
		value  string
		target *time.Duration
	}{
		{"bot.crawl_timeout", c.Bot.CrawlTimeout, &timing.CrawlTimeout},
		{"bot.send_interval", c.Bot.SendInterval, &timing.SendInterval},
		{"bot.default_wait", c.Bot.DefaultWait, &timing.DefaultWait},
		{"bot.max_wait", c.Bot.MaxWait, &timing.MaxWait},
		{"bot.connect_delay", c.Bot.ConnectDelay, &timing.ConnectDelay},
	}
	for _, field := range fields {
		parsed, err := time.ParseDuration(field.value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field.name, err))
			continue
		}
		if parsed < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", field.name))
			continue
		}
		*field.target = parsed
	}
	if len(errs) > 0 {
		return Timing{}, errors.Join(errs...)
	}
	return timing, nil
}

// SlogLevel parses Log.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Bot.Atom == "" {
		errs = append(errs, fmt.Errorf("bot.atom is required"))
	}

	timing, err := c.Timing()
	if err != nil {
		errs = append(errs, err)
	} else if timing.DefaultWait > timing.MaxWait {
		errs = append(errs, fmt.Errorf("bot.default_wait (%v) exceeds bot.max_wait (%v)", timing.DefaultWait, timing.MaxWait))
	}

	if c.Chatty.Probability < 0 || c.Chatty.Probability > 1 {
		errs = append(errs, fmt.Errorf("chatty.probability must be between 0 and 1, got %v", c.Chatty.Probability))
	}
	if !gronx.IsValid(c.Chatty.Schedule) {
		errs = append(errs, fmt.Errorf("chatty.schedule is not a valid cron expression: %q", c.Chatty.Schedule))
	}
	if c.Chatty.Rate <= 0 {
		errs = append(errs, fmt.Errorf("chatty.rate must be positive"))
	}
	if c.Chatty.Burst < 1 {
		errs = append(errs, fmt.Errorf("chatty.burst must be at least 1"))
	}

	if c.Store.Path == "" {
		errs = append(errs, fmt.Errorf("store.path is required"))
	}
	if c.Store.PoolSize < 0 {
		errs = append(errs, fmt.Errorf("store.pool_size must not be negative"))
	}

	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Errorf("log.format must be one of: [json text]"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
