// Package config loads the YAML runtime configuration and applies defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tradeforge/crossbook/internal/domain"
)

// SourceConfig declares one liquidity source.
type SourceConfig struct {
	ID              string             `yaml:"id"`
	Name            string             `yaml:"name"`
	Kind            string             `yaml:"kind"`
	Active          bool               `yaml:"active"`
	Priority        int                `yaml:"priority"`
	Fees            domain.FeeSchedule `yaml:"fees"`
	MinOrderSize    float64            `yaml:"min_order_size"`
	MaxOrderSize    float64            `yaml:"max_order_size"`
	DailyVolumeCap  float64            `yaml:"daily_volume_cap_usd"`
	RateLimitPerSec float64            `yaml:"rate_limit_per_sec"`
	Instruments     []string           `yaml:"instruments"`
	Reliability     float64            `yaml:"reliability"`
}

// ToDomain converts the declaration into a registry source.
func (sc SourceConfig) ToDomain() domain.LiquiditySource {
	return domain.LiquiditySource{
		ID:                sc.ID,
		Name:              sc.Name,
		Kind:              domain.SourceKind(sc.Kind),
		Active:            sc.Active,
		Priority:          sc.Priority,
		Fees:              sc.Fees,
		MinOrderSize:      sc.MinOrderSize,
		MaxOrderSize:      sc.MaxOrderSize,
		DailyVolumeCapUSD: sc.DailyVolumeCap,
		RateLimitPerSec:   sc.RateLimitPerSec,
		Instruments:       sc.Instruments,
		Reliability:       sc.Reliability,
	}
}

// OrchestratorConfig mirrors the scheduler session parameters.
type OrchestratorConfig struct {
	DailyTargetUSD     float64         `yaml:"daily_target_usd"`
	StartEquityUSD     float64         `yaml:"start_equity_usd"`
	MinTickIntervalMs  int             `yaml:"min_tick_interval_ms"`
	ProgressIntervalMs int             `yaml:"progress_interval_ms"`
	SessionDurationMin int             `yaml:"session_duration_min"`
	EnabledModules     map[string]bool `yaml:"enabled_modules"`
}

// RouterConfig tunes routing.
type RouterConfig struct {
	MaxBookUtilization float64 `yaml:"max_book_utilization"`
}

// FeedConfig tunes the simulated feed cadence.
type FeedConfig struct {
	RefreshIntervalMs int `yaml:"refresh_interval_ms"`
}

// MetricsConfig tunes the liquidity metrics cadence.
type MetricsConfig struct {
	RefreshIntervalMs int `yaml:"refresh_interval_ms"`
}

// HTTPConfig configures the monitoring server.
type HTTPConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// RedisConfig configures the optional redis event publisher.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Channel string `yaml:"channel"`
}

// Config is the full runtime configuration.
type Config struct {
	LogLevel     string             `yaml:"log_level"`
	Instruments  []string           `yaml:"instruments"`
	Sources      []SourceConfig     `yaml:"sources"`
	Router       RouterConfig       `yaml:"router"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Feed         FeedConfig         `yaml:"feed"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	HTTP         HTTPConfig         `yaml:"http"`
	Redis        RedisConfig        `yaml:"redis"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses the YAML file at path, then applies defaults.
func Load(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if len(c.Instruments) == 0 {
		c.Instruments = []string{"BTC-USD"}
	}
	if c.Router.MaxBookUtilization <= 0 {
		c.Router.MaxBookUtilization = 0.10
	}
	if c.Orchestrator.MinTickIntervalMs <= 0 {
		c.Orchestrator.MinTickIntervalMs = 1000
	}
	if c.Orchestrator.ProgressIntervalMs <= 0 {
		c.Orchestrator.ProgressIntervalMs = 30000
	}
	if c.Orchestrator.SessionDurationMin <= 0 {
		c.Orchestrator.SessionDurationMin = 480
	}
	if c.Feed.RefreshIntervalMs <= 0 {
		c.Feed.RefreshIntervalMs = 1000
	}
	if c.Metrics.RefreshIntervalMs <= 0 {
		c.Metrics.RefreshIntervalMs = 5000
	}
	if c.HTTP.ListenAddr == "" {
		c.HTTP.ListenAddr = ":8087"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = "crossbook.events"
	}
}

// MinTickInterval converts the configured milliseconds.
func (o OrchestratorConfig) MinTickInterval() time.Duration {
	return time.Duration(o.MinTickIntervalMs) * time.Millisecond
}

// ProgressInterval converts the configured milliseconds.
func (o OrchestratorConfig) ProgressInterval() time.Duration {
	return time.Duration(o.ProgressIntervalMs) * time.Millisecond
}

// SessionDuration converts the configured minutes.
func (o OrchestratorConfig) SessionDuration() time.Duration {
	return time.Duration(o.SessionDurationMin) * time.Minute
}
