// Package config loads runtime settings from an optional YAML file, then
// environment variables, then validates the result.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/Rick-more-Rick/donTrading-sub000/internal/model"
)

// Feed sources.
const (
	SourceWS     = "ws"
	SourceRedis  = "redis"
	SourceReplay = "replay"
)

// Config holds all application configuration.
type Config struct {
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	Feed struct {
		Source        string  `yaml:"source" validate:"oneof=ws redis replay"`
		WSURL         string  `yaml:"ws_url" validate:"omitempty,url"`
		RedisAddr     string  `yaml:"redis_addr" validate:"omitempty,hostname_port"`
		RedisPassword string  `yaml:"redis_password"`
		ReplaySpeed   float64 `yaml:"replay_speed" validate:"gte=0"`
	} `yaml:"feed"`

	Chart struct {
		Symbol         string  `yaml:"symbol" validate:"required"`
		Timeframe      string  `yaml:"timeframe"`
		TickSize       float64 `yaml:"tick_size" validate:"gt=0"`
		MinLevels      int     `yaml:"min_levels" validate:"gte=1"`
		CandlesVisible int     `yaml:"candles_visible" validate:"gte=1"`
		RowHeight      float64 `yaml:"row_height" validate:"gt=0"`
		FPS            int     `yaml:"fps" validate:"gte=1,lte=240"`
		Width          int     `yaml:"width" validate:"gte=1"`
		Height         int     `yaml:"height" validate:"gte=1"`
		DepthWidth     int     `yaml:"depth_width" validate:"gte=1"`
		BookHeight     int     `yaml:"book_height" validate:"gte=1"`
	} `yaml:"chart"`

	Snapshot struct {
		Dir   string        `yaml:"dir"`
		Every time.Duration `yaml:"every"`
	} `yaml:"snapshot"`

	Store struct {
		SQLitePath string        `yaml:"sqlite_path"`
		History    time.Duration `yaml:"history"`
	} `yaml:"store"`

	HTTP struct {
		Addr string `yaml:"addr" validate:"required"`
	} `yaml:"http"`

	Sim struct {
		Addr         string        `yaml:"addr" validate:"required"`
		Symbols      []string      `yaml:"symbols" validate:"min=1,dive,required"`
		StartPrice   float64       `yaml:"start_price" validate:"gt=0"`
		TickInterval time.Duration `yaml:"tick_interval" validate:"gt=0"`
		BookInterval time.Duration `yaml:"book_interval" validate:"gt=0"`
		BookDepth    int           `yaml:"book_depth" validate:"gte=1"`
		Publish      bool          `yaml:"publish_redis"`
	} `yaml:"sim"`
}

// Default returns the built-in configuration.
func Default() *Config {
	c := &Config{LogLevel: "info"}
	c.Feed.Source = SourceWS
	c.Feed.WSURL = "ws://localhost:8081/ws"
	c.Feed.RedisAddr = "localhost:6379"
	c.Feed.ReplaySpeed = 1

	c.Chart.Symbol = "AAPL"
	c.Chart.Timeframe = model.TF1m.String()
	c.Chart.TickSize = 0.01
	c.Chart.MinLevels = 100
	c.Chart.CandlesVisible = 80
	c.Chart.RowHeight = 18
	c.Chart.FPS = 60
	c.Chart.Width = 1200
	c.Chart.Height = 600
	c.Chart.DepthWidth = 240
	c.Chart.BookHeight = 540

	c.Snapshot.Every = 5 * time.Second

	c.Store.SQLitePath = "data/ticks.db"
	c.Store.History = 24 * time.Hour

	c.HTTP.Addr = ":9090"

	c.Sim.Addr = ":8081"
	c.Sim.Symbols = []string{"AAPL", "MSFT"}
	c.Sim.StartPrice = 100
	c.Sim.TickInterval = 100 * time.Millisecond
	c.Sim.BookInterval = 250 * time.Millisecond
	c.Sim.BookDepth = 40
	return c
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is non-empty) and environment overrides, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks struct tags plus the rules that span fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if _, err := model.ParseTimeframe(c.Chart.Timeframe); err != nil {
		return err
	}
	switch c.Feed.Source {
	case SourceWS:
		if !strings.HasPrefix(c.Feed.WSURL, "ws://") && !strings.HasPrefix(c.Feed.WSURL, "wss://") {
			return fmt.Errorf("feed.ws_url must be a ws:// or wss:// URL, got %q", c.Feed.WSURL)
		}
	case SourceRedis:
		if c.Feed.RedisAddr == "" {
			return errors.New("feed.redis_addr is required for the redis source")
		}
	case SourceReplay:
		if c.Store.SQLitePath == "" {
			return errors.New("store.sqlite_path is required for the replay source")
		}
	}
	return nil
}

// TF returns the parsed chart timeframe. Validate guarantees it parses.
func (c *Config) TF() model.Timeframe {
	tf, err := model.ParseTimeframe(c.Chart.Timeframe)
	if err != nil {
		return model.TF1m
	}
	return tf
}

func overrideWithEnv(c *Config) {
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.Feed.Source = getEnv("FEED_SOURCE", c.Feed.Source)
	c.Feed.WSURL = getEnv("FEED_WS_URL", c.Feed.WSURL)
	c.Feed.RedisAddr = getEnv("REDIS_ADDR", c.Feed.RedisAddr)
	c.Feed.RedisPassword = getEnv("REDIS_PASSWORD", c.Feed.RedisPassword)
	c.Feed.ReplaySpeed = getEnvFloat("REPLAY_SPEED", c.Feed.ReplaySpeed)

	c.Chart.Symbol = getEnv("CHART_SYMBOL", c.Chart.Symbol)
	c.Chart.Timeframe = getEnv("CHART_TIMEFRAME", c.Chart.Timeframe)
	c.Chart.TickSize = getEnvFloat("CHART_TICK_SIZE", c.Chart.TickSize)
	c.Chart.FPS = getEnvInt("CHART_FPS", c.Chart.FPS)

	c.Snapshot.Dir = getEnv("SNAPSHOT_DIR", c.Snapshot.Dir)
	c.Snapshot.Every = getEnvDuration("SNAPSHOT_EVERY", c.Snapshot.Every)

	c.Store.SQLitePath = getEnv("SQLITE_PATH", c.Store.SQLitePath)
	c.Store.History = getEnvDuration("HISTORY_WINDOW", c.Store.History)

	c.HTTP.Addr = getEnv("METRICS_ADDR", c.HTTP.Addr)

	c.Sim.Addr = getEnv("SIM_ADDR", c.Sim.Addr)
	if v := getEnv("SIM_SYMBOLS", ""); v != "" {
		c.Sim.Symbols = splitList(v)
	}
	c.Sim.Publish = getEnvBool("SIM_PUBLISH_REDIS", c.Sim.Publish)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("config: ignoring invalid int", "key", key, "value", v)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("config: ignoring invalid float", "key", key, "value", v)
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config: ignoring invalid bool", "key", key, "value", v)
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config: ignoring invalid duration", "key", key, "value", v)
		return fallback
	}
	return d
}
