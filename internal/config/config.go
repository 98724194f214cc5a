// Package config loads appblock settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/eliteGoblin/focusd/app_block/internal/daemon"
	"github.com/eliteGoblin/focusd/app_block/internal/logging"
	"github.com/eliteGoblin/focusd/app_block/internal/usecase"
)

// envPrefix is prepended to every variable, e.g. APPBLOCK_LISTEN_ADDR.
const envPrefix = "APPBLOCK"

// Config holds all appblock configuration.
type Config struct {
	DataDir    string `envconfig:"DATA_DIR"`
	ListenAddr string `envconfig:"LISTEN_ADDR" default:"127.0.0.1:7878"`

	RefreshInterval   time.Duration `envconfig:"REFRESH_INTERVAL" default:"30s"`
	HeartbeatInterval time.Duration `envconfig:"HEARTBEAT_INTERVAL" default:"30s"`
	TickInterval      time.Duration `envconfig:"TICK_INTERVAL" default:"275ms"`
	ReblockInterval   time.Duration `envconfig:"REBLOCK_INTERVAL" default:"1500ms"`

	Overlay    string   `envconfig:"OVERLAY" default:"suspend"`
	SelfAppID  string   `envconfig:"SELF_APP_ID" default:"appblock"`
	ExemptApps []string `envconfig:"EXEMPT_APPS"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogDev   bool   `envconfig:"LOG_DEV" default:"false"`
	LogFile  string `envconfig:"LOG_FILE"`

	UnlockRPS   float64 `envconfig:"UNLOCK_RPS" default:"1"`
	UnlockBurst int     `envconfig:"UNLOCK_BURST" default:"5"`
}

// Load reads the optional env files (".env" when none are given) and then
// the APPBLOCK_* environment. Variables already set win over file values.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		ListenAddr:        "127.0.0.1:7878",
		RefreshInterval:   30 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		TickInterval:      usecase.DefaultTickInterval,
		ReblockInterval:   usecase.DefaultMinReblockInterval,
		Overlay:           "suspend",
		SelfAppID:         "appblock",
		LogLevel:          "info",
		UnlockRPS:         1,
		UnlockBurst:       5,
	}
}

// Validate rejects settings the daemon cannot run with.
func (c *Config) Validate() error {
	switch c.Overlay {
	case "log", "suspend":
	default:
		return fmt.Errorf("invalid overlay %q: want log or suspend", c.Overlay)
	}
	if c.TickInterval <= 0 || c.RefreshInterval <= 0 || c.HeartbeatInterval <= 0 {
		return errors.New("intervals must be positive")
	}
	if c.ReblockInterval < 0 {
		return errors.New("reblock interval must not be negative")
	}
	if c.UnlockRPS <= 0 || c.UnlockBurst <= 0 {
		return errors.New("unlock rate limit must be positive")
	}
	return nil
}

// Engine maps the config onto the engine's settings.
func (c *Config) Engine() usecase.EngineConfig {
	engine := usecase.DefaultEngineConfig()
	engine.Loop.TickInterval = c.TickInterval
	engine.Monitor.MinReblockInterval = c.ReblockInterval
	engine.SelfAppID = c.SelfAppID
	engine.ExemptApps = c.ExemptApps
	return engine
}

// Blocker maps the config onto the daemon's settings.
func (c *Config) Blocker() daemon.BlockerConfig {
	return daemon.BlockerConfig{
		RefreshInterval:   c.RefreshInterval,
		HeartbeatInterval: c.HeartbeatInterval,
	}
}

// Logging maps the config onto the logger's settings. Without a log file the
// logger writes to stderr so stdout stays free for CLI output.
func (c *Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.LogLevel
	cfg.Development = c.LogDev
	if c.LogFile != "" {
		cfg.OutputPaths = []string{c.LogFile}
	}
	return cfg
}
