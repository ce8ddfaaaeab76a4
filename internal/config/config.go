package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// FileEnv names the environment variable pointing at an optional YAML
// config file. Values from the file are overridden by the environment.
const FileEnv = "SNOOZE_CONFIG"

type Config struct {
	// Frontend
	Host     string `env:"HOST"      yaml:"host"`
	Port     int    `env:"PORT"      yaml:"port"`
	BaseURL  string `env:"BASE_URL"  yaml:"baseUrl"`
	LogLevel string `env:"LOG_LEVEL" yaml:"logLevel"`

	// Backend API
	APIBaseURL string        `env:"API_BASE_URL" yaml:"apiBaseUrl"`
	APITimeout time.Duration `env:"API_TIMEOUT"  yaml:"apiTimeout"` // 0 means no timeout

	// Sessions
	SessionIdleTTL   time.Duration `env:"SESSION_IDLE_TTL"   yaml:"sessionIdleTtl"`
	SessionSweepSpec string        `env:"SESSION_SWEEP_SPEC" yaml:"sessionSweepSpec"`
	EventRateLimit   int           `env:"EVENT_RATE_LIMIT"   yaml:"eventRateLimit"` // per window
	RateLimitWindow  time.Duration `env:"RATE_LIMIT_WINDOW"  yaml:"rateLimitWindow"`

	// Dev backend
	DevAPIHost     string        `env:"DEVAPI_HOST"      yaml:"devapiHost"`
	DevAPIPort     int           `env:"DEVAPI_PORT"      yaml:"devapiPort"`
	DatabasePath   string        `env:"DATABASE_PATH"    yaml:"databasePath"`
	TokenTTL       time.Duration `env:"TOKEN_TTL"        yaml:"tokenTtl"`
	TokenSweepSpec string        `env:"TOKEN_SWEEP_SPEC" yaml:"tokenSweepSpec"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Host:             "0.0.0.0",
		Port:             8080,
		BaseURL:          "http://localhost:8080",
		LogLevel:         "info",
		APIBaseURL:       "http://localhost:5000",
		SessionIdleTTL:   2 * time.Hour,
		SessionSweepSpec: "@every 10m",
		EventRateLimit:   120,
		RateLimitWindow:  time.Minute,
		DevAPIHost:       "127.0.0.1",
		DevAPIPort:       5000,
		DatabasePath:     "snooze.db",
		TokenTTL:         24 * time.Hour,
		TokenSweepSpec:   "@hourly",
	}
}

// Load builds the config from defaults, the optional YAML file named by
// SNOOZE_CONFIG, and the environment, in that order.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
