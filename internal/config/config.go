// Package config holds the server's file-based configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQL    = "sql"
)

type Config struct {
	HTTPAddr  string          `yaml:"http_addr"`
	Namespace string          `yaml:"namespace"`
	SeedDir   string          `yaml:"seed_dir"`
	Storage   StorageConfig   `yaml:"storage"`
	Simulator SimulatorConfig `yaml:"simulator"`
}

type StorageConfig struct {
	Backend string      `yaml:"backend"`
	Redis   RedisConfig `yaml:"redis"`
	SQL     SQLConfig   `yaml:"sql"`
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
}

type SQLConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type SimulatorConfig struct {
	IntervalMillis int  `yaml:"interval_millis"`
	Autostart      bool `yaml:"autostart"`
}

// Interval converts the configured tick period, zero when unset so the
// engine default applies.
func (s SimulatorConfig) Interval() time.Duration {
	return time.Duration(s.IntervalMillis) * time.Millisecond
}

// Default is the configuration used when no file is given.
func Default() Config {
	return Config{
		HTTPAddr:  ":8080",
		Namespace: "stockpilot:",
		SeedDir:   "data",
		Storage: StorageConfig{
			Backend: BackendMemory,
			Redis:   RedisConfig{Addr: "localhost:6379"},
			SQL:     SQLConfig{Driver: "sqlite", DSN: "stockpilot.db"},
		},
	}
}

// Load reads and parses a configuration file, applies defaults for
// empty fields and environment overrides, then validates.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides file values from the environment. Validate runs
// after this, so a bad STOCKPILOT_BACKEND still fails the load.
func (c *Config) applyEnv() {
	if v := os.Getenv("STOCKPILOT_HTTP_ADDR"); v != "" {
		c.HTTPAddr = v
	}
	if v := os.Getenv("STOCKPILOT_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("STOCKPILOT_NAMESPACE"); v != "" {
		c.Namespace = v
	}
	if v := os.Getenv("STOCKPILOT_SEED_DIR"); v != "" {
		c.SeedDir = v
	}
	if v := os.Getenv("STOCKPILOT_SIM_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			c.Simulator.IntervalMillis = ms
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Storage.Redis.Addr = v
	}
	if v := os.Getenv("SQL_DSN"); v != "" {
		c.Storage.SQL.DSN = v
	}
}

func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendRedis, BackendSQL:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Simulator.IntervalMillis < 0 {
		return fmt.Errorf("simulator interval must not be negative")
	}
	return nil
}
