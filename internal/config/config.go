// Package config loads server and CLI settings from an optional YAML (or
// JSON) file and then from environment variables, which take precedence.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the complete runtime configuration.
type Config struct {
	Server   ServerConfig   `json:"server" yaml:"server"`
	Store    StoreConfig    `json:"store" yaml:"store"`
	Analysis AnalysisConfig `json:"analysis" yaml:"analysis"`
	// Seed creates the demo parties when the store is empty.
	Seed bool `json:"seed" yaml:"seed"`
}

// ServerConfig contains HTTP listener settings.
type ServerConfig struct {
	Port string `json:"port" yaml:"port"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Driver      string `json:"driver" yaml:"driver"` // "memory", "sqlite" or "postgres"
	SQLitePath  string `json:"sqlite_path,omitempty" yaml:"sqlite_path,omitempty"`
	DatabaseURL string `json:"database_url,omitempty" yaml:"database_url,omitempty"`
	// RedisURL enables the read-through cache in front of the driver.
	RedisURL string `json:"redis_url,omitempty" yaml:"redis_url,omitempty"`
	CacheTTL string `json:"cache_ttl" yaml:"cache_ttl"` // e.g. "30s"
}

// AnalysisConfig configures contract analysis. An empty APIKey disables it.
type AnalysisConfig struct {
	APIKey   string `json:"-" yaml:"-"`
	Model    string `json:"model" yaml:"model"`
	Interval string `json:"interval" yaml:"interval"` // minimum time between calls
}

// CacheTTLDuration parses CacheTTL.
func (s StoreConfig) CacheTTLDuration() (time.Duration, error) {
	return time.ParseDuration(s.CacheTTL)
}

// IntervalDuration parses Interval.
func (a AnalysisConfig) IntervalDuration() (time.Duration, error) {
	return time.ParseDuration(a.Interval)
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080"},
		Store: StoreConfig{
			Driver:     DriverMemory,
			SQLitePath: "ledger.db",
			CacheTTL:   "30s",
		},
		Analysis: AnalysisConfig{
			Model:    "gemini-2.0-flash",
			Interval: "1s",
		},
		Seed: true,
	}
}

// Load reads path (skipped when empty) over the defaults, applies the
// environment and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, c); err != nil {
		if jerr := json.Unmarshal(data, c); jerr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): %w", jerr)
		}
	}
	return nil
}

// ApplyEnv overrides fields from environment variables. Unset or empty
// variables leave the field as is.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Server.Port, "PORT")
	set(&c.Store.Driver, "LEDGER_STORE")
	set(&c.Store.SQLitePath, "LEDGER_SQLITE_PATH")
	set(&c.Store.DatabaseURL, "DATABASE_URL")
	set(&c.Store.RedisURL, "REDIS_URL")
	set(&c.Store.CacheTTL, "LEDGER_CACHE_TTL")
	set(&c.Analysis.APIKey, "GEMINI_API_KEY")
	set(&c.Analysis.Model, "LEDGER_ANALYSIS_MODEL")
	set(&c.Analysis.Interval, "LEDGER_ANALYSIS_INTERVAL")

	if v := getenv("LEDGER_SEED"); v != "" {
		seed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LEDGER_SEED: %w", err)
		}
		c.Seed = seed
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("store.database_url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("store.driver must be memory, sqlite or postgres, got %q", c.Store.Driver)
	}
	if ttl, err := c.Store.CacheTTLDuration(); err != nil || ttl <= 0 {
		return fmt.Errorf("store.cache_ttl must be a positive duration, got %q", c.Store.CacheTTL)
	}
	if iv, err := c.Analysis.IntervalDuration(); err != nil || iv <= 0 {
		return fmt.Errorf("analysis.interval must be a positive duration, got %q", c.Analysis.Interval)
	}
	return nil
}
