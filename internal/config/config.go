// Package config loads pantry configuration from YAML, .env files and the
// environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/bryan-buckman/pantry/internal/database"
)

// DefaultPath is the config file used when --config is not given.
const DefaultPath = "pantry.yaml"

// Config holds all pantry configuration.
type Config struct {
	Backend  BackendConfig  `yaml:"backend"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// BackendConfig locates the inventory backend.
type BackendConfig struct {
	URL     string `yaml:"url"`
	Timeout string `yaml:"timeout"`
}

// DatabaseConfig selects the local settings store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, postgres
	DSN    string `yaml:"dsn"`
}

// ServerConfig configures the web UI.
type ServerConfig struct {
	Listen          string `yaml:"listen"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
	File   string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:     "http://localhost:8001",
			Timeout: "30s",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "pantry.db",
		},
		Server: ServerConfig{
			Listen:          ":8080",
			ShutdownTimeout: "10s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadDotEnv loads variables from .env files that exist. Variables that
// are already set are kept.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	if d, err := database.NormalizeDriver(cfg.Database.Driver); err == nil {
		cfg.Database.Driver = d
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// The web frontend's variable is honoured so an existing .env works.
	if u := os.Getenv("REACT_APP_BACKEND_URL"); u != "" {
		c.Backend.URL = u
	}
	if u := os.Getenv("PANTRY_BACKEND_URL"); u != "" {
		c.Backend.URL = u
	}
	if d := os.Getenv("PANTRY_DB_DRIVER"); d != "" {
		c.Database.Driver = d
	}
	if dsn := os.Getenv("PANTRY_DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if addr := os.Getenv("PANTRY_LISTEN"); addr != "" {
		c.Server.Listen = addr
	}
	if lvl := os.Getenv("PANTRY_LOG_LEVEL"); lvl != "" {
		c.Logging.Level = lvl
	}
}

// GetBackendTimeout returns the per-request timeout.
func (c *Config) GetBackendTimeout() time.Duration {
	d, err := time.ParseDuration(c.Backend.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// GetShutdownTimeout returns how long the web UI waits for requests on shutdown.
func (c *Config) GetShutdownTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// ValidDrivers lists the supported local store drivers.
var ValidDrivers = []string{database.DriverSQLite, database.DriverPostgres}

// ValidLogLevels lists the accepted log levels.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration. The database driver is left in its
// canonical form.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid backend url %q (set PANTRY_BACKEND_URL or backend.url)", c.Backend.URL)
	}
	driver, err := database.NormalizeDriver(c.Database.Driver)
	if err != nil {
		return fmt.Errorf("invalid database driver: %s (valid: %v)", c.Database.Driver, ValidDrivers)
	}
	c.Database.Driver = driver
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn not configured")
	}
	if !contains(ValidLogLevels, strings.ToLower(c.Logging.Level)) {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("invalid log format: %s (valid: console, json)", c.Logging.Format)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
