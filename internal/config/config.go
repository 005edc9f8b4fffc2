// Package config defines service configuration and how it is loaded.
package config

import (
	"fmt"
	"runtime"
	"strings"
)

// Store drivers accepted by store_driver.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: json or text.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreDriver picks the profile store backend.
	StoreDriver string `koanf:"store_driver"`

	// SQLitePath is the database file when StoreDriver is sqlite.
	SQLitePath string `koanf:"sqlite_path"`

	// CatalogPath optionally names a YAML file of roles and modules seeded at startup.
	CatalogPath string `koanf:"catalog_path"`

	FocusLimit       int `koanf:"focus_limit"`
	FocusSuggestions int `koanf:"focus_suggestions"`

	// ReplayWorkers and ReplayQueueSize size the batch replay pool.
	ReplayWorkers   int `koanf:"replay_workers"`
	ReplayQueueSize int `koanf:"replay_queue_size"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		StoreDriver:      StoreMemory,
		SQLitePath:       "upskill.db",
		FocusLimit:       3,
		FocusSuggestions: 2,
		ReplayWorkers:    runtime.NumCPU(),
		ReplayQueueSize:  1024,
	}
}

// Validate reports the first invalid value, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.StoreDriver != StoreMemory && c.StoreDriver != StoreSQLite:
		return fmt.Errorf("%w: store_driver %q is not memory or sqlite", ErrInvalidConfig, c.StoreDriver)
	case c.StoreDriver == StoreSQLite && strings.TrimSpace(c.SQLitePath) == "":
		return fmt.Errorf("%w: sqlite_path is required for the sqlite driver", ErrInvalidConfig)
	case c.LogFormat != "json" && c.LogFormat != "text":
		return fmt.Errorf("%w: log_format %q is not json or text", ErrInvalidConfig, c.LogFormat)
	case c.FocusLimit < 1:
		return fmt.Errorf("%w: focus_limit must be at least 1", ErrInvalidConfig)
	case c.FocusSuggestions < 0:
		return fmt.Errorf("%w: focus_suggestions must not be negative", ErrInvalidConfig)
	case c.ReplayWorkers < 1:
		return fmt.Errorf("%w: replay_workers must be at least 1", ErrInvalidConfig)
	case c.ReplayQueueSize < 1:
		return fmt.Errorf("%w: replay_queue_size must be at least 1", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	return nil
}

// SQLiteStore reports whether the durable store is configured.
func (c *Config) SQLiteStore() bool { return c.StoreDriver == StoreSQLite }
