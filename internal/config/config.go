package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v8"
)

const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

type Config struct {
	// Database
	SQLiteDBPath string `env:"SQLITE_DB_PATH" envDefault:"./data/expenses.db"`

	// Category configuration file
	CategoriesPath string `env:"CATEGORIES_PATH" envDefault:"./data/categories.json"`

	// MCP transport: stdio or http
	Transport string `env:"MCP_TRANSPORT" envDefault:"stdio"`
	Port      string `env:"PORT" envDefault:"8081"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Proxy: remote server the stdio proxy forwards to
	RemoteURL string `env:"REMOTE_URL" envDefault:""`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty")
	}
	if c.CategoriesPath == "" {
		errs = append(errs, "categories file path cannot be empty")
	}

	switch c.Transport {
	case TransportStdio, TransportHTTP:
	default:
		errs = append(errs, fmt.Sprintf("invalid transport '%s': must be '%s' or '%s'",
			c.Transport, TransportStdio, TransportHTTP))
	}

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if c.RemoteURL != "" {
		if parsed, err := url.Parse(c.RemoteURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid remote URL '%s': %v", c.RemoteURL, err))
		} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
			errs = append(errs, fmt.Sprintf("invalid remote URL scheme '%s': must be 'http' or 'https'", parsed.Scheme))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
