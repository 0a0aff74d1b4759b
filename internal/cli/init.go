// Package cli holds the initialization shared by cmd/expense-mcp and
// cmd/expense-proxy.
package cli

import (
	"os"

	"github.com/joho/godotenv"

	"expensetracker/internal/categories"
	"expensetracker/internal/config"
	applog "expensetracker/internal/log"
	"expensetracker/internal/storage"
)

// LoadEnvFile loads the .env file for local development. Errors are
// ignored silently as the file is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger initializes structured logging at the configured level
// and installs it as the default.
func SetupLogger(level, component string) *applog.Logger {
	return applog.New(applog.ParseLevel(level), component)
}

// LoadAndValidateConfig loads configuration and validates it, exiting
// the process on failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite opens the SQLite repository, exiting the process on
// failure.
func InitSQLite(logger *applog.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// InitCategories loads the category configuration, exiting the process
// on failure.
func InitCategories(logger *applog.Logger, path string) *categories.Store {
	store, err := categories.Load(path)
	if err != nil {
		logger.Error("Failed to load categories", "error", err, "path", path)
		os.Exit(1)
	}
	return store
}
