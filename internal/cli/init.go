// Package cli provides common startup helpers shared by cmd/fintrack
// and cmd/fintrack-worker.
package cli

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"fintrack/internal/config"
	"fintrack/internal/kvstore"
	applog "fintrack/internal/log"
	"fintrack/internal/remote"
)

// Bootstrap loads the optional .env file and installs the default
// structured logger. Call this first in every binary.
func Bootstrap() *slog.Logger {
	// .env is for local development only, missing files are fine.
	_ = godotenv.Load()
	return applog.Setup(applog.LevelFromEnv())
}

// MustConfig loads configuration and validates it, exiting the
// process on failure.
func MustConfig(logger *slog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// MustStore opens the local SQLite store, exiting the process on failure.
func MustStore(logger *slog.Logger, path string) *kvstore.Store {
	store, err := kvstore.Open(path)
	if err != nil {
		logger.Error("Failed to open local store", "error", err, "path", path)
		os.Exit(1)
	}
	return store
}

// MustFeed connects a change feed on the given queue, exiting the
// process on failure.
func MustFeed(logger *slog.Logger, url, exchange, queue string) *remote.Feed {
	feed, err := remote.NewFeed(url, exchange, queue)
	if err != nil {
		logger.Error("Failed to connect change feed", "error", err, "queue", queue)
		os.Exit(1)
	}
	return feed
}
