// Package log centralizes structured logging setup and the field
// names shared by the request logger.
package log

import (
	"log/slog"
	"os"
)

// Setup installs the process-wide default logger writing text lines to
// stdout at the given level.
func Setup(level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

// LevelFromEnv maps the LOG_LEVEL variable to a slog level, defaulting
// to info for unknown values.
func LevelFromEnv() slog.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
