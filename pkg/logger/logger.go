// Package logger configures the process-wide slog logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

var globalLogger *slog.Logger

// InitLogger initializes slog at the given level ("debug", "info", "warn"
// or "error"), writing to stdout, and installs it as the default logger.
func InitLogger(level string) error {
	return InitLoggerTo(os.Stdout, level)
}

// InitLoggerTo is InitLogger with a caller-supplied output, so tests can
// capture log lines.
func InitLoggerTo(w io.Writer, level string) error {
	slogLevel, err := parseLevel(level)
	if err != nil {
		return err
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slogLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)

	return nil
}

func parseLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level: %s", level)
}

// GetLogger returns the global logger, falling back to slog's default
// when InitLogger has not been called yet.
func GetLogger() *slog.Logger {
	if globalLogger == nil {
		return slog.Default()
	}
	return globalLogger
}
