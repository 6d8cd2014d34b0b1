package config

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ParseLevel maps a configured level name to a slog level
func ParseLevel(level string) slog.Level {
	switch level {
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

// NewLogger builds the application logger. Output goes to stderr, or to a
// size-rotated file when one is configured. The returned closer releases
// the file.
func NewLogger(config LoggingConfig) (*slog.Logger, io.Closer) {
	var out io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}

	if config.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   config.File,
			MaxSize:    config.MaxSizeMB,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAgeDays,
			Compress:   config.Compress,
		}
		out = rotator
		closer = rotator
	}

	return slog.New(newHandler(out, config)), closer
}

func newHandler(out io.Writer, config LoggingConfig) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(config.Level)}
	if config.Format == "json" {
		return slog.NewJSONHandler(out, opts)
	}
	return slog.NewTextHandler(out, opts)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
