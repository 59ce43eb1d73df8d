package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger returns the service's JSON logger on stdout.
func NewLogger(level string) *slog.Logger {
	return New(os.Stdout, level)
}

// New writes JSON records at or above level to w, tagged with the service
// name.
func New(w io.Writer, level string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     levelFromString(level),
		AddSource: true,
	}
	return slog.New(slog.NewJSONHandler(w, opts)).With("service", "ride-booking")
}

func levelFromString(level string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
