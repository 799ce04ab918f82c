package logger

import (
	"log/slog"
	"os"
)

// New returns the structured JSON logger used across the service. Level
// defaults to info; LOG_LEVEL=debug flips on debug output.
func New() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}
