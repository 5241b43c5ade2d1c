package logger

import (
	"log/slog"
	"os"
)

// New returns the application logger. Level defaults to info; set
// LOG_LEVEL=debug for verbose gateway request logging.
func New() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
