// Package logging provides the structured JSON logger shared by the
// matchmaker, rating engine, turn driver, and job worker. It mirrors
// the JSON line shape the HTTP layer already emits via
// middleware.Logger, just for code that runs outside a gin request.
package logging

import (
	"log/slog"
	"os"
)

// New returns a JSON logger at the given level ("debug", "info",
// "warn", "error"; anything else falls back to "info").
func New(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}
