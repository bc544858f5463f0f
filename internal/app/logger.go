package app

import (
	"io"
	"log/slog"
)

// newLogger builds the application logger. Level strings follow slog's own
// spelling (debug, info, warn, error); anything unparseable falls back to
// info instead of failing startup. The global logger is left untouched so
// tests can run isolated instances.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if formatStr == "json" {
		return slog.New(slog.NewJSONHandler(outW, opts))
	}
	return slog.New(slog.NewTextHandler(outW, opts))
}
