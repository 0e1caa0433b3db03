// Package logkit builds the structured loggers used across the system and
// carries them through context.Context.
package logkit

import (
	"context"
	"io"
	"log/slog"
)

// New creates a configured slog.Logger. It does not touch the global
// default, so independent managers can log at different levels. Unknown
// levels fall back to info; any format other than "json" selects text.
func New(level, format string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

type key struct{}

var loggerKey = key{}

// WithLogger embeds a logger in the context.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, log)
}

// FromContext extracts the logger from the context, falling back to
// slog.Default. Module handlers use this to pick up the manager's logger
// without holding a reference themselves.
func FromContext(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return log
	}
	return slog.Default()
}
