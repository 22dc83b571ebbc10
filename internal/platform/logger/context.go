package logger

import (
	"context"
	"log/slog"
)

// loggerKey is the context key for the request-scoped logger.
// It is unexported to guarantee collisions are impossible.
type loggerKey struct{}

// WithLogger returns a copy of ctx carrying the given logger.
// Middleware attaches a request-scoped logger (trace ID and friends
// already bound) so downstream code logs with full request context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext retrieves the logger stored in ctx.
// It falls back to slog.Default() when none is stored, so callers can
// use the result unconditionally.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// FromContextOrDefault retrieves the logger stored in ctx, or returns
// defaultLogger when none is stored. Use this where a component carries
// its own logger and the context one is only an override.
func FromContextOrDefault(ctx context.Context, defaultLogger *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	if defaultLogger != nil {
		return defaultLogger
	}
	return slog.Default()
}
