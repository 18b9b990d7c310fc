// Package logging defines the structured-logging interface shared by the
// TamteKlipy client packages. The default implementation wraps slog; tests
// plug in buffers or no-op loggers.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key-value pairs, e.g.:
//
//	log.Info(ctx, "chunk uploaded", "upload_id", id, "chunk", n)
type Logger interface {
	// Debug logs fine-grained progress detail (per-chunk events and the like).
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs a warning message for unusual but non-fatal conditions.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs an error message for failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key-value pairs.
	With(args ...any) Logger
}
