package domain

import (
	"context"
)

// Logger defines the interface for logging within the application.
// All methods take a context.Context first so that request and event
// identifiers stored in it end up on every line.
// The variadic fields are alternating key/value pairs.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...any)
	Info(ctx context.Context, msg string, fields ...any)
	Warn(ctx context.Context, msg string, fields ...any)
	Error(ctx context.Context, msg string, fields ...any)
	Fatal(ctx context.Context, msg string, fields ...any) // Fatal will call os.Exit(1) after logging

	// With creates a child logger with the provided structured context fields.
	With(fields ...any) Logger
}
