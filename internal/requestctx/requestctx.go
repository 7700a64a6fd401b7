// Package requestctx carries the per-request values that domain code logs
// with, so packages below the HTTP layer can correlate without importing it.
package requestctx

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	actorKey
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	if value, ok := ctx.Value(requestIDKey).(string); ok {
		return value
	}
	return ""
}

// WithActor records the employee acting on the request.
func WithActor(ctx context.Context, employeeID string) context.Context {
	return context.WithValue(ctx, actorKey, employeeID)
}

func GetActor(ctx context.Context) string {
	if value, ok := ctx.Value(actorKey).(string); ok {
		return value
	}
	return ""
}

// Logger returns the default logger tagged with whatever request id and actor
// ctx carries. Background jobs get the untagged default.
func Logger(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if id := GetRequestID(ctx); id != "" {
		logger = logger.With("requestId", id)
	}
	if actor := GetActor(ctx); actor != "" {
		logger = logger.With("actorId", actor)
	}
	return logger
}
