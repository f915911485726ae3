package common

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID contextKey = "request_id"
	ContextKeySource    contextKey = "source"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// EnsureRequestID returns ctx carrying a request ID, generating one when absent.
func EnsureRequestID(ctx context.Context) (context.Context, string) {
	if id := RequestIDFromContext(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return WithRequestID(ctx, id), id
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithSource records where an image came from (file path, "grpc", "cli").
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, ContextKeySource, source)
}

func SourceFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(ContextKeySource).(string); ok {
		return s
	}
	return ""
}

// LoggerWith decorates logger with the request-scoped values found in ctx.
func LoggerWith(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if id := RequestIDFromContext(ctx); id != "" {
		logger = logger.With("request_id", id)
	}
	if src := SourceFromContext(ctx); src != "" {
		logger = logger.With("source", src)
	}
	return logger
}
