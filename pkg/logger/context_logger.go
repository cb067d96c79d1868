package logger

import (
	"context"

	"go.uber.org/zap"
)

type contextKey string

const (
	// RequestIDKey carries the correlation ID of the originating request.
	RequestIDKey contextKey = "request_id"
	// UserIDKey carries the authenticated user of the originating request.
	UserIDKey contextKey = "user_id"
)

// WithRequestID stores a request ID in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// RequestIDFrom extracts the request ID from the context, if any.
func RequestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithUserID stores the authenticated user ID in the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// UserIDFrom extracts the authenticated user ID from the context, if any.
func UserIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}

// FromContext returns the logger annotated with the request-scoped fields
// found in ctx.
func FromContext(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	log := base
	if id := RequestIDFrom(ctx); id != "" {
		log = log.With("request_id", id)
	}
	if id := UserIDFrom(ctx); id != "" {
		log = log.With("user_id", id)
	}
	return log
}
