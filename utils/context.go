package utils

import (
	"context"
	"time"
)

const (
	// ConnectTimeout bounds connecting to backing services at startup
	ConnectTimeout = 10 * time.Second

	// LongTimeout is for operations that may take longer (graceful shutdown)
	LongTimeout = 30 * time.Second

	// ShortTimeout is for quick operations (rate limit lookups, readiness probes)
	ShortTimeout = 2 * time.Second
)

type requestIDKey struct{}

// WithLongTimeout creates a context with long timeout for operations that may take longer
func WithLongTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, LongTimeout)
}

// WithConnectTimeout creates a context for startup connection checks
func WithConnectTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, ConnectTimeout)
}

// WithShortTimeout creates a context with short timeout for quick operations
func WithShortTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, ShortTimeout)
}

// WithRequestID stores the request id for code below the HTTP layer.
func WithRequestID(parent context.Context, requestID string) context.Context {
	return context.WithValue(parent, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the id stored by WithRequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
