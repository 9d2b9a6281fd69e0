// Package logging provides request ID context propagation so one bot
// query can be traced across the gateway and fetcher log lines.
package logging

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const requestIDKey contextKey = "requestId"

// GenerateRequestID creates a short correlation ID.
func GenerateRequestID() string {
	id := uuid.NewString()
	return strings.SplitN(id, "-", 2)[0]
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
// Returns empty string if not found.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
