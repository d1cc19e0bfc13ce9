package shared

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Key type for context values
type ContextKey string

// Context keys for various values
const (
	// OwnerIDContextKey is the context key for the requesting owner's identity
	OwnerIDContextKey ContextKey = "ownerID"

	// TraceIDKey is the key for the trace ID in the request context
	TraceIDKey ContextKey = "traceID"
)

// SetTraceID adds a fresh 32-character hex trace ID to the context.
// This is useful for correlating logs and error responses.
func SetTraceID(ctx context.Context) context.Context {
	return context.WithValue(ctx, TraceIDKey, generateTraceID())
}

// GetTraceID retrieves the trace ID from the context.
// If no trace ID exists, it returns an empty string.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// SetOwnerID stores the owner identity for the request.
func SetOwnerID(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, OwnerIDContextKey, ownerID)
}

// GetOwnerID returns the owner identity placed in the context by the owner
// middleware, or "" when absent.
func GetOwnerID(ctx context.Context) string {
	ownerID, _ := ctx.Value(OwnerIDContextKey).(string)
	return ownerID
}

func generateTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
