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
	// CorrelationIDKey is the key for the correlation id in the request context
	CorrelationIDKey ContextKey = "correlationID"

	// MaxCorrelationIDLength bounds ids accepted from callers.
	MaxCorrelationIDLength = 128
)

// WithCorrelationID returns a copy of ctx carrying id.
// The id is scoped to the returned context; nothing is stored globally.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, id)
}

// GetCorrelationID retrieves the correlation id from the context.
// If no correlation id exists, it returns an empty string.
func GetCorrelationID(ctx context.Context) string {
	id, ok := ctx.Value(CorrelationIDKey).(string)
	if !ok {
		return ""
	}
	return id
}

// NewCorrelationID generates a random correlation id.
func NewCorrelationID() string {
	return uuid.NewString()
}

// SanitizeCorrelationID accepts a caller-supplied id only when it is short and
// made of safe characters; otherwise it returns "".
func SanitizeCorrelationID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > MaxCorrelationIDLength {
		return ""
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.' || r == ':':
		default:
			return ""
		}
	}
	return id
}
