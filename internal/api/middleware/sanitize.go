package middleware

import (
	"github.com/phrazzld/recipe-api/internal/redact"
)

const maxSanitizePasses = 4

// Sanitizer scrubs caller-facing error text. Sensitive values and internal
// details are always removed; stack traces are removed in production.
// Sanitize is idempotent.
type Sanitizer struct {
	Production bool
}

// Sanitize returns msg with sensitive data removed.
func (s Sanitizer) Sanitize(msg string) string {
	out := msg
	for range maxSanitizePasses {
		next := redact.Sensitive(out)
		if s.Production {
			next = redact.StackTraces(next)
		}
		next = redact.InternalDetails(next)
		if next == out {
			break
		}
		out = next
	}
	return out
}

// SanitizeMap returns a sanitized deep copy of m.
func (s Sanitizer) SanitizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range redact.Map(m) {
		if str, ok := v.(string); ok {
			out[k] = s.Sanitize(str)
			continue
		}
		out[k] = v
	}
	return out
}
