package redact

import (
	"strings"
)

// sensitiveKeys are matched exactly after normalisation.
var sensitiveKeys = map[string]struct{}{
	"password":      {},
	"passwd":        {},
	"pwd":           {},
	"secret":        {},
	"client_secret": {},
	"token":         {},
	"access_token":  {},
	"refresh_token": {},
	"id_token":      {},
	"api_key":       {},
	"apikey":        {},
	"x_api_key":     {},
	"authorization": {},
	"cookie":        {},
	"set_cookie":    {},
	"credentials":   {},
	"private_key":   {},
	"session":       {},
	"ssn":           {},
	"credit_card":   {},
	"card_number":   {},
	"cvv":           {},
}

// sensitiveStems are matched as substrings after normalisation.
var sensitiveStems = []string{"password", "secret", "token", "api_key", "credential", "private_key"}

func normaliseKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	return strings.NewReplacer("-", "_", " ", "_").Replace(k)
}

// IsSensitiveKey reports whether a map key names a value that must never be
// logged. Matching is case-insensitive and treats '-' and '_' alike.
func IsSensitiveKey(key string) bool {
	k := normaliseKey(key)
	if _, ok := sensitiveKeys[k]; ok {
		return true
	}
	for _, stem := range sensitiveStems {
		if strings.Contains(k, stem) {
			return true
		}
	}
	return false
}

// Value returns a redacted deep copy of v. Values under sensitive keys are
// replaced with RedactionPlaceholder; strings elsewhere pass through LogString.
// Maps, slices, headers and authorizer claims are walked recursively. The input
// is never modified.
func Value(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return LogString(val)
	case map[string]any:
		return Map(val)
	case map[string]string:
		out := make(map[string]string, len(val))
		for k, s := range val {
			if IsSensitiveKey(k) {
				out[k] = RedactionPlaceholder
				continue
			}
			out[k] = LogString(s)
		}
		return out
	case map[string][]string:
		out := make(map[string][]string, len(val))
		for k, list := range val {
			if IsSensitiveKey(k) {
				out[k] = []string{RedactionPlaceholder}
				continue
			}
			cp := make([]string, len(list))
			for i, s := range list {
				cp[i] = LogString(s)
			}
			out[k] = cp
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Value(item)
		}
		return out
	case []string:
		out := make([]string, len(val))
		for i, s := range val {
			out[i] = LogString(s)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(val))
		for i, m := range val {
			out[i] = Map(m)
		}
		return out
	default:
		return v
	}
}

// Map returns a redacted deep copy of m. See Value.
func Map(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, item := range m {
		if IsSensitiveKey(k) {
			out[k] = RedactionPlaceholder
			continue
		}
		out[k] = Value(item)
	}
	return out
}
