// Package redact provides utilities for redacting sensitive information from strings
// and structured values before they are logged or returned in error responses. This
// package helps prevent the accidental leakage of credentials, connection strings,
// file paths, stack traces, personal data and internal topology that might be
// included in error messages or request events.
//
// Every function in this package is idempotent: redacting already-redacted input
// returns it unchanged.
package redact

import (
	"regexp"
)

// Constants for redaction placeholders
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedJWTPlaceholder        = "[REDACTED_JWT]"
	RedactedEmailPlaceholder      = "[REDACTED_EMAIL]"
	RedactedIPPlaceholder         = "[REDACTED_IP]"
	RedactedStackTracePlaceholder = "[STACK_TRACE_REDACTED]"
	RedactedTypePlaceholder       = "[REDACTED_TYPE]"
	RedactedServicePlaceholder    = "[REDACTED_SERVICE]"
)

// maxPasses bounds the fixed-point loop in apply.
const maxPasses = 4

type rule struct {
	re          *regexp.Regexp
	placeholder string
}

// Precompiled regex patterns
var (
	// Database connection strings
	dbConnRegex = regexp.MustCompile(
		`(?i)(postgres|postgresql|mysql|mongodb|redis|amqp|db|database|connection)://[^@\s]+@`,
	)

	// Credentials and tokens
	passwordRegex = regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]?['"]?)[^'"&\s]{3,}`)
	apiKeyRegex   = regexp.MustCompile(
		`(?i)(api[_-]?key|token|secret|key|access|auth)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`,
	)
	awsKeyRegex = regexp.MustCompile(`(AKIA|AccessKey(Id)?)([^a-zA-Z0-9])?[A-Z0-9]{8,}`)
	// JWT token pattern - matches the standard three-part base64url-encoded JWT token format
	jwtTokenRegex = regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`)
	bearerRegex   = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9\-._~+/]{8,}=*`)

	// File paths
	unixPathRegex = regexp.MustCompile(`(/[\w.-]+){2,}`)
	winPathRegex  = regexp.MustCompile(`[A-Za-z]:\\[^\\]+(\\[^\\]+)+`)

	// Stack trace fragments: Go goroutine dumps, panics, and file:line frames.
	stackTraceRegex = regexp.MustCompile(`(?:goroutine \d+|panic:)[\s\S]*?(\n\t.*)+`)
	frameRegex      = regexp.MustCompile(`(?m)^\s*(?:at\s+)?\S+\.go:\d+(?: \+0x[0-9a-f]+)?\s*$`)
	tracebackRegex  = regexp.MustCompile(`Traceback \(most recent call last\):[\s\S]*`)

	// Email addresses
	emailRegex = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

	// IP addresses
	ipv4Regex = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	ipv6Regex = regexp.MustCompile(`\b(?:[0-9a-fA-F]{1,4}:){7}[0-9a-fA-F]{1,4}\b`)

	// PII
	ssnRegex        = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	creditCardRegex = regexp.MustCompile(`\b(?:\d{4}[ -]?){3}\d{4}\b`)

	// SQL queries and fragments
	sqlRegex = regexp.MustCompile(
		`(?i)(SELECT|INSERT|UPDATE|DELETE|CREATE|ALTER|DROP|GRANT)[\s\w,*()]+(?:FROM|INTO|SET|TABLE|DATABASE|SCHEMA|VIEW)(?:[\s\w,*()='"]+)?`,
	)

	// Internal details: Go type names, import paths, AWS resource names and
	// internal service hostnames.
	goTypeRegex    = regexp.MustCompile(`\*?\b[a-z][a-z0-9_]*\.[A-Z][A-Za-z0-9_]*(?:\[[^\]]*\])?`)
	importPathRe   = regexp.MustCompile(`\b(?:github\.com|golang\.org|gopkg\.in|go\.opentelemetry\.io)/[\w./-]+`)
	arnRegex       = regexp.MustCompile(`arn:aws[\w-]*:[\w-]+:[\w-]*:\d{0,12}:[\w:/+=,.@-]+`)
	internalHostRe = regexp.MustCompile(
		`\b[\w-]+(?:\.[\w-]+)*\.(?:internal|local|svc|cluster\.local|amazonaws\.com)(?::\d{1,5})?\b`,
	)

	// Additional sensitive patterns
	lineNumberRegex  = regexp.MustCompile(`(?:at )?line ?\d+`)
	syntaxErrorRegex = regexp.MustCompile(`(?i)syntax error|syntax problem|parse error`)
	hostPortRegex    = regexp.MustCompile(
		`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}(?::\d{1,5})?\b`,
	)
	fileErrorRegex = regexp.MustCompile(
		`(?i)(?:no such file|file not found|can't open|cannot open|file error)`,
	)
)

// Rule sets, applied in order.
var (
	sensitiveRules = []rule{
		{dbConnRegex, RedactedCredentialPlaceholder},
		{passwordRegex, RedactedCredentialPlaceholder},
		{jwtTokenRegex, RedactedJWTPlaceholder},
		{bearerRegex, RedactedCredentialPlaceholder},
		{apiKeyRegex, RedactedKeyPlaceholder},
		{awsKeyRegex, RedactedKeyPlaceholder},
		{emailRegex, RedactedEmailPlaceholder},
		{ssnRegex, RedactionPlaceholder},
		{creditCardRegex, RedactionPlaceholder},
		{ipv4Regex, RedactedIPPlaceholder},
		{ipv6Regex, RedactedIPPlaceholder},
		{sqlRegex, "[REDACTED_SQL]"},
	}

	stackTraceRules = []rule{
		{tracebackRegex, RedactedStackTracePlaceholder},
		{stackTraceRegex, RedactedStackTracePlaceholder},
		{frameRegex, RedactedStackTracePlaceholder},
	}

	internalRules = []rule{
		{arnRegex, RedactedServicePlaceholder},
		{importPathRe, RedactedPathPlaceholder},
		{unixPathRegex, RedactedPathPlaceholder},
		{winPathRegex, RedactedPathPlaceholder},
		{internalHostRe, RedactedServicePlaceholder},
		{goTypeRegex, RedactedTypePlaceholder},
	}

	logRules = []rule{
		{jwtTokenRegex, RedactedJWTPlaceholder},
		{bearerRegex, RedactedCredentialPlaceholder},
		{emailRegex, RedactedEmailPlaceholder},
		{ipv4Regex, RedactedIPPlaceholder},
		{ipv6Regex, RedactedIPPlaceholder},
	}

	// allRules is the aggressive set used for error strings headed to logs.
	allRules = concat(
		sensitiveRules,
		stackTraceRules,
		[]rule{
			{unixPathRegex, RedactedPathPlaceholder},
			{winPathRegex, RedactedPathPlaceholder},
			{lineNumberRegex, "[REDACTED_LINE_NUMBER]"},
			{syntaxErrorRegex, "[REDACTED_SYNTAX_ERROR]"},
			{hostPortRegex, "[REDACTED_HOST]"},
			{fileErrorRegex, "[REDACTED_FILE_ERROR]"},
		},
	)
)

func concat(sets ...[]rule) []rule {
	var out []rule
	for _, s := range sets {
		out = append(out, s...)
	}
	return out
}

// apply runs rules until the output stops changing, so a placeholder produced by
// a later rule can never leave text an earlier rule would still rewrite.
func apply(input string, rules []rule) string {
	if input == "" {
		return input
	}
	result := input
	for i := 0; i < maxPasses; i++ {
		next := result
		for _, r := range rules {
			next = r.re.ReplaceAllString(next, r.placeholder)
		}
		if next == result {
			break
		}
		result = next
	}
	return result
}

// String redacts every category of sensitive information from the input string.
// It is the most aggressive redaction and is meant for error strings that are
// about to be logged.
func String(input string) string {
	return apply(input, allRules)
}

// Error redacts sensitive information from an error's Error() output
func Error(err error) string {
	if err == nil {
		return ""
	}

	return String(err.Error())
}

// Sensitive redacts credentials, connection strings, tokens and PII.
func Sensitive(input string) string {
	return apply(input, sensitiveRules)
}

// StackTraces strips goroutine dumps, panic traces and source frames.
func StackTraces(input string) string {
	return apply(input, stackTraceRules)
}

// InternalDetails redacts file paths, Go type and import names, AWS resource
// names and internal service hostnames.
func InternalDetails(input string) string {
	return apply(input, internalRules)
}

// LogString masks JWT-shaped tokens, bearer credentials, email addresses and
// IP addresses in free text.
func LogString(input string) string {
	return apply(input, logRules)
}
