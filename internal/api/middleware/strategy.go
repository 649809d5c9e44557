package middleware

import (
	"context"
)

// RequestSource exposes the two platform pieces of a request: the event and
// the runtime context object. Implementations return ErrMissingEvent or
// ErrMissingPlatformContext when either is absent.
type RequestSource interface {
	RequestData(req *Request) (map[string]any, any, error)
}

// AuthStrategy extracts identity from a platform request.
type AuthStrategy interface {
	RequestSource

	// ExtractAuthContext builds the AuthContext for req. An unauthenticated
	// request yields an AuthContext with IsAuthenticated false, not an error.
	ExtractAuthContext(ctx context.Context, req *Request) (*AuthContext, error)

	// InjectAuthContext makes ac visible to downstream handlers.
	InjectAuthContext(ctx context.Context, req *Request, ac *AuthContext) context.Context

	// Cleanup releases per-request state. It runs once per invocation whether
	// or not the invocation succeeded.
	Cleanup(ctx context.Context)
}

// LogContext is the request metadata a logging strategy extracts.
type LogContext struct {
	CorrelationID string
	Function      map[string]any
	Request       map[string]any
}

// LoggingStrategy extracts logging metadata from a platform request.
type LoggingStrategy interface {
	RequestSource
	ExtractLoggingContext(ctx context.Context, req *Request) (LogContext, error)
	InjectLoggingContext(ctx context.Context, req *Request, lc LogContext) context.Context
	Cleanup(ctx context.Context)
}

// ErrorStrategy shapes error output for a platform.
type ErrorStrategy interface {
	RequestSource

	// ExtractErrorContext returns request metadata (path, method, request id)
	// attached to error responses. It never fails.
	ExtractErrorContext(ctx context.Context, req *Request) map[string]any

	// InjectErrorContext records ec on the request for downstream handlers.
	InjectErrorContext(ctx context.Context, req *Request, ec map[string]any) context.Context

	// FormatErrorResponse renders er into the platform's response shape.
	FormatErrorResponse(er ErrorResponse) Response

	Cleanup(ctx context.Context)
}

// NopCleanup provides a Cleanup method that does nothing.
type NopCleanup struct{}

// Cleanup does nothing.
func (NopCleanup) Cleanup(context.Context) {}

type errorContextKey struct{}

// WithErrorContext returns a copy of ctx carrying ec.
func WithErrorContext(ctx context.Context, ec map[string]any) context.Context {
	return context.WithValue(ctx, errorContextKey{}, ec)
}

// ErrorContextFrom returns the error context stored in ctx, if any.
func ErrorContextFrom(ctx context.Context) map[string]any {
	ec, _ := ctx.Value(errorContextKey{}).(map[string]any)
	return ec
}
