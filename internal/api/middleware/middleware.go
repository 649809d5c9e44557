package middleware

import (
	"context"
	"log/slog"
	"math"
	"time"
)

// Request is the platform-neutral unit of work passed down the chain.
// Event holds the decoded platform event (an API Gateway proxy event, or the
// HTTP request projected into the same shape). Platform holds the runtime
// object the platform supplies alongside it, such as *lambdacontext.LambdaContext
// or *http.Request.
type Request struct {
	Event    map[string]any
	Platform any

	// CorrelationID is set by the logging middleware so that code running
	// outside it, such as a platform adapter rendering an escaped error,
	// reports the same id.
	CorrelationID string
}

// NewRequest creates a Request for the given event and platform object.
func NewRequest(event map[string]any, platform any) *Request {
	return &Request{Event: event, Platform: platform}
}

// Response is the platform-neutral handler result. By convention it carries
// "statusCode", "headers" and "body" keys.
type Response map[string]any

// StatusCode returns the numeric status code carried by r, or 0 when absent.
func (r Response) StatusCode() int {
	switch v := r["statusCode"].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		if v == math.Trunc(v) {
			return int(v)
		}
	}
	return 0
}

// Handler processes a request. Every middleware wraps a Handler and produces
// a new one.
type Handler func(ctx context.Context, req *Request) (Response, error)

// Category places a middleware in one of the fixed ordering buckets.
type Category int

// Ordering buckets, outermost first.
const (
	CategoryLogging Category = iota
	CategoryAuth
	CategoryCustom
	CategoryError
)

// String implements fmt.Stringer.
func (c Category) String() string {
	switch c {
	case CategoryLogging:
		return "logging"
	case CategoryAuth:
		return "auth"
	case CategoryCustom:
		return "custom"
	case CategoryError:
		return "error"
	default:
		return "unknown"
	}
}

// Middleware intercepts a request, optionally doing work before and after
// delegating to next. An implementation may short-circuit by returning without
// calling next.
type Middleware interface {
	Name() string
	Category() Category
	Invoke(ctx context.Context, next Handler, req *Request) (Response, error)
}

// Base carries the attributes shared by every middleware. Concrete middleware
// embed it and implement Invoke.
type Base struct {
	name     string
	category Category
	timeout  time.Duration
}

// NewBase creates a Base. A zero timeout means the middleware runs unbounded.
func NewBase(name string, category Category, timeout time.Duration) Base {
	return Base{name: name, category: category, timeout: timeout}
}

// Name returns the middleware's display name.
func (b Base) Name() string { return b.name }

// Category returns the ordering bucket.
func (b Base) Category() Category { return b.category }

// Timeout returns the per-invocation bound, or zero when unbounded.
func (b Base) Timeout() time.Duration { return b.timeout }

// timeoutBound is implemented by middleware that want their own deadline.
type timeoutBound interface {
	Timeout() time.Duration
}

// Option customises the shared attributes of the built-in middleware.
type Option func(*options)

type options struct {
	name    string
	timeout time.Duration
	logger  *slog.Logger
}

// WithName overrides the middleware display name.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithTimeout bounds every invocation of the middleware.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithLogger sets the logger the middleware writes to. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(defaultName string, opts []Option) options {
	o := options{name: defaultName}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// InvokeFunc is the signature of Middleware.Invoke.
type InvokeFunc func(ctx context.Context, next Handler, req *Request) (Response, error)

type funcMiddleware struct {
	Base
	fn InvokeFunc
}

func (f *funcMiddleware) Invoke(ctx context.Context, next Handler, req *Request) (Response, error) {
	return f.fn(ctx, next, req)
}

// Func adapts a plain function into a Middleware in the given category.
func Func(name string, category Category, fn InvokeFunc, opts ...Option) Middleware {
	o := buildOptions(name, opts)
	return &funcMiddleware{Base: NewBase(o.name, category, o.timeout), fn: fn}
}
