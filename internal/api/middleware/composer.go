package middleware

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"slices"
	"strings"
	"sync"
	"time"
)

// TimeoutResponse returns the response produced when the chain overruns its
// deadline. It is a success-path value, not an error.
func TimeoutResponse() Response {
	return Response{"statusCode": 408, "error": "Request timeout"}
}

// Composer owns an ordered middleware list and builds wrapped handlers from it.
type Composer struct {
	mu             sync.RWMutex
	middleware     []Middleware
	defaultTimeout time.Duration
}

// ComposerOption customises a Composer.
type ComposerOption func(*Composer)

// WithDefaultTimeout sets the timeout applied by Compose when the caller does
// not pass one. A non-positive value disables the guard.
func WithDefaultTimeout(d time.Duration) ComposerOption {
	return func(c *Composer) { c.defaultTimeout = d }
}

// NewComposer creates a Composer. The given middleware are sorted into the
// fixed bucket order (logging, auth, custom, error); middleware that share a
// bucket keep their relative order. Without WithDefaultTimeout, Compose
// returns the chain unguarded.
func NewComposer(mws []Middleware, opts ...ComposerOption) *Composer {
	c := &Composer{
		middleware: sortByCategory(mws),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func sortByCategory(mws []Middleware) []Middleware {
	out := make([]Middleware, 0, len(mws))
	for _, mw := range mws {
		if mw != nil {
			out = append(out, mw)
		}
	}
	slices.SortStableFunc(out, func(a, b Middleware) int {
		return int(a.Category()) - int(b.Category())
	})
	return out
}

// Compose wraps h with every middleware so that the first one in order is the
// outermost. An optional timeout overrides the default; zero disables the guard.
//
// When the guard fires the caller receives TimeoutResponse() with a nil error.
// The abandoned chain keeps running until it observes cancellation of its
// context; its eventual result is discarded.
func (c *Composer) Compose(h Handler, timeout ...time.Duration) Handler {
	mws := c.Middleware()

	wrapped := h
	for i := len(mws) - 1; i >= 0; i-- {
		wrapped = wrap(mws[i], wrapped)
	}

	d := c.DefaultTimeout()
	if len(timeout) > 0 {
		d = timeout[0]
	}
	if d <= 0 {
		return wrapped
	}
	return guard(wrapped, d)
}

func wrap(mw Middleware, next Handler) Handler {
	return func(ctx context.Context, req *Request) (Response, error) {
		if tb, ok := mw.(timeoutBound); ok && tb.Timeout() > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, tb.Timeout())
			defer cancel()
		}
		return mw.Invoke(ctx, next, req)
	}
}

type result struct {
	resp Response
	err  error
}

func guard(h Handler, d time.Duration) Handler {
	return func(ctx context.Context, req *Request) (Response, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		done := make(chan result, 1)
		go func() {
			defer func() {
				if p := recover(); p != nil {
					done <- result{err: &PanicError{Value: p, Stack: debug.Stack()}}
				}
			}()
			resp, err := h(ctx, req)
			done <- result{resp: resp, err: err}
		}()

		// A result that races the deadline loses to it.
		select {
		case r := <-done:
			if ctx.Err() == nil {
				return r.resp, r.err
			}
		case <-ctx.Done():
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return TimeoutResponse(), nil
		}
		return nil, ctx.Err()
	}
}

// AddMiddleware inserts mw at position, or appends when no position is given.
// A negative position counts from the end. The list is not re-sorted, so an
// explicit position can break bucket order; use AddMiddlewareOrdered to keep it.
func (c *Composer) AddMiddleware(mw Middleware, position ...int) {
	if mw == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.middleware)
	if len(position) == 0 {
		c.middleware = append(c.middleware, mw)
		return
	}
	pos := position[0]
	if pos < 0 {
		pos = max(n+pos, 0)
	}
	pos = min(pos, n)
	c.middleware = slices.Insert(c.middleware, pos, mw)
}

// AddMiddlewareOrdered appends mw and restores bucket order.
func (c *Composer) AddMiddlewareOrdered(mw Middleware) {
	if mw == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middleware = sortByCategory(append(c.middleware, mw))
}

// RemoveMiddleware removes mw by identity and reports whether it was present.
// Middleware values must be comparable, which pointer receivers always are.
func (c *Composer) RemoveMiddleware(mw Middleware) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	before := len(c.middleware)
	c.middleware = slices.DeleteFunc(c.middleware, func(m Middleware) bool { return m == mw })
	return len(c.middleware) != before
}

// RemoveMiddlewareNamed removes every middleware with the given name.
func (c *Composer) RemoveMiddlewareNamed(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	before := len(c.middleware)
	c.middleware = slices.DeleteFunc(c.middleware, func(m Middleware) bool { return m.Name() == name })
	return len(c.middleware) != before
}

// Clear removes all middleware.
func (c *Composer) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middleware = nil
}

// Len returns the number of middleware.
func (c *Composer) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.middleware)
}

// Middleware returns a snapshot of the current order.
func (c *Composer) Middleware() []Middleware {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.middleware)
}

// DefaultTimeout returns the timeout Compose uses when none is passed.
func (c *Composer) DefaultTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.defaultTimeout
}

// String implements fmt.Stringer.
func (c *Composer) String() string {
	mws := c.Middleware()
	names := make([]string, len(mws))
	for i, mw := range mws {
		names[i] = mw.Name()
	}
	return fmt.Sprintf("Composer(middleware=[%s], timeout=%s)", strings.Join(names, ", "), c.DefaultTimeout())
}
