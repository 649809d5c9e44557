package iam

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/phrazzld/recipe-api/internal/domain"
	"github.com/phrazzld/recipe-api/internal/redact"
	"github.com/phrazzld/recipe-api/internal/store"
)

// Result is the outcome of an identity lookup. StatusCode follows HTTP
// semantics: 200 means User is set; anything else is a soft failure the
// caller should treat as "identity unavailable".
type Result struct {
	StatusCode int
	User       *domain.User
	Message    string
}

// OK reports whether the lookup succeeded.
func (r Result) OK() bool {
	return r.StatusCode == http.StatusOK && r.User != nil
}

// Provider looks up the identity of a subject within a caller context.
// Cleanup runs once after every invocation; providers without
// request-scoped state implement it as a no-op.
type Provider interface {
	GetUser(ctx context.Context, userID, callerContext string) (Result, error)
	Cleanup()
}

var _ Provider = (*CachedProvider)(nil)

// CacheStrategy selects how long cached lookups live.
type CacheStrategy string

const (
	// CacheRequest clears the cache after every middleware invocation.
	CacheRequest CacheStrategy = "request"
	// CacheContainer keeps entries for the lifetime of the process.
	CacheContainer CacheStrategy = "container"
)

// ErrUnknownCacheStrategy is returned by ParseCacheStrategy.
var ErrUnknownCacheStrategy = errors.New("unknown cache strategy")

// ParseCacheStrategy converts a configured name into a CacheStrategy.
func ParseCacheStrategy(name string) (CacheStrategy, error) {
	switch CacheStrategy(name) {
	case CacheRequest, CacheContainer:
		return CacheStrategy(name), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCacheStrategy, name)
	}
}

// CachedProvider is a Provider backed by a store.IdentityStore with an
// in-memory cache keyed by "user_id:caller_context". Concurrent writes to the
// same key are last-write-wins.
type CachedProvider struct {
	store    store.IdentityStore
	strategy CacheStrategy
	contexts map[string]struct{}
	logger   *slog.Logger

	mu      sync.RWMutex
	entries map[string]Result
}

// Option configures a CachedProvider.
type Option func(*CachedProvider)

// WithSupportedContexts restricts lookups to the named caller contexts.
// Without it every caller context is accepted.
func WithSupportedContexts(contexts ...string) Option {
	return func(p *CachedProvider) {
		for _, c := range contexts {
			p.contexts[c] = struct{}{}
		}
	}
}

// WithLogger sets the logger used for lookup diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(p *CachedProvider) {
		p.logger = l
	}
}

// NewCachedProvider creates a CachedProvider over s.
func NewCachedProvider(s store.IdentityStore, strategy CacheStrategy, opts ...Option) *CachedProvider {
	p := &CachedProvider{
		store:    s,
		strategy: strategy,
		contexts: make(map[string]struct{}),
		logger:   slog.Default(),
		entries:  make(map[string]Result),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ Provider = (*CachedProvider)(nil)

func cacheKey(userID, callerContext string) string {
	return userID + ":" + callerContext
}

// Strategy returns the configured cache strategy.
func (p *CachedProvider) Strategy() CacheStrategy {
	return p.strategy
}

// GetUser implements Provider. Store failures are reported as non-200 results
// rather than errors; only context cancellation is returned as an error.
func (p *CachedProvider) GetUser(ctx context.Context, userID, callerContext string) (Result, error) {
	if userID == "" {
		return Result{StatusCode: http.StatusBadRequest, Message: "user id is required"}, nil
	}
	if len(p.contexts) > 0 {
		if _, ok := p.contexts[callerContext]; !ok {
			return Result{
				StatusCode: http.StatusBadRequest,
				Message:    fmt.Sprintf("unsupported caller context %q", callerContext),
			}, nil
		}
	}

	key := cacheKey(userID, callerContext)
	p.mu.RLock()
	cached, ok := p.entries[key]
	p.mu.RUnlock()
	if ok {
		return cached, nil
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	user, err := p.store.GetUser(ctx, userID, callerContext)
	var result Result
	switch {
	case err == nil && user != nil:
		result = Result{StatusCode: http.StatusOK, User: user}
	case err == nil, store.IsNotFoundError(err):
		result = Result{StatusCode: http.StatusNotFound, Message: "identity not found"}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Result{}, err
	default:
		p.logger.WarnContext(ctx, "identity lookup failed",
			"caller_context", callerContext,
			"error", redact.Error(err))
		// Transient failures are not cached.
		return Result{StatusCode: http.StatusServiceUnavailable, Message: "identity lookup failed"}, nil
	}

	p.mu.Lock()
	p.entries[key] = result
	p.mu.Unlock()

	return result, nil
}

// Cleanup releases request-scoped entries. It is a no-op for CacheContainer.
func (p *CachedProvider) Cleanup() {
	if p.strategy == CacheRequest {
		p.Clear()
	}
}

// Clear drops every cached entry.
func (p *CachedProvider) Clear() {
	p.mu.Lock()
	p.entries = make(map[string]Result)
	p.mu.Unlock()
}

// Len returns the number of cached entries.
func (p *CachedProvider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}
