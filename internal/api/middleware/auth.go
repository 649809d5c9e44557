package middleware

import (
	"context"
	"log/slog"
	"slices"

	"github.com/phrazzld/recipe-api/internal/domain"
)

// AuthContext is the identity established for a request.
type AuthContext struct {
	UserID          string
	UserRoles       []string
	IsAuthenticated bool
	Metadata        map[string]any

	// User is the IAM record, when the strategy performed a lookup.
	User          *domain.User
	CallerContext string
}

// HasRole reports whether the caller holds role.
func (a *AuthContext) HasRole(role string) bool {
	if a == nil {
		return false
	}
	return slices.Contains(a.UserRoles, role)
}

type authContextKey struct{}

// WithAuthContext returns a copy of ctx carrying ac.
func WithAuthContext(ctx context.Context, ac *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, ac)
}

// AuthContextFrom returns the AuthContext injected by the authentication
// middleware, if any.
func AuthContextFrom(ctx context.Context) (*AuthContext, bool) {
	ac, ok := ctx.Value(authContextKey{}).(*AuthContext)
	return ac, ok && ac != nil
}

// AuthPolicy describes what a request must present to pass authentication.
type AuthPolicy struct {
	requireAuthentication bool
	allowedRoles          []string
	callerContext         string
}

// PolicyOption customises an AuthPolicy.
type PolicyOption func(*AuthPolicy)

// RequireAuthentication sets whether an unauthenticated caller is rejected.
func RequireAuthentication(required bool) PolicyOption {
	return func(p *AuthPolicy) { p.requireAuthentication = required }
}

// AllowRoles restricts access to callers holding at least one of roles.
func AllowRoles(roles ...string) PolicyOption {
	return func(p *AuthPolicy) { p.allowedRoles = append(p.allowedRoles, roles...) }
}

// ForCallerContext sets the IAM caller context the policy applies to.
func ForCallerContext(callerContext string) PolicyOption {
	return func(p *AuthPolicy) { p.callerContext = callerContext }
}

// NewAuthPolicy creates a policy. Authentication is required by default and
// no role is required.
func NewAuthPolicy(opts ...PolicyOption) AuthPolicy {
	p := AuthPolicy{requireAuthentication: true}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// RequiresAuthentication reports whether unauthenticated callers are rejected.
func (p AuthPolicy) RequiresAuthentication() bool { return p.requireAuthentication }

// AllowedRoles returns a copy of the role allow-list.
func (p AuthPolicy) AllowedRoles() []string { return slices.Clone(p.allowedRoles) }

// CallerContext returns the IAM caller context.
func (p AuthPolicy) CallerContext() string { return p.callerContext }

// HasRequiredRole reports whether roles satisfy the policy. An empty
// allow-list admits everyone; otherwise at least one role must match.
func (p AuthPolicy) HasRequiredRole(roles []string) bool {
	if len(p.allowedRoles) == 0 {
		return true
	}
	for _, r := range roles {
		if slices.Contains(p.allowedRoles, r) {
			return true
		}
	}
	return false
}

// AuthenticationMiddleware establishes caller identity and enforces an
// AuthPolicy before the request reaches inner layers.
type AuthenticationMiddleware struct {
	Base
	strategy AuthStrategy
	policy   AuthPolicy
	logger   *slog.Logger
}

// NewAuthenticationMiddleware creates an AuthenticationMiddleware. It panics
// when strategy is nil.
func NewAuthenticationMiddleware(strategy AuthStrategy, policy AuthPolicy, opts ...Option) *AuthenticationMiddleware {
	if strategy == nil {
		panic("auth strategy cannot be nil")
	}
	o := buildOptions("AuthenticationMiddleware", opts)
	return &AuthenticationMiddleware{
		Base:     NewBase(o.name, CategoryAuth, o.timeout),
		strategy: strategy,
		policy:   policy,
		logger:   o.logger,
	}
}

// Policy returns the enforced policy.
func (m *AuthenticationMiddleware) Policy() AuthPolicy { return m.policy }

// Invoke implements Middleware.
func (m *AuthenticationMiddleware) Invoke(ctx context.Context, next Handler, req *Request) (Response, error) {
	defer m.strategy.Cleanup(ctx)

	ac, err := m.strategy.ExtractAuthContext(ctx, req)
	if err != nil {
		return nil, err
	}
	if ac == nil {
		ac = &AuthContext{}
	}

	if m.policy.requireAuthentication && !ac.IsAuthenticated {
		m.logger.DebugContext(ctx, "rejecting unauthenticated request")
		return nil, NewAuthenticationError("Authentication required")
	}

	if !m.policy.HasRequiredRole(ac.UserRoles) {
		m.logger.DebugContext(ctx, "rejecting request without required role",
			slog.String("user_id", ac.UserID),
			slog.Any("allowed_roles", m.policy.allowedRoles))
		return nil, NewAuthorizationError("Insufficient permissions")
	}

	if _, _, err := m.strategy.RequestData(req); err != nil {
		return nil, err
	}

	ctx = m.strategy.InjectAuthContext(ctx, req, ac)
	return next(ctx, req)
}
