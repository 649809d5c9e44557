package middleware

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/phrazzld/recipe-api/internal/iam"
)

// IdentityResolver hydrates an AuthContext with the caller's IAM record.
// Platform strategies embed it so IAM lookup works the same everywhere.
type IdentityResolver struct {
	Provider      iam.Provider
	CallerContext string
	Logger        *slog.Logger
}

// Resolve looks up ac.UserID when a provider and caller context are
// configured. A failed or missing lookup leaves ac unhydrated; only context
// cancellation is returned as an error.
func (r IdentityResolver) Resolve(ctx context.Context, ac *AuthContext) error {
	if r.Provider == nil || r.CallerContext == "" || ac == nil || !ac.IsAuthenticated {
		return nil
	}
	ac.CallerContext = r.CallerContext

	res, err := r.Provider.GetUser(ctx, ac.UserID, r.CallerContext)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case err != nil || !res.OK():
		r.logger().DebugContext(ctx, "identity not hydrated",
			slog.String("caller_context", r.CallerContext),
			slog.Int("status_code", res.StatusCode))
		return nil
	}

	ac.User = res.User
	for _, role := range res.User.Roles {
		if !slices.Contains(ac.UserRoles, role) {
			ac.UserRoles = append(ac.UserRoles, role)
		}
	}
	slices.Sort(ac.UserRoles)
	return nil
}

func (r IdentityResolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Cleanup clears request-scoped IAM cache entries.
func (r IdentityResolver) Cleanup(context.Context) {
	if r.Provider != nil {
		r.Provider.Cleanup()
	}
}
