package store

import (
	"context"

	"github.com/phrazzld/recipe-api/internal/domain"
)

// IdentityStore defines read access to identities keyed by subject and caller context.
type IdentityStore interface {
	// GetUser retrieves the identity of userID as seen by callerContext.
	// Returns ErrIdentityNotFound if no identity exists for that pair.
	GetUser(ctx context.Context, userID, callerContext string) (*domain.User, error)
}

// IdentityAdmin adds write access for provisioning identities.
type IdentityAdmin interface {
	IdentityStore

	// PutUser inserts or replaces an identity.
	PutUser(ctx context.Context, user *domain.User) error

	// DeleteUser removes an identity. Returns ErrNotFound if it does not exist.
	DeleteUser(ctx context.Context, userID, callerContext string) error
}
