package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/recipe-api/internal/domain"
	"github.com/phrazzld/recipe-api/internal/store"
)

// PostgresIdentityStore implements store.IdentityAdmin over the iam_users
// table.
type PostgresIdentityStore struct {
	db store.DBTX
}

// NewPostgresIdentityStore creates a PostgresIdentityStore. The connection is
// owned by the caller.
func NewPostgresIdentityStore(db store.DBTX) *PostgresIdentityStore {
	return &PostgresIdentityStore{db: db}
}

var _ store.IdentityAdmin = (*PostgresIdentityStore)(nil)

// GetUser implements store.IdentityStore.
func (s *PostgresIdentityStore) GetUser(ctx context.Context, userID, callerContext string) (*domain.User, error) {
	const query = `
		SELECT user_id, caller_context, roles, attributes, updated_at
		FROM iam_users
		WHERE user_id = $1 AND caller_context = $2`

	var (
		u          domain.User
		roles      []byte
		attributes []byte
	)
	err := s.db.QueryRowContext(ctx, query, userID, callerContext).
		Scan(&u.ID, &u.CallerContext, &roles, &attributes, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrIdentityNotFound
		}
		return nil, store.NewStoreError("identity", "get", "query failed", MapError(err))
	}

	if err := decodeColumns(&u, roles, attributes); err != nil {
		return nil, store.NewStoreError("identity", "get", "corrupt row", err)
	}
	return &u, nil
}

// PutUser inserts or replaces the identity of user.ID in user.CallerContext.
func (s *PostgresIdentityStore) PutUser(ctx context.Context, user *domain.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	roles, err := json.Marshal(nonNilRoles(user.Roles))
	if err != nil {
		return fmt.Errorf("%w: roles: %v", store.ErrInvalidEntity, err)
	}
	attrs := user.Attributes
	if attrs == nil {
		attrs = map[string]any{}
	}
	attributes, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("%w: attributes: %v", store.ErrInvalidEntity, err)
	}

	const query = `
		INSERT INTO iam_users (user_id, caller_context, roles, attributes, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, caller_context)
		DO UPDATE SET roles = EXCLUDED.roles,
		              attributes = EXCLUDED.attributes,
		              updated_at = EXCLUDED.updated_at`

	updatedAt := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, query, user.ID, user.CallerContext, string(roles), string(attributes), updatedAt); err != nil {
		return store.NewStoreError("identity", "put", "upsert failed", MapError(err))
	}
	user.UpdatedAt = updatedAt
	return nil
}

// DeleteUser removes the identity of userID in callerContext.
func (s *PostgresIdentityStore) DeleteUser(ctx context.Context, userID, callerContext string) error {
	const query = `DELETE FROM iam_users WHERE user_id = $1 AND caller_context = $2`

	result, err := s.db.ExecContext(ctx, query, userID, callerContext)
	if err != nil {
		return store.NewStoreError("identity", "delete", "delete failed", MapError(err))
	}
	return CheckRowsAffected(result, "identity")
}

func decodeColumns(u *domain.User, roles, attributes []byte) error {
	if len(roles) > 0 {
		if err := json.Unmarshal(roles, &u.Roles); err != nil {
			return fmt.Errorf("decoding roles: %w", err)
		}
	}
	if len(attributes) > 0 {
		if err := json.Unmarshal(attributes, &u.Attributes); err != nil {
			return fmt.Errorf("decoding attributes: %w", err)
		}
	}
	if len(u.Attributes) == 0 {
		u.Attributes = nil
	}
	return nil
}

func nonNilRoles(roles []string) []string {
	if roles == nil {
		return []string{}
	}
	return roles
}
