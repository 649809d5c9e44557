//go:build integration

package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/recipe-api/internal/domain"
	"github.com/phrazzld/recipe-api/internal/platform/postgres"
	"github.com/phrazzld/recipe-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresIdentityStore(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()

	db, err := postgres.Open(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, postgres.Migrate(ctx, db, "up", nil))

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tx.Rollback() })

	s := postgres.NewPostgresIdentityStore(tx)
	userID := "user-" + uuid.NewString()[:8]

	_, err = s.GetUser(ctx, userID, "recipes")
	assert.ErrorIs(t, err, store.ErrIdentityNotFound)

	u := &domain.User{ID: userID, CallerContext: "recipes", Roles: []string{"chefs"}, Attributes: map[string]any{"tier": "gold"}}
	require.NoError(t, s.PutUser(ctx, u))
	assert.False(t, u.UpdatedAt.IsZero())

	got, err := s.GetUser(ctx, userID, "recipes")
	require.NoError(t, err)
	assert.Equal(t, []string{"chefs"}, got.Roles)
	assert.Equal(t, "gold", got.Attributes["tier"])

	u.Roles = []string{"chefs", "admin"}
	require.NoError(t, s.PutUser(ctx, u))
	got, err = s.GetUser(ctx, userID, "recipes")
	require.NoError(t, err)
	assert.Equal(t, []string{"chefs", "admin"}, got.Roles)

	_, err = s.GetUser(ctx, userID, "clients")
	assert.ErrorIs(t, err, store.ErrIdentityNotFound, "identities are scoped to the caller context")

	require.NoError(t, s.DeleteUser(ctx, userID, "recipes"))
	assert.ErrorIs(t, s.DeleteUser(ctx, userID, "recipes"), store.ErrNotFound)

	assert.ErrorIs(t, s.PutUser(ctx, &domain.User{ID: userID}), store.ErrInvalidEntity)
}
