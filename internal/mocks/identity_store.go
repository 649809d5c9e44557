package mocks

import (
	"context"
	"sync/atomic"

	"github.com/phrazzld/recipe-api/internal/domain"
	"github.com/phrazzld/recipe-api/internal/store"
)

// MockIdentityStore implements store.IdentityStore for testing
type MockIdentityStore struct {
	// GetUserFn allows test cases to mock the GetUser behavior
	GetUserFn func(ctx context.Context, userID, callerContext string) (*domain.User, error)

	// Default values used when GetUserFn isn't explicitly defined
	User *domain.User
	Err  error

	calls atomic.Int64
}

var _ store.IdentityStore = (*MockIdentityStore)(nil)

// GetUser implements the store.IdentityStore interface
func (m *MockIdentityStore) GetUser(ctx context.Context, userID, callerContext string) (*domain.User, error) {
	m.calls.Add(1)

	// If a custom function is provided, use it
	if m.GetUserFn != nil {
		return m.GetUserFn(ctx, userID, callerContext)
	}

	// Otherwise use the default values
	return m.User, m.Err
}

// Calls returns how many times GetUser was invoked.
func (m *MockIdentityStore) Calls() int {
	return int(m.calls.Load())
}
