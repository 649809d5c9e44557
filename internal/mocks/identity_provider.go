package mocks

import (
	"context"

	"github.com/phrazzld/recipe-api/internal/iam"
	"github.com/stretchr/testify/mock"
)

// TestifyMockIdentityProvider is a mock of iam.Provider for use with testify/mock
type TestifyMockIdentityProvider struct {
	mock.Mock
}

var _ iam.Provider = (*TestifyMockIdentityProvider)(nil)

// GetUser is a mock implementation of iam.Provider.GetUser
func (m *TestifyMockIdentityProvider) GetUser(ctx context.Context, userID, callerContext string) (iam.Result, error) {
	args := m.Called(ctx, userID, callerContext)
	result, _ := args.Get(0).(iam.Result)
	return result, args.Error(1)
}

// Cleanup is a mock implementation of iam.Provider.Cleanup
func (m *TestifyMockIdentityProvider) Cleanup() {
	m.Called()
}
