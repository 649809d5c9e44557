// Package mocks provides hand-written test doubles shared across packages.
//
// Each mock exposes function fields or canned results plus call counters so
// tests can both stub behaviour and assert on how often a dependency was hit:
//
//	store := &mocks.MockIdentityStore{User: &domain.User{ID: "user-1"}}
//	provider := iam.NewCachedProvider(store, iam.CacheContainer)
//	...
//	assert.Equal(t, 1, store.Calls())
package mocks
