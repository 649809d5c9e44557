// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the middleware core, which only ever reads identities through them.
package store
