// Package postgres provides the PostgreSQL implementation of the identity
// store defined in the internal/store package, together with the goose
// migrations that create its tables.
package postgres
