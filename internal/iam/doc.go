// Package iam resolves authenticated subjects to identities through an
// identity store, caching lookups per request or per process.
package iam
