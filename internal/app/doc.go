// Package app assembles the configured middleware chain for a platform.
// Both entrypoints (cmd/lambda and cmd/server) build their handlers here so
// the chain is identical regardless of where the code runs.
package app
