// Package config handles configuration loading, parsing, and validation
// from various sources (environment variables, files). It provides type-safe
// access to the settings that shape the middleware chain while keeping
// configuration details separate from request handling.
package config
