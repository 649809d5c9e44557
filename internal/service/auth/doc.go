// Package auth decodes bearer-token claims for the HTTP platform and mints
// HS256 tokens for local development.
//
// In deployed environments the gateway verifies tokens, so claims are read
// with UnverifiedDecoder. The local server verifies its own DevTokenIssuer
// tokens instead.
package auth
