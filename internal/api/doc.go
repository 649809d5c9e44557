// Package api holds the endpoint handlers served behind the middleware chain.
// Handlers are platform-neutral middleware.Handler values: the same function
// runs under the Lambda adapter and the HTTP adapter.
package api
