// Package domain contains the identity entities and the error kinds shared by
// every handler that runs behind the middleware chain. It is independent of
// any platform or delivery mechanism.
package domain
