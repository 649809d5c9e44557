// Package httpapi implements the middleware strategies for a plain HTTP
// server and adapts a composed handler to net/http.
//
// The incoming *http.Request is projected into the same event shape API
// Gateway produces, so core middleware and handlers see one format on
// every platform. The platform object is the *http.Request itself.
package httpapi
