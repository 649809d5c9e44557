// Package shared holds request-scoped values that several layers of the
// middleware chain read, such as the correlation id.
package shared
