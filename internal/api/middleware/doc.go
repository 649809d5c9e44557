// Package middleware composes request handlers out of reusable layers.
//
// A Composer sorts its middleware into four fixed buckets, outermost first:
// logging, authentication, custom and error handling. Within a bucket the
// registration order is kept. Compose builds the chain so that the first
// middleware sees the request first, and bounds the whole chain with a
// timeout that answers 408 instead of failing.
//
// Platform specifics (API Gateway events, net/http requests) live behind the
// AuthStrategy, LoggingStrategy and ErrorStrategy interfaces; see the
// awslambda and httpapi subpackages.
package middleware
