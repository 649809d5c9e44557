// Package awslambda implements the middleware strategies for AWS Lambda
// behind API Gateway, and adapts a composed handler to the proxy integration.
//
// The event is the proxy request decoded into a map; the platform object is
// the *lambdacontext.LambdaContext the runtime places on the context.
package awslambda
