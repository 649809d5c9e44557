package awslambda

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/phrazzld/recipe-api/internal/api/middleware"
	"github.com/phrazzld/recipe-api/internal/api/shared"
	"github.com/phrazzld/recipe-api/internal/iam"
)

// CorrelationHeader is the request header that carries a caller-chosen
// correlation id.
const CorrelationHeader = "X-Correlation-ID"

// source implements middleware.RequestSource for Lambda invocations.
type source struct{}

// RequestData returns the proxy event and the *lambdacontext.LambdaContext.
func (source) RequestData(req *middleware.Request) (map[string]any, any, error) {
	if req == nil || req.Event == nil {
		return nil, nil, middleware.ErrMissingEvent
	}
	lc, ok := req.Platform.(*lambdacontext.LambdaContext)
	if !ok || lc == nil {
		return nil, nil, middleware.ErrMissingPlatformContext
	}
	return req.Event, lc, nil
}

// AuthStrategy reads API Gateway authorizer claims and optionally hydrates
// the caller from IAM.
type AuthStrategy struct {
	source
	resolver middleware.IdentityResolver
}

// NewAuthStrategy creates an AuthStrategy. A nil provider or empty caller
// context disables IAM hydration.
func NewAuthStrategy(provider iam.Provider, callerContext string, logger *slog.Logger) *AuthStrategy {
	return &AuthStrategy{resolver: middleware.IdentityResolver{
		Provider:      provider,
		CallerContext: callerContext,
		Logger:        logger,
	}}
}

// ExtractAuthContext implements middleware.AuthStrategy.
func (s *AuthStrategy) ExtractAuthContext(ctx context.Context, req *middleware.Request) (*middleware.AuthContext, error) {
	event, _, err := s.RequestData(req)
	if err != nil {
		return nil, err
	}
	ac := middleware.AuthContextFromClaims(Claims(event))
	if err := s.resolver.Resolve(ctx, ac); err != nil {
		return nil, err
	}
	return ac, nil
}

// InjectAuthContext implements middleware.AuthStrategy.
func (s *AuthStrategy) InjectAuthContext(ctx context.Context, _ *middleware.Request, ac *middleware.AuthContext) context.Context {
	return middleware.WithAuthContext(ctx, ac)
}

// Cleanup releases request-scoped IAM cache entries.
func (s *AuthStrategy) Cleanup(ctx context.Context) {
	s.resolver.Cleanup(ctx)
}

// LoggingStrategy extracts function and request metadata from a Lambda
// invocation.
type LoggingStrategy struct {
	source
	middleware.NopCleanup
}

// NewLoggingStrategy creates a LoggingStrategy.
func NewLoggingStrategy() *LoggingStrategy {
	return &LoggingStrategy{}
}

// ExtractLoggingContext implements middleware.LoggingStrategy. The
// correlation id is taken from the X-Correlation-ID header, then the Lambda
// request id, then the API Gateway request id.
func (s *LoggingStrategy) ExtractLoggingContext(ctx context.Context, req *middleware.Request) (middleware.LogContext, error) {
	event, platform, err := s.RequestData(req)
	if err != nil {
		return middleware.LogContext{}, err
	}
	lc := platform.(*lambdacontext.LambdaContext)
	rc := nested(event, "requestContext")

	id := shared.SanitizeCorrelationID(header(event, CorrelationHeader))
	if id == "" {
		id = lc.AwsRequestID
	}
	if id == "" {
		id = str(rc, "requestId")
	}

	function := map[string]any{
		"function_name":        lambdacontext.FunctionName,
		"function_version":     lambdacontext.FunctionVersion,
		"memory_limit_mb":      lambdacontext.MemoryLimitInMB,
		"aws_request_id":       lc.AwsRequestID,
		"invoked_function_arn": lc.InvokedFunctionArn,
	}
	if deadline, ok := ctx.Deadline(); ok {
		function["remaining_time_ms"] = time.Until(deadline).Milliseconds()
	}

	request := map[string]any{
		"http_method": str(event, "httpMethod"),
		"path":        str(event, "path"),
		"resource":    str(event, "resource"),
		"stage":       str(rc, "stage"),
		"source_ip":   str(nested(rc, "identity"), "sourceIp"),
		"user_agent":  header(event, "User-Agent"),
	}
	if q := nested(event, "queryStringParameters"); len(q) > 0 {
		request["query_parameters"] = q
	}
	if h := nested(event, "headers"); len(h) > 0 {
		request["headers"] = h
	}

	return middleware.LogContext{CorrelationID: id, Function: function, Request: request}, nil
}

// InjectLoggingContext implements middleware.LoggingStrategy.
func (s *LoggingStrategy) InjectLoggingContext(ctx context.Context, _ *middleware.Request, lc middleware.LogContext) context.Context {
	return shared.WithCorrelationID(ctx, lc.CorrelationID)
}

// ErrorStrategy renders error responses as API Gateway proxy responses.
type ErrorStrategy struct {
	source
	middleware.NopCleanup
}

// NewErrorStrategy creates an ErrorStrategy.
func NewErrorStrategy() *ErrorStrategy {
	return &ErrorStrategy{}
}

// ExtractErrorContext implements middleware.ErrorStrategy.
func (s *ErrorStrategy) ExtractErrorContext(_ context.Context, req *middleware.Request) map[string]any {
	if req == nil || req.Event == nil {
		return nil
	}
	ec := make(map[string]any)
	if id := str(nested(req.Event, "requestContext"), "requestId"); id != "" {
		ec["request_id"] = id
	}
	if path := str(req.Event, "path"); path != "" {
		ec["path"] = path
	}
	if method := str(req.Event, "httpMethod"); method != "" {
		ec["method"] = method
	}
	return ec
}

// InjectErrorContext implements middleware.ErrorStrategy.
func (s *ErrorStrategy) InjectErrorContext(ctx context.Context, _ *middleware.Request, ec map[string]any) context.Context {
	return middleware.WithErrorContext(ctx, ec)
}

// FormatErrorResponse implements middleware.ErrorStrategy.
func (s *ErrorStrategy) FormatErrorResponse(er middleware.ErrorResponse) middleware.Response {
	return middleware.RenderErrorResponse(er)
}

var (
	_ middleware.AuthStrategy    = (*AuthStrategy)(nil)
	_ middleware.LoggingStrategy = (*LoggingStrategy)(nil)
	_ middleware.ErrorStrategy   = (*ErrorStrategy)(nil)
)
