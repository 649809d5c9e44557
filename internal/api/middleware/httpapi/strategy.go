package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/phrazzld/recipe-api/internal/api/middleware"
	"github.com/phrazzld/recipe-api/internal/api/shared"
	"github.com/phrazzld/recipe-api/internal/iam"
	"github.com/phrazzld/recipe-api/internal/platform/logger"
	"github.com/phrazzld/recipe-api/internal/service/auth"
)

// CorrelationHeader is the request header that carries a caller-chosen
// correlation id. The adapter echoes the id back under the same name.
const CorrelationHeader = "X-Correlation-ID"

// source implements middleware.RequestSource for net/http requests.
type source struct{}

// RequestData returns the projected event and the *http.Request.
func (source) RequestData(req *middleware.Request) (map[string]any, any, error) {
	if req == nil || req.Event == nil {
		return nil, nil, middleware.ErrMissingEvent
	}
	r, ok := req.Platform.(*http.Request)
	if !ok || r == nil {
		return nil, nil, middleware.ErrMissingPlatformContext
	}
	return req.Event, r, nil
}

// AuthStrategy reads claims from the Authorization bearer token and
// optionally hydrates the caller from IAM.
type AuthStrategy struct {
	source
	decoder  auth.ClaimsDecoder
	resolver middleware.IdentityResolver
}

// NewAuthStrategy creates an AuthStrategy. A nil decoder reads claims
// without verifying the signature. A nil provider or empty caller context
// disables IAM hydration.
func NewAuthStrategy(decoder auth.ClaimsDecoder, provider iam.Provider, callerContext string, log *slog.Logger) *AuthStrategy {
	if decoder == nil {
		decoder = auth.UnverifiedDecoder{}
	}
	return &AuthStrategy{
		decoder: decoder,
		resolver: middleware.IdentityResolver{
			Provider:      provider,
			CallerContext: callerContext,
			Logger:        log,
		},
	}
}

// ExtractAuthContext implements middleware.AuthStrategy. A missing or
// undecodable token yields an unauthenticated context; the policy decides
// whether that is acceptable.
func (s *AuthStrategy) ExtractAuthContext(ctx context.Context, req *middleware.Request) (*middleware.AuthContext, error) {
	_, platform, err := s.RequestData(req)
	if err != nil {
		return nil, err
	}
	r := platform.(*http.Request)

	token, err := auth.BearerToken(r.Header.Get("Authorization"))
	if err != nil {
		if !errors.Is(err, auth.ErrMissingToken) {
			logger.FromContext(ctx).DebugContext(ctx, "authorization header ignored", slog.String("reason", err.Error()))
		}
		return middleware.AuthContextFromClaims(nil), nil
	}

	claims, err := s.decoder.DecodeClaims(ctx, token)
	if err != nil {
		return middleware.AuthContextFromClaims(nil), nil
	}

	ac := middleware.AuthContextFromClaims(claims)
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

// LoggingStrategy extracts server and request metadata from an HTTP request.
type LoggingStrategy struct {
	source
	middleware.NopCleanup
	service string
}

// NewLoggingStrategy creates a LoggingStrategy that reports service as the
// function name.
func NewLoggingStrategy(service string) *LoggingStrategy {
	return &LoggingStrategy{service: service}
}

// ExtractLoggingContext implements middleware.LoggingStrategy. The
// correlation id is taken from the X-Correlation-ID header, then the router
// request id.
func (s *LoggingStrategy) ExtractLoggingContext(_ context.Context, req *middleware.Request) (middleware.LogContext, error) {
	event, platform, err := s.RequestData(req)
	if err != nil {
		return middleware.LogContext{}, err
	}
	r := platform.(*http.Request)
	rc := nested(event, "requestContext")

	id := shared.SanitizeCorrelationID(r.Header.Get(CorrelationHeader))
	if id == "" {
		id = str(rc, "requestId")
	}

	function := map[string]any{
		"function_name": s.service,
		"route":         str(event, "resource"),
	}

	request := map[string]any{
		"http_method": r.Method,
		"path":        r.URL.Path,
		"host":        r.Host,
		"proto":       r.Proto,
		"source_ip":   str(nested(rc, "identity"), "sourceIp"),
		"user_agent":  r.UserAgent(),
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

// ErrorStrategy renders error responses for net/http.
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
