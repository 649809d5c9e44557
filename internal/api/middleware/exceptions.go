package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/phrazzld/recipe-api/internal/api/shared"
	"github.com/phrazzld/recipe-api/internal/redact"
)

// ExceptionHandlerConfig controls how much of a failure reaches the caller
// and the logs.
type ExceptionHandlerConfig struct {
	// Production enables stack trace stripping in caller-facing text.
	Production bool
	// ExposeInternalDetails replaces the generic message with the error's
	// type name and sanitized text.
	ExposeInternalDetails bool
	// IncludeStackTrace attaches a stack to the log event for client errors
	// too. Server errors always carry one.
	IncludeStackTrace bool
}

// Renderer turns an error that escaped a composed chain into a response.
// Platform adapters use it for failures raised outside the exception
// handler, such as authentication errors.
type Renderer interface {
	Render(ctx context.Context, req *Request, err error) Response
}

var _ Renderer = (*ExceptionHandlerMiddleware)(nil)

// ExceptionHandlerMiddleware converts any error or panic from inner layers
// into a sanitized error response. It never returns an error itself.
type ExceptionHandlerMiddleware struct {
	Base
	strategy  ErrorStrategy
	cfg       ExceptionHandlerConfig
	sanitizer Sanitizer
	logger    *slog.Logger
}

// NewExceptionHandlerMiddleware creates an ExceptionHandlerMiddleware. A nil
// strategy renders responses with RenderErrorResponse.
func NewExceptionHandlerMiddleware(strategy ErrorStrategy, cfg ExceptionHandlerConfig, opts ...Option) *ExceptionHandlerMiddleware {
	o := buildOptions("ExceptionHandlerMiddleware", opts)
	return &ExceptionHandlerMiddleware{
		Base:      NewBase(o.name, CategoryError, o.timeout),
		strategy:  strategy,
		cfg:       cfg,
		sanitizer: Sanitizer{Production: cfg.Production},
		logger:    o.logger,
	}
}

// Invoke implements Middleware.
func (m *ExceptionHandlerMiddleware) Invoke(ctx context.Context, next Handler, req *Request) (resp Response, err error) {
	if m.strategy != nil {
		defer m.strategy.Cleanup(ctx)
		ctx = m.strategy.InjectErrorContext(ctx, req, m.strategy.ExtractErrorContext(ctx, req))
	}

	defer func() {
		if p := recover(); p != nil {
			resp, err = m.Render(ctx, req, &PanicError{Value: p, Stack: debug.Stack()}), nil
		}
	}()

	resp, err = next(ctx, req)
	if err != nil {
		return m.Render(ctx, req, err), nil
	}
	m.logger.DebugContext(ctx, "request completed without error", slog.Int("status_code", resp.StatusCode()))
	return resp, nil
}

// Render turns err into a platform response. Platform adapters use it for
// errors raised outside this middleware's reach.
func (m *ExceptionHandlerMiddleware) Render(ctx context.Context, req *Request, err error) Response {
	er := m.Build(ctx, req, err)
	if m.strategy != nil {
		return m.strategy.FormatErrorResponse(er)
	}
	return RenderErrorResponse(er)
}

// Build classifies err and produces the sanitized ErrorResponse.
//
// A grouped error (one implementing Unwrap() []error) surfaces a single
// representative: the first member carrying structured validation details,
// else the first validation member, else the first business rule member.
// When none exists the group becomes a generic 500.
func (m *ExceptionHandlerMiddleware) Build(ctx context.Context, req *Request, err error) ErrorResponse {
	correlationID := shared.GetCorrelationID(ctx)
	if correlationID == "" && req != nil {
		correlationID = req.CorrelationID
	}
	if correlationID == "" {
		correlationID = shared.NewCorrelationID()
	}

	var requestCtx map[string]any
	if ec := ErrorContextFrom(ctx); ec != nil {
		requestCtx = ec
	} else if m.strategy != nil {
		requestCtx = m.strategy.ExtractErrorContext(ctx, req)
	}

	var er ErrorResponse
	if members := groupMembers(err); len(members) > 1 {
		er = m.buildGroup(ctx, err, members, requestCtx, correlationID)
	} else {
		if len(members) == 1 {
			err = members[0]
		}
		er = m.buildSingle(err, Classify(err), requestCtx, correlationID)
		m.log(ctx, err, er)
	}
	return er
}

func (m *ExceptionHandlerMiddleware) buildGroup(ctx context.Context, err error, members []error, requestCtx map[string]any, correlationID string) ErrorResponse {
	log := m.logger
	for i, member := range members {
		log.DebugContext(ctx, "grouped error member",
			slog.Int("index", i),
			slog.String("error_class", typeName(member)),
			slog.String("error", redact.Error(member)))
	}

	if rep := representative(members); rep != nil {
		er := m.buildSingle(rep, Classify(rep), requestCtx, correlationID)
		m.log(ctx, rep, er)
		return er
	}

	er := m.newResponse(ErrorTypeInternal.StatusCode(), ErrorTypeInternal, "Multiple errors occurred",
		WithDetail(fmt.Sprintf("%d errors occurred", len(members))),
		WithContext(m.sanitizer.SanitizeMap(requestCtx)),
		WithContext(map[string]any{"error_count": len(members)}),
		WithCorrelationID(correlationID))
	m.log(ctx, err, er)
	return er
}

func (m *ExceptionHandlerMiddleware) buildSingle(err error, errType ErrorType, requestCtx map[string]any, correlationID string) ErrorResponse {
	status := errType.StatusCode()
	message := errType.DefaultMessage()

	var public interface{ PublicMessage() string }
	if errors.As(err, &public) && public.PublicMessage() != "" {
		message = public.PublicMessage()
	}

	opts := []ErrorResponseOption{
		WithContext(m.sanitizer.SanitizeMap(requestCtx)),
		WithCorrelationID(correlationID),
	}

	switch {
	case m.cfg.ExposeInternalDetails:
		message = m.sanitizer.Sanitize(fmt.Sprintf("%s: %s", typeName(err), err.Error()))
	case status < 500:
		if detail := m.sanitizer.Sanitize(err.Error()); detail != message {
			opts = append(opts, WithDetail(detail))
		}
	}

	if errType == ErrorTypeValidation {
		details := validationDetails(err)
		for i := range details {
			details[i].Message = m.sanitizer.Sanitize(details[i].Message)
		}
		opts = append(opts, WithErrors(details...))
	}

	return m.newResponse(status, errType, message, opts...)
}

func (m *ExceptionHandlerMiddleware) newResponse(status int, errType ErrorType, message string, opts ...ErrorResponseOption) ErrorResponse {
	er, err := NewErrorResponse(status, errType, message, opts...)
	if err != nil {
		// Unreachable with the built-in taxonomy.
		er, _ = NewErrorResponse(500, ErrorTypeInternal, ErrorTypeInternal.DefaultMessage(), opts...)
	}
	return er
}

func (m *ExceptionHandlerMiddleware) log(ctx context.Context, err error, er ErrorResponse) {
	attrs := []any{
		slog.String("correlation_id", er.CorrelationID),
		slog.Int("status_code", er.StatusCode),
		slog.String("error_type", string(er.ErrorType)),
		slog.String("error_class", typeName(err)),
		slog.String("error", redact.Error(err)),
	}

	if er.StatusCode >= 500 || m.cfg.IncludeStackTrace {
		var pe *PanicError
		if errors.As(err, &pe) {
			attrs = append(attrs, slog.String("stack", string(pe.Stack)))
		} else {
			attrs = append(attrs, slog.String("stack", string(debug.Stack())))
		}
	}

	log := m.logger
	if er.StatusCode >= 500 {
		log.ErrorContext(ctx, "request failed with server error", attrs...)
		return
	}
	log.WarnContext(ctx, "request failed with client error", attrs...)
}

// groupMembers returns the flattened members of the first grouped error in
// err's chain, or nil when err is not grouped.
func groupMembers(err error) []error {
	var group interface{ Unwrap() []error }
	if !errors.As(err, &group) {
		return nil
	}
	var out []error
	for _, member := range group.Unwrap() {
		if member == nil {
			continue
		}
		if nested := groupMembers(member); nested != nil {
			out = append(out, nested...)
			continue
		}
		out = append(out, member)
	}
	return out
}

func representative(members []error) error {
	for _, e := range members {
		if hasStructuredValidation(e) {
			return e
		}
	}
	for _, want := range []ErrorType{ErrorTypeValidation, ErrorTypeBusinessRule} {
		for _, e := range members {
			if Classify(e) == want {
				return e
			}
		}
	}
	return nil
}
