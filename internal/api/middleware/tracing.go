package middleware

import (
	"context"
	"errors"

	"github.com/phrazzld/recipe-api/internal/api/shared"
	"github.com/phrazzld/recipe-api/internal/redact"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/phrazzld/recipe-api/internal/api/middleware"

// TracingMiddleware opens a server span around inner layers.
type TracingMiddleware struct {
	Base
	tracer   trace.Tracer
	spanName string
}

// NewTracingMiddleware creates a TracingMiddleware in the custom category.
func NewTracingMiddleware(tp trace.TracerProvider, spanName string, opts ...Option) *TracingMiddleware {
	o := buildOptions("TracingMiddleware", opts)
	return &TracingMiddleware{
		Base:     NewBase(o.name, CategoryCustom, o.timeout),
		tracer:   tp.Tracer(tracerName),
		spanName: spanName,
	}
}

// Invoke implements Middleware.
func (m *TracingMiddleware) Invoke(ctx context.Context, next Handler, req *Request) (Response, error) {
	ctx, span := m.tracer.Start(ctx, m.spanName, trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	if id := shared.GetCorrelationID(ctx); id != "" {
		span.SetAttributes(attribute.String("correlation_id", id))
	}
	if ac, ok := AuthContextFrom(ctx); ok && ac.IsAuthenticated {
		span.SetAttributes(attribute.Bool("auth.authenticated", true))
	}

	resp, err := next(ctx, req)
	if err != nil {
		span.RecordError(errors.New(redact.Error(err)))
		span.SetStatus(codes.Error, Classify(err).DefaultMessage())
		return resp, err
	}

	code := resp.StatusCode()
	if code != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", code))
	}
	if code >= 500 {
		span.SetStatus(codes.Error, "server error")
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return resp, nil
}
