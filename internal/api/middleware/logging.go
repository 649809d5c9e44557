package middleware

import (
	"context"
	"log/slog"
	"reflect"
	"time"

	"github.com/phrazzld/recipe-api/internal/api/shared"
	"github.com/phrazzld/recipe-api/internal/platform/logger"
	"github.com/phrazzld/recipe-api/internal/redact"
)

// LoggingConfig controls which lifecycle events are written.
type LoggingConfig struct {
	LogRequestStart    bool
	LogResponseSummary bool
}

// DefaultLoggingConfig logs the start event and the response summary.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{LogRequestStart: true, LogResponseSummary: true}
}

// StructuredLoggingMiddleware writes one JSON event when a request starts and
// one when it completes or fails, correlated by a per-request id.
type StructuredLoggingMiddleware struct {
	Base
	strategy LoggingStrategy
	cfg      LoggingConfig
	logger   *slog.Logger
}

// NewStructuredLoggingMiddleware creates a StructuredLoggingMiddleware. It
// panics when strategy is nil.
func NewStructuredLoggingMiddleware(strategy LoggingStrategy, cfg LoggingConfig, opts ...Option) *StructuredLoggingMiddleware {
	if strategy == nil {
		panic("logging strategy cannot be nil")
	}
	o := buildOptions("StructuredLoggingMiddleware", opts)
	return &StructuredLoggingMiddleware{
		Base:     NewBase(o.name, CategoryLogging, o.timeout),
		strategy: strategy,
		cfg:      cfg,
		logger:   o.logger,
	}
}

// Invoke implements Middleware. The correlation id and a request-scoped
// logger are placed on the context handed to inner layers.
func (m *StructuredLoggingMiddleware) Invoke(ctx context.Context, next Handler, req *Request) (Response, error) {
	start := time.Now()
	defer m.strategy.Cleanup(ctx)

	lc, err := m.strategy.ExtractLoggingContext(ctx, req)
	if err != nil {
		return nil, err
	}
	if lc.CorrelationID == "" {
		lc.CorrelationID = shared.NewCorrelationID()
	}

	if req != nil {
		req.CorrelationID = lc.CorrelationID
	}

	log := m.logger.With(slog.String("correlation_id", lc.CorrelationID))
	ctx = shared.WithCorrelationID(ctx, lc.CorrelationID)
	ctx = logger.WithLogger(ctx, log)
	ctx = m.strategy.InjectLoggingContext(ctx, req, lc)

	if m.cfg.LogRequestStart {
		log.InfoContext(ctx, "request started",
			slog.Any("function", redact.Map(lc.Function)),
			slog.Any("request", redact.Map(lc.Request)))
	}

	resp, err := next(ctx, req)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0

	if err != nil {
		log.ErrorContext(ctx, "request failed",
			slog.Float64("duration_ms", elapsed),
			slog.String("error_type", typeName(err)),
			slog.String("error", redact.Error(err)))
		return resp, err
	}

	attrs := []any{slog.Float64("duration_ms", elapsed)}
	if m.cfg.LogResponseSummary {
		attrs = append(attrs, slog.Any("response", summarize(resp)))
	}
	log.InfoContext(ctx, "request completed", attrs...)
	return resp, nil
}

func summarize(resp Response) map[string]any {
	summary := map[string]any{"status_code": "unknown"}
	if code := resp.StatusCode(); code != 0 {
		summary["status_code"] = code
	}
	switch body := resp["body"].(type) {
	case string:
		summary["body_size"] = len(body)
	case []byte:
		summary["body_size"] = len(body)
	case map[string]any:
		summary["body_keys"] = len(body)
	}
	return summary
}

// typeName returns the bare type name of v without package or pointer.
func typeName(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return "nil"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.Name()
}
