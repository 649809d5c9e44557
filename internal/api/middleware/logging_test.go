package middleware_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/phrazzld/recipe-api/internal/api/middleware"
	"github.com/phrazzld/recipe-api/internal/api/shared"
	"github.com/phrazzld/recipe-api/internal/platform/logger"
	"github.com/phrazzld/recipe-api/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredLoggingSuccessWritesTwoEvents(t *testing.T) {
	log, buf := logger.GetTestLogger(t)
	strategy := &fakeStrategy{}
	mw := middleware.NewStructuredLoggingMiddleware(strategy, middleware.DefaultLoggingConfig(), middleware.WithLogger(log))

	var seenID string
	var seenLogger bool
	next := func(ctx context.Context, _ *middleware.Request) (middleware.Response, error) {
		seenID = shared.GetCorrelationID(ctx)
		seenLogger = logger.FromContext(ctx) != nil
		return middleware.Response{"statusCode": 200, "body": "hello"}, nil
	}

	resp, err := mw.Invoke(context.Background(), next, newRequest())
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode())

	entries, err := buf.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "request started", entries[0]["msg"])
	assert.Equal(t, "request completed", entries[1]["msg"])
	for _, e := range entries {
		assert.Equal(t, "req-123", e["correlation_id"])
	}
	assert.Contains(t, entries[1], "duration_ms")

	summary, ok := entries[1]["response"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 200, summary["status_code"])
	assert.EqualValues(t, 5, summary["body_size"])

	assert.Equal(t, "req-123", seenID)
	assert.True(t, seenLogger)
	assert.Equal(t, "req-123", strategy.injectedLC.CorrelationID)
	assert.EqualValues(t, 1, strategy.cleanups.Load())
}

func TestStructuredLoggingFailure(t *testing.T) {
	log, buf := logger.GetTestLogger(t)
	mw := middleware.NewStructuredLoggingMiddleware(&fakeStrategy{}, middleware.DefaultLoggingConfig(), middleware.WithLogger(log))

	boom := errors.New("db password=hunter22 rejected")
	_, err := mw.Invoke(context.Background(), func(context.Context, *middleware.Request) (middleware.Response, error) {
		return nil, boom
	}, newRequest())
	require.ErrorIs(t, err, boom, "failures are re-raised unchanged")

	entries, err := buf.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "request failed", entries[1]["msg"])
	assert.Equal(t, "ERROR", entries[1]["level"])
	assert.Equal(t, "errorString", entries[1]["error_type"])
	assert.NotContains(t, buf.String(), "hunter22")
}

func TestStructuredLoggingGeneratesCorrelationID(t *testing.T) {
	log, buf := logger.GetTestLogger(t)
	cfg := middleware.LoggingConfig{LogRequestStart: false}
	mw := middleware.NewStructuredLoggingMiddleware(&fakeStrategy{}, cfg, middleware.WithLogger(log))

	var seenID string
	req := middleware.NewRequest(map[string]any{"path": "/"}, nil)
	_, err := mw.Invoke(context.Background(), func(ctx context.Context, _ *middleware.Request) (middleware.Response, error) {
		seenID = shared.GetCorrelationID(ctx)
		return middleware.Response{"statusCode": 204}, nil
	}, req)
	require.NoError(t, err)

	entries, err := buf.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1, "start event disabled")
	assert.NotEmpty(t, seenID)
	assert.Equal(t, seenID, entries[0]["correlation_id"])
	assert.NotContains(t, entries[0], "response", "summary disabled")
}

func TestStructuredLoggingMissingEvent(t *testing.T) {
	log, _ := logger.GetTestLogger(t)
	mw := middleware.NewStructuredLoggingMiddleware(&fakeStrategy{}, middleware.DefaultLoggingConfig(), middleware.WithLogger(log))

	_, err := mw.Invoke(context.Background(), okHandler, middleware.NewRequest(nil, nil))
	assert.ErrorIs(t, err, middleware.ErrMissingEvent)
}

func TestFullChainSuccessLogsOnlyLifecycleEvents(t *testing.T) {
	lifecycleLog, lifecycleBuf := logger.GetTestLogger(t)
	otherLog, _ := logger.GetTestLogger(t)
	strategy := &fakeStrategy{auth: &middleware.AuthContext{UserID: "user-1", IsAuthenticated: true}}

	composer := middleware.NewComposer([]middleware.Middleware{
		middleware.NewExceptionHandlerMiddleware(strategy, middleware.ExceptionHandlerConfig{}, middleware.WithLogger(otherLog)),
		middleware.NewAuthenticationMiddleware(strategy, middleware.NewAuthPolicy(), middleware.WithLogger(otherLog)),
		middleware.NewStructuredLoggingMiddleware(strategy, middleware.DefaultLoggingConfig(), middleware.WithLogger(lifecycleLog)),
	})

	resp, err := composer.Compose(okHandler)(context.Background(), newRequest())
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode())

	entries, err := lifecycleBuf.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "request started", entries[0]["msg"])
	assert.Equal(t, "request completed", entries[1]["msg"])
}

func TestStructuredLoggingScopesContextLogger(t *testing.T) {
	h := testutils.NewTestSlogHandler()
	mw := middleware.NewStructuredLoggingMiddleware(&fakeStrategy{}, middleware.DefaultLoggingConfig(), middleware.WithLogger(slog.New(h)))

	next := func(ctx context.Context, _ *middleware.Request) (middleware.Response, error) {
		logger.FromContext(ctx).InfoContext(ctx, "loading recipe")
		return middleware.Response{"statusCode": 200}, nil
	}
	_, err := mw.Invoke(context.Background(), next, newRequest())
	require.NoError(t, err)

	assert.Equal(t, []string{"request started", "loading recipe", "request completed"}, h.Messages())
	for _, e := range h.Entries() {
		assert.Equal(t, "req-123", e["correlation_id"], e.Message())
	}
}

func TestNewStructuredLoggingMiddlewareRequiresStrategy(t *testing.T) {
	assert.PanicsWithValue(t, "logging strategy cannot be nil", func() {
		middleware.NewStructuredLoggingMiddleware(nil, middleware.DefaultLoggingConfig())
	})
}
