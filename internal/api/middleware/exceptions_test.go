package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/recipe-api/internal/api/middleware"
	"github.com/phrazzld/recipe-api/internal/api/shared"
	"github.com/phrazzld/recipe-api/internal/domain"
	"github.com/phrazzld/recipe-api/internal/platform/logger"
	"github.com/phrazzld/recipe-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want middleware.ErrorType
		code int
	}{
		{"structured validation", domain.NewValidationError("bad input"), middleware.ErrorTypeValidation, 422},
		{"wrapped validation sentinel", fmt.Errorf("title: %w", domain.ErrValidation), middleware.ErrorTypeValidation, 422},
		{"invalid type", fmt.Errorf("servings: %w", domain.ErrInvalidType), middleware.ErrorTypeValidation, 422},
		{"authentication", middleware.NewAuthenticationError("Authentication required"), middleware.ErrorTypeAuthentication, 401},
		{"authorization", middleware.NewAuthorizationError("nope"), middleware.ErrorTypeAuthorization, 403},
		{"permission sentinel", fmt.Errorf("edit: %w", domain.ErrPermission), middleware.ErrorTypeAuthorization, 403},
		{"filesystem permission", &fs.PathError{Op: "open", Path: "/x", Err: fs.ErrPermission}, middleware.ErrorTypeAuthorization, 403},
		{"not found", fmt.Errorf("recipe 42: %w", domain.ErrNotFound), middleware.ErrorTypeNotFound, 404},
		{"store not found", store.ErrIdentityNotFound, middleware.ErrorTypeNotFound, 404},
		{"missing file", &fs.PathError{Op: "open", Path: "/x", Err: fs.ErrNotExist}, middleware.ErrorTypeNotFound, 404},
		{"conflict", store.ErrDuplicate, middleware.ErrorTypeConflict, 409},
		{"business rule", fmt.Errorf("meal in the past: %w", domain.ErrBusinessRule), middleware.ErrorTypeBusinessRule, 400},
		{"deadline", context.DeadlineExceeded, middleware.ErrorTypeTimeout, 408},
		{"io deadline", os.ErrDeadlineExceeded, middleware.ErrorTypeTimeout, 408},
		{"timeout sentinel", domain.ErrTimeout, middleware.ErrorTypeTimeout, 408},
		{"connection refused", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, middleware.ErrorTypeTimeout, 408},
		{"connection reset", fmt.Errorf("read: %w", syscall.ECONNRESET), middleware.ErrorTypeTimeout, 408},
		{"unavailable", domain.ErrUnavailable, middleware.ErrorTypeTimeout, 408},
		{"unknown", errors.New("boom"), middleware.ErrorTypeInternal, 500},
		{"panic", &middleware.PanicError{Value: "boom"}, middleware.ErrorTypeInternal, 500},
		{"nil", nil, middleware.ErrorTypeInternal, 500},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := middleware.Classify(tc.err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.code, got.StatusCode())
		})
	}
}

func decodeBody(t *testing.T, resp middleware.Response) map[string]any {
	t.Helper()
	raw, ok := resp["body"].(string)
	require.True(t, ok, "body must be a JSON string")
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &body))
	return body
}

func invokeFailing(t *testing.T, cfg middleware.ExceptionHandlerConfig, err error) (middleware.Response, *logger.TestLogBuffer) {
	t.Helper()
	log, buf := logger.GetTestLogger(t)
	mw := middleware.NewExceptionHandlerMiddleware(&fakeStrategy{}, cfg, middleware.WithLogger(log))

	ctx := shared.WithCorrelationID(context.Background(), "corr-1")
	resp, gotErr := mw.Invoke(ctx, func(context.Context, *middleware.Request) (middleware.Response, error) {
		return nil, err
	}, newRequest())
	require.NoError(t, gotErr, "the exception handler never returns an error")
	return resp, buf
}

func TestExceptionHandlerConvertsErrors(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
		wantLevel   string
	}{
		{"authentication", middleware.NewAuthenticationError("Authentication required"), 401, "Authentication required", "WARN"},
		{"authorization", middleware.NewAuthorizationError("Insufficient permissions"), 403, "Insufficient permissions", "WARN"},
		{"not found", fmt.Errorf("recipe 42: %w", domain.ErrNotFound), 404, "Resource not found", "WARN"},
		{"internal", errors.New("pq: relation users does not exist"), 500, "Internal server error", "ERROR"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, buf := invokeFailing(t, middleware.ExceptionHandlerConfig{}, tc.err)

			assert.Equal(t, tc.wantStatus, resp.StatusCode())
			body := decodeBody(t, resp)
			assert.Equal(t, tc.wantMessage, body["message"])
			assert.Equal(t, "corr-1", body["correlation_id"])
			assert.EqualValues(t, tc.wantStatus, body["status_code"])
			assert.Equal(t, map[string]any{"path": "/recipes"}, body["context"])

			headers, ok := resp["headers"].(map[string]string)
			require.True(t, ok)
			for name, value := range middleware.SecurityHeaders() {
				assert.Equal(t, value, headers[name], "header %s", name)
			}
			assert.Equal(t, "application/json", headers["Content-Type"])

			entries, err := buf.GetLogEntries()
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, tc.wantLevel, entries[0]["level"])
			assert.Equal(t, "corr-1", entries[0]["correlation_id"])
			if tc.wantStatus >= 500 {
				assert.Contains(t, entries[0], "stack")
			} else {
				assert.NotContains(t, entries[0], "stack")
			}
		})
	}
}

func TestExceptionHandlerHidesServerErrorDetail(t *testing.T) {
	resp, _ := invokeFailing(t, middleware.ExceptionHandlerConfig{}, errors.New("dial users-db.internal:5432 failed"))
	body := decodeBody(t, resp)
	assert.NotContains(t, body, "detail")
	assert.NotContains(t, resp["body"], "users-db")
}

func TestExceptionHandlerSanitizesClientDetail(t *testing.T) {
	err := fmt.Errorf("recipe owned by bob@example.com at /var/task/recipes.go: %w", domain.ErrNotFound)
	resp, _ := invokeFailing(t, middleware.ExceptionHandlerConfig{Production: true}, err)

	body := decodeBody(t, resp)
	detail, ok := body["detail"].(string)
	require.True(t, ok)
	assert.Contains(t, detail, "[REDACTED_EMAIL]")
	assert.Contains(t, detail, "[REDACTED_PATH]")
	assert.NotContains(t, detail, "bob@example.com")
}

func TestExceptionHandlerExposeInternalDetails(t *testing.T) {
	resp, _ := invokeFailing(t, middleware.ExceptionHandlerConfig{ExposeInternalDetails: true},
		errors.New("cache miss for key=abcdefghijk"))
	body := decodeBody(t, resp)
	assert.Equal(t, 500, resp.StatusCode())
	assert.Equal(t, "errorString: cache miss for [REDACTED_KEY]", body["message"])
}

func TestExceptionHandlerValidationDetails(t *testing.T) {
	err := domain.NewValidationError("Recipe is invalid",
		domain.FieldError{Field: "title", Code: "required", Message: "title is required"},
		domain.FieldError{Field: "servings", Code: "min", Message: "must be at least 1", Context: map[string]any{"min": "1"}},
	)
	resp, _ := invokeFailing(t, middleware.ExceptionHandlerConfig{}, err)

	assert.Equal(t, 422, resp.StatusCode())
	body := decodeBody(t, resp)
	assert.Equal(t, "Validation failed", body["message"])
	assert.Equal(t, string(middleware.ErrorTypeValidation), body["error_type"])

	details, ok := body["errors"].([]any)
	require.True(t, ok)
	require.Len(t, details, 2)
	first := details[0].(map[string]any)
	assert.Equal(t, "title", first["field"])
	assert.Equal(t, "required", first["code"])
	second := details[1].(map[string]any)
	assert.Equal(t, map[string]any{"min": "1"}, second["context"])
}

func TestExceptionHandlerValidatorErrors(t *testing.T) {
	type recipe struct {
		Title    string `validate:"required"`
		Servings int    `validate:"min=1"`
	}
	err := validator.New().Struct(recipe{})
	require.Error(t, err)

	resp, _ := invokeFailing(t, middleware.ExceptionHandlerConfig{}, err)
	assert.Equal(t, 422, resp.StatusCode())

	details := decodeBody(t, resp)["errors"].([]any)
	require.Len(t, details, 2)
	first := details[0].(map[string]any)
	assert.Equal(t, "Title", first["field"])
	assert.Equal(t, "required", first["code"])
	assert.Equal(t, "Invalid Title: required field", first["message"])
	second := details[1].(map[string]any)
	assert.Equal(t, map[string]any{"param": "1"}, second["context"])
}

func TestExceptionHandlerGroupedErrors(t *testing.T) {
	structured := domain.NewValidationError("Recipe is invalid", domain.FieldError{Field: "title", Code: "required", Message: "required"})

	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "structured validation wins regardless of position",
			err:         errors.Join(errors.New("boom"), fmt.Errorf("x: %w", domain.ErrBusinessRule), structured),
			wantStatus:  422,
			wantMessage: "Validation failed",
		},
		{
			name:        "business rule beats unknown",
			err:         errors.Join(errors.New("boom"), fmt.Errorf("meal in past: %w", domain.ErrBusinessRule)),
			wantStatus:  400,
			wantMessage: "Business rule violation",
		},
		{
			name:        "validation beats an earlier business rule",
			err:         errors.Join(fmt.Errorf("meal: %w", domain.ErrBusinessRule), fmt.Errorf("qty: %w", domain.ErrValidation)),
			wantStatus:  422,
			wantMessage: "Validation failed",
		},
		{
			name:        "validation sentinel beats unknown",
			err:         fmt.Errorf("batch: %w", errors.Join(errors.New("boom"), domain.ErrValidation)),
			wantStatus:  422,
			wantMessage: "Validation failed",
		},
		{
			name:        "no representative yields generic 500",
			err:         errors.Join(errors.New("boom"), store.ErrDuplicate, errors.New("bang")),
			wantStatus:  500,
			wantMessage: "Multiple errors occurred",
		},
		{
			name:        "single member group is treated as that member",
			err:         errors.Join(fmt.Errorf("recipe: %w", domain.ErrNotFound)),
			wantStatus:  404,
			wantMessage: "Resource not found",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := invokeFailing(t, middleware.ExceptionHandlerConfig{}, tc.err)
			assert.Equal(t, tc.wantStatus, resp.StatusCode())
			assert.Equal(t, tc.wantMessage, decodeBody(t, resp)["message"])
		})
	}
}

func TestExceptionHandlerGroupedGenericCount(t *testing.T) {
	resp, _ := invokeFailing(t, middleware.ExceptionHandlerConfig{},
		errors.Join(errors.New("a"), errors.Join(errors.New("b"), errors.New("c"))))

	body := decodeBody(t, resp)
	assert.Equal(t, "3 errors occurred", body["detail"])
	assert.EqualValues(t, 3, body["context"].(map[string]any)["error_count"])
}

func TestExceptionHandlerRecoversPanic(t *testing.T) {
	log, buf := logger.GetTestLogger(t)
	mw := middleware.NewExceptionHandlerMiddleware(nil, middleware.ExceptionHandlerConfig{}, middleware.WithLogger(log))

	resp, err := mw.Invoke(context.Background(), func(context.Context, *middleware.Request) (middleware.Response, error) {
		panic("nil map write")
	}, newRequest())

	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode())
	body := decodeBody(t, resp)
	assert.Equal(t, "Internal server error", body["message"])
	assert.NotEmpty(t, body["correlation_id"], "a correlation id is generated when none is present")
	logger.AssertLogField(t, buf, "error_class", "PanicError")
}

func TestExceptionHandlerPassesThroughSuccess(t *testing.T) {
	log, buf := logger.GetTestLogger(t)
	mw := middleware.NewExceptionHandlerMiddleware(nil, middleware.ExceptionHandlerConfig{}, middleware.WithLogger(log))

	resp, err := mw.Invoke(context.Background(), okHandler, newRequest())
	require.NoError(t, err)
	assert.Equal(t, middleware.Response{"statusCode": 200, "body": "ok"}, resp)

	entries, err := buf.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "DEBUG", entries[0]["level"])
	assert.Equal(t, "request completed without error", entries[0]["msg"])
	assert.EqualValues(t, 200, entries[0]["status_code"])
}

func TestExceptionHandlerIncludeStackTraceForClientErrors(t *testing.T) {
	_, buf := invokeFailing(t, middleware.ExceptionHandlerConfig{IncludeStackTrace: true}, domain.ErrConflict)
	entries, err := buf.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0], "stack")
}

func TestSanitizerIsIdempotent(t *testing.T) {
	inputs := []string{
		"failed for bob@example.com at /var/task/internal/recipes.go",
		"panic: boom\n\ngoroutine 1 [running]:\nmain.main()\n\t/app/main.go:10 +0x1d",
		"token=abcdefghijklmnop arn:aws:lambda:us-east-1:123456789012:function:recipes",
		"*postgres.IdentityStore: connect users-db.internal:5432",
		"Recipe title is required",
	}

	for _, production := range []bool{false, true} {
		s := middleware.Sanitizer{Production: production}
		for _, in := range inputs {
			once := s.Sanitize(in)
			assert.Equal(t, once, s.Sanitize(once), "production=%v input=%q", production, in)
		}
	}

	assert.Equal(t, "Recipe title is required", middleware.Sanitizer{}.Sanitize("Recipe title is required"))
	assert.Contains(t, middleware.Sanitizer{Production: true}.Sanitize(inputs[1]), "[STACK_TRACE_REDACTED]")
}

func TestNewErrorResponseEnforcesStatusRange(t *testing.T) {
	for _, status := range []int{0, 200, 399, 600} {
		_, err := middleware.NewErrorResponse(status, middleware.ErrorTypeInternal, "x")
		assert.ErrorIs(t, err, middleware.ErrInvalidStatusCode, "status %d", status)
	}
	for _, status := range []int{400, 422, 599} {
		_, err := middleware.NewErrorResponse(status, middleware.ErrorTypeInternal, "x")
		assert.NoError(t, err, "status %d", status)
	}
}

func TestErrorResponseJSONRoundTrip(t *testing.T) {
	er, err := middleware.NewErrorResponse(422, middleware.ErrorTypeValidation, "Validation failed",
		middleware.WithDetail("title: required"),
		middleware.WithErrors(middleware.ErrorDetail{Field: "title", Code: "required", Message: "required field"}),
		middleware.WithContext(map[string]any{"path": "/recipes"}),
		middleware.WithCorrelationID("corr-1"),
		middleware.WithTimestamp(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)),
	)
	require.NoError(t, err)

	data, err := json.Marshal(er)
	require.NoError(t, err)

	var decoded middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, er, decoded)

	var invalid middleware.ErrorResponse
	err = json.Unmarshal([]byte(`{"status_code":200,"error_type":"internal_error","message":"x"}`), &invalid)
	assert.ErrorIs(t, err, middleware.ErrInvalidStatusCode)
}

func TestErrorResponseBody(t *testing.T) {
	er, err := middleware.NewErrorResponse(404, middleware.ErrorTypeNotFound, "Resource not found",
		middleware.WithTimestamp(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"status_code": 404,
		"error_type":  "not_found",
		"message":     "Resource not found",
		"timestamp":   "2024-05-01T12:00:00Z",
	}, er.Body())
}
