package middleware

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// ErrorDetail describes one field-level problem.
type ErrorDetail struct {
	Field   string         `json:"field"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

// ErrorResponse is the caller-facing description of a failure. Values are
// built through NewErrorResponse, which guarantees a 4xx or 5xx status.
type ErrorResponse struct {
	StatusCode    int            `json:"status_code"`
	ErrorType     ErrorType      `json:"error_type"`
	Message       string         `json:"message"`
	Detail        string         `json:"detail,omitempty"`
	Errors        []ErrorDetail  `json:"errors,omitempty"`
	Context       map[string]any `json:"context,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
	CorrelationID string         `json:"correlation_id,omitempty"`
}

// ErrorResponseOption sets optional fields on an ErrorResponse.
type ErrorResponseOption func(*ErrorResponse)

// WithDetail sets the detail text.
func WithDetail(detail string) ErrorResponseOption {
	return func(e *ErrorResponse) { e.Detail = detail }
}

// WithErrors sets the field-level details.
func WithErrors(details ...ErrorDetail) ErrorResponseOption {
	return func(e *ErrorResponse) { e.Errors = append(e.Errors, details...) }
}

// WithContext merges ctx into the response context.
func WithContext(ctx map[string]any) ErrorResponseOption {
	return func(e *ErrorResponse) {
		if len(ctx) == 0 {
			return
		}
		if e.Context == nil {
			e.Context = make(map[string]any, len(ctx))
		}
		maps.Copy(e.Context, ctx)
	}
}

// WithCorrelationID sets the correlation id.
func WithCorrelationID(id string) ErrorResponseOption {
	return func(e *ErrorResponse) { e.CorrelationID = id }
}

// WithTimestamp overrides the creation time.
func WithTimestamp(ts time.Time) ErrorResponseOption {
	return func(e *ErrorResponse) { e.Timestamp = ts }
}

// NewErrorResponse creates an ErrorResponse. It fails with ErrInvalidStatusCode
// unless 400 <= status <= 599.
func NewErrorResponse(status int, errType ErrorType, message string, opts ...ErrorResponseOption) (ErrorResponse, error) {
	e := ErrorResponse{
		StatusCode: status,
		ErrorType:  errType,
		Message:    message,
		Timestamp:  time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&e)
	}
	if err := e.Validate(); err != nil {
		return ErrorResponse{}, err
	}
	return e, nil
}

// Validate checks the status code range.
func (e ErrorResponse) Validate() error {
	if e.StatusCode < 400 || e.StatusCode > 599 {
		return fmt.Errorf("%w: got %d", ErrInvalidStatusCode, e.StatusCode)
	}
	return nil
}

// UnmarshalJSON decodes and validates an ErrorResponse.
func (e *ErrorResponse) UnmarshalJSON(data []byte) error {
	type plain ErrorResponse
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	decoded := ErrorResponse(p)
	if err := decoded.Validate(); err != nil {
		return err
	}
	*e = decoded
	return nil
}

// Body returns the response body as a map, using the JSON field names.
func (e ErrorResponse) Body() map[string]any {
	body := map[string]any{
		"status_code": e.StatusCode,
		"error_type":  string(e.ErrorType),
		"message":     e.Message,
		"timestamp":   e.Timestamp.Format(time.RFC3339Nano),
	}
	if e.Detail != "" {
		body["detail"] = e.Detail
	}
	if e.CorrelationID != "" {
		body["correlation_id"] = e.CorrelationID
	}
	if len(e.Errors) > 0 {
		details := make([]map[string]any, len(e.Errors))
		for i, d := range e.Errors {
			m := map[string]any{"field": d.Field, "code": d.Code, "message": d.Message}
			if len(d.Context) > 0 {
				m["context"] = maps.Clone(d.Context)
			}
			details[i] = m
		}
		body["errors"] = details
	}
	if len(e.Context) > 0 {
		body["context"] = maps.Clone(e.Context)
	}
	return body
}

var securityHeaders = map[string]string{
	"X-Content-Type-Options":    "nosniff",
	"X-Frame-Options":           "DENY",
	"X-XSS-Protection":          "1; mode=block",
	"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
	"Referrer-Policy":           "strict-origin-when-cross-origin",
	"Content-Security-Policy":   "default-src 'none'; frame-ancestors 'none'",
	"Cache-Control":             "no-store",
}

// SecurityHeaders returns the headers attached to every error response.
func SecurityHeaders() map[string]string {
	return maps.Clone(securityHeaders)
}

// RenderErrorResponse renders er as a proxy-style response: statusCode,
// headers (security headers plus JSON content type) and a JSON string body.
func RenderErrorResponse(er ErrorResponse) Response {
	headers := SecurityHeaders()
	headers["Content-Type"] = "application/json"

	body, err := json.Marshal(er.Body())
	if err != nil {
		body = []byte(`{"message":"Internal server error"}`)
	}
	return Response{
		"statusCode": er.StatusCode,
		"headers":    headers,
		"body":       string(body),
	}
}

// reserved response keys that are not part of an implicit body.
var envelopeKeys = map[string]struct{}{
	"statusCode":        {},
	"headers":           {},
	"multiValueHeaders": {},
	"isBase64Encoded":   {},
}

// Parts splits r into a status code, flat headers and a body string.
// A missing status means 200. A missing body is built from the remaining
// non-envelope keys, so TimeoutResponse() renders as {"error":"Request timeout"}.
// Non-string bodies are JSON encoded and default to an application/json
// content type.
func (r Response) Parts() (int, map[string]string, string, error) {
	status := r.StatusCode()
	if status == 0 {
		status = 200
	}

	headers := make(map[string]string)
	switch h := r["headers"].(type) {
	case map[string]string:
		maps.Copy(headers, h)
	case map[string]any:
		for k, v := range h {
			headers[k] = fmt.Sprint(v)
		}
	}

	var payload any
	if b, ok := r["body"]; ok {
		payload = b
	} else {
		rest := make(map[string]any)
		for k, v := range r {
			if _, reserved := envelopeKeys[k]; !reserved {
				rest[k] = v
			}
		}
		if len(rest) > 0 {
			payload = rest
		}
	}

	switch b := payload.(type) {
	case nil:
		return status, headers, "", nil
	case string:
		return status, headers, b, nil
	case []byte:
		return status, headers, string(b), nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return 0, nil, "", fmt.Errorf("encoding response body: %w", err)
		}
		if _, ok := headers["Content-Type"]; !ok {
			headers["Content-Type"] = "application/json"
		}
		return status, headers, string(data), nil
	}
}
