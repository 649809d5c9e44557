package middleware

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/recipe-api/internal/domain"
)

// validationDetails extracts field-level details from a structured
// validation error, or nil when err carries none.
func validationDetails(err error) []ErrorDetail {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		details := make([]ErrorDetail, 0, len(ve.Fields))
		for _, f := range ve.Fields {
			details = append(details, ErrorDetail{
				Field:   f.Field,
				Code:    f.Code,
				Message: f.Message,
				Context: f.Context,
			})
		}
		return details
	}

	var fields validator.ValidationErrors
	if errors.As(err, &fields) {
		details := make([]ErrorDetail, 0, len(fields))
		for _, fe := range fields {
			d := ErrorDetail{
				Field:   fe.Field(),
				Code:    fe.Tag(),
				Message: fmt.Sprintf("Invalid %s: %s", fe.Field(), validationTagMessage(fe.Tag())),
			}
			if fe.Param() != "" {
				d.Context = map[string]any{"param": fe.Param()}
			}
			details = append(details, d)
		}
		return details
	}
	return nil
}

// validationTagMessage maps validation tags to user-friendly messages.
func validationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "email":
		return "invalid email format"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "url":
		return "invalid url"
	default:
		return "validation failed"
	}
}
