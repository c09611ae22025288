package handler

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goevery/carwash-notify/internal/ierr"
)

// FieldViolation is one failed rule, reported back to HTTP callers.
type FieldViolation struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	validate := validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	return &RequestValidator{
		validate,
	}
}

// Validate returns an InvalidArgument error listing every violation.
func (v *RequestValidator) Validate(req any) error {
	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return ierr.New(ierr.ErrorCodeInvalidArgument, err)
	}

	violations := make([]FieldViolation, 0, len(validationErrors))
	fields := make([]string, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		violations = append(violations, FieldViolation{
			Field: fieldError.Field(),
			Rule:  fieldError.Tag(),
		})
		fields = append(fields, fieldError.Field())
	}

	return ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid request: "+strings.Join(fields, ", "))).
		WithData(violations)
}
