package model

import (
	"errors"
	"strings"
)

// ValidationError reports the fields that failed validation on a write.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, ", ")
}

// newValidationError returns nil when no fields failed.
func newValidationError(fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// ValidationFields extracts the failing field names from err, or nil when
// err is not a validation error.
func ValidationFields(err error) []string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return nil
}
