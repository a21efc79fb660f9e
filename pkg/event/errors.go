package event

import (
	"errors"
	"fmt"
)

// ErrValidation matches every *ValidationError via errors.Is.
var ErrValidation = errors.New("event: validation failed")

// Validation error codes.
const (
	ErrCodeRequired      = "ERR_VALIDATION_REQUIRED"
	ErrCodeInvalidLength = "ERR_VALIDATION_INVALID_LENGTH"
	ErrCodeInvalidHex    = "ERR_VALIDATION_INVALID_HEX"
	ErrCodeNegative      = "ERR_VALIDATION_NEGATIVE"
	ErrCodeOutOfRange    = "ERR_VALIDATION_OUT_OF_RANGE"
	ErrCodeInvalidUTF8   = "ERR_VALIDATION_INVALID_UTF8"
)

// ValidationError represents a specific field validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Field, e.Message, e.Code)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func newValidationError(field, code, format string, args ...any) *ValidationError {
	return &ValidationError{
		Field:   field,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}
