package canonicalize

import (
	"errors"
	"fmt"
)

// ErrEncoding matches every *EncodingError via errors.Is.
var ErrEncoding = errors.New("canonicalize: encoding failed")

// Deterministic error codes for canonical encoding failures.
const (
	ErrCodeInvalidPubKey  = "ERR_ENCODING_INVALID_PUBKEY"
	ErrCodeNegativeNumber = "ERR_ENCODING_NEGATIVE_NUMBER"
	ErrCodeInvalidUTF8    = "ERR_ENCODING_INVALID_UTF8"
	ErrCodeMalformedTag   = "ERR_ENCODING_MALFORMED_TAG"
	ErrCodeMalformedJSON  = "ERR_ENCODING_MALFORMED_JSON"
)

// EncodingError reports field content that prevents canonical serialization.
type EncodingError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Err     error  `json:"-"`
}

func (e *EncodingError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *EncodingError) Unwrap() error { return e.Err }

func (e *EncodingError) Is(target error) bool { return target == ErrEncoding }

func newEncodingError(code, field, format string, args ...any) *EncodingError {
	return &EncodingError{
		Code:    code,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}
