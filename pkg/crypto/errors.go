package crypto

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed errors below via errors.Is.
var (
	ErrInvalidKey    = errors.New("crypto: invalid key")
	ErrCryptoFailure = errors.New("crypto: primitive failure")
	ErrInvalidLength = errors.New("crypto: invalid input length")
)

// InvalidKeyError reports key bytes that are not a valid scalar or point.
type InvalidKeyError struct {
	Reason string
	Err    error
}

func (e *InvalidKeyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid key: %s: %v", e.Reason, e.Err)
	}
	return "invalid key: " + e.Reason
}

func (e *InvalidKeyError) Unwrap() error { return e.Err }

func (e *InvalidKeyError) Is(target error) bool { return target == ErrInvalidKey }

// FailureError is an unrecoverable error from the underlying primitive. It is
// never used to report a signature that simply does not verify.
type FailureError struct {
	Op  string
	Err error
}

func (e *FailureError) Error() string {
	return fmt.Sprintf("crypto failure during %s: %v", e.Op, e.Err)
}

func (e *FailureError) Unwrap() error { return e.Err }

func (e *FailureError) Is(target error) bool { return target == ErrCryptoFailure }

// LengthError reports an input of the wrong decoded size.
type LengthError struct {
	Field string
	Want  int
	Got   int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("invalid %s length: expected %d bytes, got %d", e.Field, e.Want, e.Got)
}

func (e *LengthError) Is(target error) bool { return target == ErrInvalidLength }

func checkLen(field string, b []byte, want int) error {
	if len(b) != want {
		return &LengthError{Field: field, Want: want, Got: len(b)}
	}
	return nil
}
