package event

import (
	"fmt"

	"go.uber.org/multierr"
)

// Validate checks every field and returns all failures combined. Each
// failure is a *ValidationError; use multierr.Errors to split them. An unset
// id or signature is not a failure, a malformed one is.
func (e *Event) Validate() error {
	var err error

	err = multierr.Append(err, checkHex("pubkey", e.pubKey, PubKeyHexLen))
	if e.id != "" {
		err = multierr.Append(err, checkHex("id", e.id, IDHexLen))
	}
	if e.sig != "" {
		err = multierr.Append(err, checkHex("sig", e.sig, SignatureHexLen))
	}
	if e.createdAt < 0 {
		err = multierr.Append(err, newValidationError("created_at", ErrCodeNegative, "created_at must not be negative, got %d", e.createdAt))
	}
	if e.kind < 0 {
		err = multierr.Append(err, newValidationError("kind", ErrCodeNegative, "kind must not be negative, got %d", e.kind))
	}
	for i, tag := range e.tags {
		for j, s := range tag {
			err = multierr.Append(err, checkUTF8(fmt.Sprintf("tags[%d][%d]", i, j), s))
		}
	}
	err = multierr.Append(err, checkUTF8("content", e.content))

	return err
}
