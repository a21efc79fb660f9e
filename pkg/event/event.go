// Package event implements the signed event record: its fields, the id
// derived from the canonical serialization, and the signature binding the
// author's key to that id.
//
// Setters assign in place and never recompute the id. A record mutated after
// UpdateID or Sign keeps its stale id and signature, and Verify reports it as
// not verified until it is recomputed.
package event

import (
	"encoding/hex"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/Mindburn-Labs/nostrevent/pkg/canonicalize"
	"github.com/Mindburn-Labs/nostrevent/pkg/crypto"
)

// Hex lengths of the fixed-size fields.
const (
	IDHexLen        = 2 * crypto.HashSize
	PubKeyHexLen    = 2 * crypto.PublicKeySize
	SignatureHexLen = 2 * crypto.SignatureSize
)

// now is replaced in tests.
var now = time.Now

// Event is a signed, content-addressed record.
type Event struct {
	id        string
	pubKey    string
	createdAt int64
	kind      int
	tags      Tags
	content   string
	sig       string
}

// New returns an empty event stamped with the current time.
func New() *Event {
	return &Event{createdAt: now().Unix()}
}

func (e *Event) ID() string        { return e.id }
func (e *Event) PublicKey() string { return e.pubKey }
func (e *Event) CreatedAt() int64  { return e.createdAt }
func (e *Event) Kind() int         { return e.kind }
func (e *Event) Content() string   { return e.content }
func (e *Event) Signature() string { return e.sig }

// Tags returns a deep copy of the tag list.
func (e *Event) Tags() Tags { return e.tags.Clone() }

// SetID stores an id without checking it against the fields.
func (e *Event) SetID(id string) error {
	if err := checkHex("id", id, IDHexLen); err != nil {
		return err
	}
	e.id = id
	return nil
}

func (e *Event) SetSignature(sig string) error {
	if err := checkHex("sig", sig, SignatureHexLen); err != nil {
		return err
	}
	e.sig = sig
	return nil
}

func (e *Event) SetPublicKey(pubKey string) error {
	if err := checkHex("pubkey", pubKey, PubKeyHexLen); err != nil {
		return err
	}
	e.pubKey = pubKey
	return nil
}

func (e *Event) SetKind(kind int) error {
	if kind < 0 {
		return newValidationError("kind", ErrCodeNegative, "kind must not be negative, got %d", kind)
	}
	e.kind = kind
	return nil
}

// SetCreatedAt sets the creation time in seconds since the Unix epoch.
func (e *Event) SetCreatedAt(createdAt int64) error {
	if createdAt < 0 {
		return newValidationError("created_at", ErrCodeNegative, "created_at must not be negative, got %d", createdAt)
	}
	e.createdAt = createdAt
	return nil
}

func (e *Event) SetContent(content string) { e.content = content }

// SetTags replaces the tag list with a copy of tags.
func (e *Event) SetTags(tags Tags) { e.tags = tags.Clone() }

// AddTag appends a copy of tag.
func (e *Event) AddTag(tag Tag) { e.tags = append(e.tags, tag.Clone()) }

// CanonicalBytes returns the serialization hashed to form the id.
func (e *Event) CanonicalBytes() ([]byte, error) {
	return canonicalize.Encode(e.pubKey, e.createdAt, e.kind, []Tag(e.tags), e.content)
}

// ComputeID returns the id of the current fields without storing it.
func (e *Event) ComputeID() (string, error) {
	sum, err := crypto.HashEvent(e.pubKey, e.createdAt, e.kind, []Tag(e.tags), e.content)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sum[:]), nil
}

// UpdateID recomputes and stores the id.
func (e *Event) UpdateID() error {
	id, err := e.ComputeID()
	if err != nil {
		return err
	}
	e.id = id
	return nil
}

// Sign sets the public key from signer, recomputes the id and signs it. The
// event is left unchanged on error.
func (e *Event) Sign(signer crypto.Signer) error {
	pubKey := signer.PublicKey()
	if err := checkHex("pubkey", pubKey, PubKeyHexLen); err != nil {
		return err
	}
	sum, err := crypto.HashEvent(pubKey, e.createdAt, e.kind, []Tag(e.tags), e.content)
	if err != nil {
		return err
	}
	sig, err := signer.Sign(sum[:])
	if err != nil {
		return fmt.Errorf("sign event: %w", err)
	}
	e.pubKey = pubKey
	e.id = hex.EncodeToString(sum[:])
	e.sig = sig
	return nil
}

// CheckID reports whether the stored id matches the current fields.
func (e *Event) CheckID() (bool, error) {
	if err := checkHex("id", e.id, IDHexLen); err != nil {
		return false, err
	}
	if err := checkHex("pubkey", e.pubKey, PubKeyHexLen); err != nil {
		return false, err
	}
	id, err := e.ComputeID()
	if err != nil {
		return false, err
	}
	return id == e.id, nil
}

// CheckSignature reports whether sig is a valid signature of the stored id
// under pubkey. It does not recompute the id.
func (e *Event) CheckSignature() (bool, error) {
	id, err := decodeHex("id", e.id, IDHexLen)
	if err != nil {
		return false, err
	}
	pub, err := decodeHex("pubkey", e.pubKey, PubKeyHexLen)
	if err != nil {
		return false, err
	}
	sig, err := decodeHex("sig", e.sig, SignatureHexLen)
	if err != nil {
		return false, err
	}
	return crypto.Verify(pub, id, sig)
}

// Verify reports whether the id matches the fields and the signature is
// valid for that id. A mismatch is (false, nil); a malformed id, pubkey or
// sig returns an error even when the id does not match. The event is never
// modified.
func (e *Event) Verify() (bool, error) {
	for _, f := range []struct {
		name, value string
		n           int
	}{
		{FieldID, e.id, IDHexLen},
		{FieldPubKey, e.pubKey, PubKeyHexLen},
		{FieldSig, e.sig, SignatureHexLen},
	} {
		if err := checkHex(f.name, f.value, f.n); err != nil {
			return false, err
		}
	}
	ok, err := e.CheckID()
	if err != nil || !ok {
		return false, err
	}
	return e.CheckSignature()
}

// Equal compares every field, including id and signature.
func (e *Event) Equal(other *Event) bool {
	if e == nil || other == nil {
		return e == other
	}
	return e.id == other.id &&
		e.pubKey == other.pubKey &&
		e.createdAt == other.createdAt &&
		e.kind == other.kind &&
		e.content == other.content &&
		e.sig == other.sig &&
		e.tags.Equal(other.tags)
}

// Clone returns a deep copy.
func (e *Event) Clone() *Event {
	c := *e
	c.tags = e.tags.Clone()
	return &c
}

// checkHex requires exactly n lowercase hex characters.
func checkHex(field, value string, n int) error {
	if value == "" {
		return newValidationError(field, ErrCodeRequired, "%s is required", field)
	}
	if len(value) != n {
		return newValidationError(field, ErrCodeInvalidLength, "expected %d hex characters, got %d", n, len(value))
	}
	if !canonicalize.IsLowerHex(value) {
		return newValidationError(field, ErrCodeInvalidHex, "%s must be lowercase hex", field)
	}
	return nil
}

func decodeHex(field, value string, n int) ([]byte, error) {
	if err := checkHex(field, value, n); err != nil {
		return nil, err
	}
	return hex.DecodeString(value)
}

func checkUTF8(field, value string) error {
	if !utf8.ValidString(value) {
		return newValidationError(field, ErrCodeInvalidUTF8, "%s is not valid UTF-8", field)
	}
	return nil
}
