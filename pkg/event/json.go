package event

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Mindburn-Labs/nostrevent/pkg/canonicalize"
)

const schemaURL = "https://nostrevent.schemas.local/event.schema.json"

//go:embed schema/event.schema.json
var schemaJSON string

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func eventSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("event schema load failed: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile(schemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("event schema compile failed: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// ToText returns the external JSON object with fields in
// id, pubkey, created_at, kind, tags, content, sig order. It is not the
// canonical serialization and must not be hashed.
func (e *Event) ToText() ([]byte, error) {
	return e.ToRepresentation(AllFields).MarshalJSON()
}

// MarshalJSON implements json.Marshaler. json.Marshal re-escapes HTML
// characters in the result; call ToText for the unescaped form.
func (e Event) MarshalJSON() ([]byte, error) {
	return e.ToText()
}

// UnmarshalJSON implements json.Unmarshaler with the same rules as Decode.
func (e *Event) UnmarshalJSON(data []byte) error {
	d, err := Decode(data)
	if err != nil {
		return err
	}
	*e = *d
	return nil
}

// Decode parses an external JSON object. Structural problems (malformed
// JSON, a missing field, a wrongly typed value, a repeated key) are
// *canonicalize.EncodingError; negative numbers are *ValidationError. Fields
// are read only from their exact lowercase names. Input that is not valid
// UTF-8, or that escapes an unpaired UTF-16 surrogate, is rejected rather
// than repaired. id, pubkey and sig are stored as received so that a
// malformed event can be inspected and then rejected by Verify.
func Decode(data []byte) (*Event, error) {
	schema, err := eventSchema()
	if err != nil {
		return nil, err
	}
	if err := checkInputText(data); err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, malformed("", "event is not valid JSON", err)
	}
	if dec.More() {
		return nil, malformed("", "trailing data after event object", nil)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, schemaError(err)
	}
	if err := checkDuplicateKeys(data); err != nil {
		return nil, err
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, malformed("", "event is not a JSON object", nil)
	}
	str := func(key string) string {
		s, _ := obj[key].(string)
		return s
	}

	createdAt, err := number(obj, FieldCreatedAt)
	if err != nil {
		return nil, malformed(FieldCreatedAt, "created_at is not a 64-bit integer", err)
	}
	if createdAt < 0 {
		return nil, newValidationError(FieldCreatedAt, ErrCodeNegative, "created_at must not be negative, got %d", createdAt)
	}
	kind, err := number(obj, FieldKind)
	if err != nil {
		return nil, malformed(FieldKind, "kind is not an integer", err)
	}
	if kind < 0 {
		return nil, newValidationError(FieldKind, ErrCodeNegative, "kind must not be negative, got %d", kind)
	}
	if kind > math.MaxInt {
		return nil, newValidationError(FieldKind, ErrCodeOutOfRange, "kind %d does not fit in int", kind)
	}

	rows, _ := obj[FieldTags].([]any)
	e := &Event{
		id:        str(FieldID),
		pubKey:    str(FieldPubKey),
		createdAt: createdAt,
		kind:      int(kind),
		content:   str(FieldContent),
		sig:       str(FieldSig),
		tags:      make(Tags, len(rows)),
	}
	for i, row := range rows {
		elems, _ := row.([]any)
		tag := make(Tag, len(elems))
		for j, v := range elems {
			tag[j], _ = v.(string)
		}
		e.tags[i] = tag
	}
	return e, nil
}

func number(obj map[string]any, key string) (int64, error) {
	n, ok := obj[key].(json.Number)
	if !ok {
		return 0, fmt.Errorf("%s is %T", key, obj[key])
	}
	return n.Int64()
}

// checkDuplicateKeys rejects an object naming the same member twice, which
// decoders resolve differently.
func checkDuplicateKeys(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return malformed("", "event is not valid JSON", err)
	}
	seen := make(map[string]struct{})
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return malformed("", "event is not valid JSON", err)
		}
		key, _ := tok.(string)
		if _, dup := seen[key]; dup {
			return malformed(key, "duplicate key "+strconv.Quote(key), nil)
		}
		seen[key] = struct{}{}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return malformed(key, "event is not valid JSON", err)
		}
	}
	return nil
}

// checkInputText rejects input that encoding/json would silently repair with
// U+FFFD: raw bytes that are not UTF-8 and \u escapes of unpaired surrogates.
func checkInputText(data []byte) error {
	if !utf8.Valid(data) {
		return invalidText("event is not valid UTF-8")
	}
	for i := 0; i < len(data)-1; i++ {
		if data[i] != '\\' {
			continue
		}
		if data[i+1] != 'u' {
			i++
			continue
		}
		r, ok := hexRune(data[i+2:])
		switch {
		case !ok:
			i++
		case r >= 0xD800 && r < 0xDC00:
			if len(data) < i+12 || data[i+6] != '\\' || data[i+7] != 'u' {
				return invalidText("unpaired surrogate escape")
			}
			lo, ok := hexRune(data[i+8:])
			if !ok || lo < 0xDC00 || lo > 0xDFFF {
				return invalidText("unpaired surrogate escape")
			}
			i += 11
		case r >= 0xDC00 && r <= 0xDFFF:
			return invalidText("unpaired surrogate escape")
		default:
			i += 5
		}
	}
	return nil
}

func hexRune(b []byte) (rune, bool) {
	if len(b) < 4 {
		return 0, false
	}
	var r rune
	for _, c := range b[:4] {
		switch {
		case c >= '0' && c <= '9':
			r = r<<4 | rune(c-'0')
		case c >= 'a' && c <= 'f':
			r = r<<4 | rune(c-'a'+10)
		case c >= 'A' && c <= 'F':
			r = r<<4 | rune(c-'A'+10)
		default:
			return 0, false
		}
	}
	return r, true
}

func invalidText(msg string) *canonicalize.EncodingError {
	return &canonicalize.EncodingError{
		Code:    canonicalize.ErrCodeInvalidUTF8,
		Message: msg,
	}
}

func malformed(field, msg string, cause error) *canonicalize.EncodingError {
	return &canonicalize.EncodingError{
		Code:    canonicalize.ErrCodeMalformedJSON,
		Message: msg,
		Field:   field,
		Err:     cause,
	}
}

// schemaError maps the deepest schema failure to an EncodingError naming
// the offending field, e.g. tags[0][1].
func schemaError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return malformed("", "schema validation failed", err)
	}
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}

	code := canonicalize.ErrCodeMalformedJSON
	parts := strings.Split(strings.TrimPrefix(leaf.InstanceLocation, "/"), "/")
	if parts[0] == FieldTags {
		code = canonicalize.ErrCodeMalformedTag
	}
	field := parts[0]
	for _, p := range parts[1:] {
		field += "[" + p + "]"
	}
	return &canonicalize.EncodingError{
		Code:    code,
		Message: leaf.Message,
		Field:   field,
		Err:     err,
	}
}
