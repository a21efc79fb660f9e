package event

import (
	"bytes"
	"encoding/json"
	"strconv"
	"unicode/utf8"

	"github.com/Mindburn-Labs/nostrevent/pkg/canonicalize"
)

// Field names of the external representation.
const (
	FieldID        = "id"
	FieldPubKey    = "pubkey"
	FieldCreatedAt = "created_at"
	FieldKind      = "kind"
	FieldTags      = "tags"
	FieldContent   = "content"
	FieldSig       = "sig"
)

// Projection selects which fields a Representation carries.
type Projection int

const (
	// CanonicalFields omits id and sig: the fields covered by the id.
	CanonicalFields Projection = iota
	// AllFields carries every field.
	AllFields
)

func (p Projection) String() string {
	switch p {
	case CanonicalFields:
		return "canonical"
	case AllFields:
		return "all"
	default:
		return "unknown"
	}
}

// Field is one named value. Values are string, int64, int or [][]string.
type Field struct {
	Name  string
	Value any
}

// Representation is an ordered field list.
type Representation []Field

// ToRepresentation lists the selected fields in
// id, pubkey, created_at, kind, tags, content, sig order.
func (e *Event) ToRepresentation(p Projection) Representation {
	r := make(Representation, 0, 7)
	if p == AllFields {
		r = append(r, Field{FieldID, e.id})
	}
	r = append(r,
		Field{FieldPubKey, e.pubKey},
		Field{FieldCreatedAt, e.createdAt},
		Field{FieldKind, e.kind},
		Field{FieldTags, e.tags.rows()},
		Field{FieldContent, e.content},
	)
	if p == AllFields {
		r = append(r, Field{FieldSig, e.sig})
	}
	return r
}

// Get returns the value of the named field.
func (r Representation) Get(name string) (any, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Names lists field names in order.
func (r Representation) Names() []string {
	names := make([]string, len(r))
	for i, f := range r {
		names[i] = f.Name
	}
	return names
}

// MarshalJSON writes a JSON object with the fields in order. HTML
// characters are not escaped. Strings that are not valid UTF-8 are an
// *canonicalize.EncodingError, as in CanonicalBytes.
func (r Representation) MarshalJSON() ([]byte, error) {
	for _, f := range r {
		if err := checkFieldText(f.Name, f.Value); err != nil {
			return nil, err
		}
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSON(&buf, f.Name); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeJSON(&buf, f.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func checkFieldText(field string, v any) error {
	switch v := v.(type) {
	case string:
		if !utf8.ValidString(v) {
			return textError(field)
		}
	case [][]string:
		for i, row := range v {
			for j, s := range row {
				if !utf8.ValidString(s) {
					return textError(field + "[" + strconv.Itoa(i) + "][" + strconv.Itoa(j) + "]")
				}
			}
		}
	}
	return nil
}

func textError(field string) *canonicalize.EncodingError {
	return &canonicalize.EncodingError{
		Code:    canonicalize.ErrCodeInvalidUTF8,
		Message: field + " is not valid UTF-8",
		Field:   field,
	}
}

func writeJSON(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	// Encode terminates each value with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}
