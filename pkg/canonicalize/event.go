// Package canonicalize produces the canonical event serialization whose
// SHA-256 digest is the event id.
//
// The form is the JSON array
//
//	[0,<pubkey>,<created_at>,<kind>,<tags>,<content>]
//
// written without whitespace. Strings use the minimal escape set: quote,
// backslash, the short escapes \b \t \n \f \r, and \u00xx for the remaining
// bytes below 0x20. Every other character, including '<', '>', '&', DEL and
// U+2028/U+2029, is emitted verbatim. encoding/json does not produce this
// form, so the writer below is explicit.
package canonicalize

import (
	"strconv"
	"unicode/utf8"
)

// PubKeyHexLen is the length of a lowercase hex x-only public key.
const PubKeyHexLen = 64

const hexDigits = "0123456789abcdef"

// Encode returns the canonical serialization of the signed event fields.
// Equal inputs always produce byte-identical output.
func Encode[T ~[]string](pubKey string, createdAt int64, kind int, tags []T, content string) ([]byte, error) {
	return AppendEncode(make([]byte, 0, estimateSize(pubKey, tags, content)), pubKey, createdAt, kind, tags, content)
}

// AppendEncode appends the canonical serialization to dst. On error dst is
// returned unchanged.
func AppendEncode[T ~[]string](dst []byte, pubKey string, createdAt int64, kind int, tags []T, content string) ([]byte, error) {
	if err := checkPubKey(pubKey); err != nil {
		return dst, err
	}
	if createdAt < 0 {
		return dst, newEncodingError(ErrCodeNegativeNumber, "created_at", "created_at must not be negative, got %d", createdAt)
	}
	if kind < 0 {
		return dst, newEncodingError(ErrCodeNegativeNumber, "kind", "kind must not be negative, got %d", kind)
	}
	for i, tag := range tags {
		for j, s := range tag {
			if !utf8.ValidString(s) {
				return dst, newEncodingError(ErrCodeInvalidUTF8, "tags["+strconv.Itoa(i)+"]["+strconv.Itoa(j)+"]", "tag element is not valid UTF-8")
			}
		}
	}
	if !utf8.ValidString(content) {
		return dst, newEncodingError(ErrCodeInvalidUTF8, "content", "content is not valid UTF-8")
	}

	out := append(dst, `[0,"`...)
	out = append(out, pubKey...)
	out = append(out, `",`...)
	out = strconv.AppendInt(out, createdAt, 10)
	out = append(out, ',')
	out = strconv.AppendInt(out, int64(kind), 10)
	out = append(out, ',', '[')
	for i, tag := range tags {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, '[')
		for j, s := range tag {
			if j > 0 {
				out = append(out, ',')
			}
			out = AppendString(out, s)
		}
		out = append(out, ']')
	}
	out = append(out, ']', ',')
	out = AppendString(out, content)
	out = append(out, ']')
	return out, nil
}

// AppendString appends s as a quoted JSON string using the canonical escape
// set. s is assumed to be valid UTF-8; bytes of multi-byte sequences are
// all >= 0x80 and pass through untouched.
func AppendString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		var esc byte
		switch c {
		case '"':
			esc = '"'
		case '\\':
			esc = '\\'
		case '\b':
			esc = 'b'
		case '\t':
			esc = 't'
		case '\n':
			esc = 'n'
		case '\f':
			esc = 'f'
		case '\r':
			esc = 'r'
		default:
			if c >= 0x20 {
				continue
			}
		}
		dst = append(dst, s[start:i]...)
		if esc != 0 {
			dst = append(dst, '\\', esc)
		} else {
			dst = append(dst, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
		}
		start = i + 1
	}
	dst = append(dst, s[start:]...)
	return append(dst, '"')
}

// IsLowerHex reports whether s is non-empty and consists only of 0-9a-f.
func IsLowerHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func checkPubKey(pubKey string) error {
	if len(pubKey) != PubKeyHexLen {
		return newEncodingError(ErrCodeInvalidPubKey, "pubkey", "expected %d hex characters, got %d", PubKeyHexLen, len(pubKey))
	}
	if !IsLowerHex(pubKey) {
		return newEncodingError(ErrCodeInvalidPubKey, "pubkey", "public key must be lowercase hex")
	}
	return nil
}

func estimateSize[T ~[]string](pubKey string, tags []T, content string) int {
	n := len(pubKey) + len(content) + 48
	for _, tag := range tags {
		n += 3
		for _, s := range tag {
			n += len(s) + 3
		}
	}
	return n
}
