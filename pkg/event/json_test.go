package event

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/nostrevent/pkg/canonicalize"
)

const goldenText = `{"id":"7630b7cfaf0021b70fad3f98675ec5dcddab534390919c0f139c526c50df3421",` +
	`"pubkey":"4d4b6cd1361032ca9bd2aeb9d900aa4d45d9ead80ac9423374c451a7254d0766",` +
	`"created_at":1700000000,"kind":1,` +
	`"tags":[["e","abcdabcdabcdabcdabcdabcdabcdabcdabcdabcdabcdabcdabcdabcdabcdabcd"]],` +
	`"content":"hello",` +
	`"sig":"01b9cbbe264e06b6ad9072f5823619347953308f4ac4399b5a6a7fa3c199506e51446c97f2fb19a88f34ce458353a1f5448f46682d7b84d172da4fa455eda92b"}`

func TestToText_Golden(t *testing.T) {
	signer := deterministicSigner(t, strings.Repeat("02", 32))
	e, err := NewBuilder().
		CreatedAt(1700000000).
		Kind(1).
		AddTag("e", strings.Repeat("abcd", 16)).
		Content("hello").
		BuildSigned(signer)
	require.NoError(t, err)

	text, err := e.ToText()
	require.NoError(t, err)
	assert.Equal(t, goldenText, string(text))

	viaMarshaler, err := e.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, goldenText, string(viaMarshaler))
}

func TestToText_NoHTMLEscaping(t *testing.T) {
	e := New()
	e.SetContent("<a href=\"x\">&</a>")
	text, err := e.ToText()
	require.NoError(t, err)
	assert.Contains(t, string(text), `"content":"<a href=\"x\">&</a>"`)
	assert.Contains(t, string(text), `"tags":[]`)
}

func TestDecode_RoundTrip(t *testing.T) {
	signer := deterministicSigner(t, strings.Repeat("02", 32))
	events := []*Event{}

	e1, err := NewBuilder().CreatedAt(0).Kind(0).Content("").BuildSigned(signer)
	require.NoError(t, err)
	events = append(events, e1)

	e2, err := NewBuilder().
		CreatedAt(1700000000).
		Kind(30023).
		Tags(Tags{{}, {"d", ""}, {"p", "x", "wss://relay", "petname"}}).
		Content("multi\nline \x00 \u2028 <&> 🚀").
		BuildSigned(signer)
	require.NoError(t, err)
	events = append(events, e2)

	unsigned := New()
	unsigned.SetContent("draft")
	events = append(events, unsigned)

	for _, e := range events {
		text, err := e.ToText()
		require.NoError(t, err)

		decoded, err := Decode(text)
		require.NoError(t, err, string(text))
		assert.True(t, e.Equal(decoded), string(text))

		if e.Signature() != "" {
			ok, err := decoded.Verify()
			require.NoError(t, err)
			assert.True(t, ok)
		}
	}
}

func TestUnmarshalJSON(t *testing.T) {
	var e Event
	require.NoError(t, json.Unmarshal([]byte(goldenText), &e))
	assert.Equal(t, "hello", e.Content())
	assert.Equal(t, 1, e.Kind())
	assert.Equal(t, Tags{{"e", strings.Repeat("abcd", 16)}}, e.Tags())

	ok, err := e.Verify()
	require.NoError(t, err)
	assert.True(t, ok)

	var list []*Event
	require.NoError(t, json.Unmarshal([]byte("["+goldenText+","+goldenText+"]"), &list))
	require.Len(t, list, 2)
	assert.True(t, list[0].Equal(list[1]))

	err = json.Unmarshal([]byte(`{"kind":1}`), &e)
	assert.True(t, errors.Is(err, canonicalize.ErrEncoding))
}

func TestDecode_IgnoresUnknownFields(t *testing.T) {
	text := strings.Replace(goldenText, `"content":"hello",`, `"content":"hello","relay":"wss://x",`, 1)
	e, err := Decode([]byte(text))
	require.NoError(t, err)
	ok, err := e.Verify()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDecode_ReadsExactFieldNames(t *testing.T) {
	text := strings.TrimSuffix(goldenText, "}") + `,"KIND":7,"Content":"other","PubKey":"` + strings.Repeat("ab", 32) + `"}`
	e, err := Decode([]byte(text))
	require.NoError(t, err)
	assert.Equal(t, 1, e.Kind())
	assert.Equal(t, "hello", e.Content())
	assert.Equal(t, "4d4b6cd1361032ca9bd2aeb9d900aa4d45d9ead80ac9423374c451a7254d0766", e.PublicKey())

	ok, err := e.Verify()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDecode_RejectsDuplicateKeys(t *testing.T) {
	text := strings.TrimSuffix(goldenText, "}") + `,"kind":7}`
	_, err := Decode([]byte(text))
	var ee *canonicalize.EncodingError
	require.True(t, errors.As(err, &ee), "%v", err)
	assert.Equal(t, canonicalize.ErrCodeMalformedJSON, ee.Code)
	assert.Equal(t, "kind", ee.Field)
}

func TestDecode_InvalidText(t *testing.T) {
	const head = `{"pubkey":"4d4b6cd1361032ca9bd2aeb9d900aa4d45d9ead80ac9423374c451a7254d0766","created_at":1,"kind":1,`

	invalid := map[string]string{
		"raw byte in content": head + `"tags":[],"content":"a` + "\xff" + `b"}`,
		"raw byte in tag":     head + `"tags":[["t","` + "\xc3" + `"]],"content":""}`,
		"lone high surrogate": head + `"tags":[],"content":"a\ud800b"}`,
		"high then non-low":   head + `"tags":[],"content":"\ud800A"}`,
		"lone low surrogate":  head + `"tags":[["t","\uDC00"]],"content":""}`,
		"trailing high":       head + `"tags":[],"content":"\ud83d"}`,
	}
	for name, input := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(input))
			require.Error(t, err)
			assert.ErrorIs(t, err, canonicalize.ErrEncoding)
			var ee *canonicalize.EncodingError
			require.True(t, errors.As(err, &ee))
			assert.Equal(t, canonicalize.ErrCodeInvalidUTF8, ee.Code)
		})
	}

	valid := map[string]string{
		`\ud83d\ude80`: "\U0001F680",
		`\\ud800`:      `\ud800`,
		`\u00e9\ufffd`: "\u00e9\ufffd",
		`tab\there`:    "tab\there",
	}
	for escaped, want := range valid {
		e, err := Decode([]byte(head + `"tags":[],"content":"` + escaped + `"}`))
		require.NoError(t, err, escaped)
		assert.Equal(t, want, e.Content())
	}
}

func TestToText_RejectsInvalidUTF8(t *testing.T) {
	e := New()
	e.SetContent("a\xffb")
	_, err := e.ToText()
	var ee *canonicalize.EncodingError
	require.True(t, errors.As(err, &ee), "%v", err)
	assert.Equal(t, canonicalize.ErrCodeInvalidUTF8, ee.Code)
	assert.Equal(t, FieldContent, ee.Field)

	e = New()
	e.SetTags(Tags{{"t", "ok"}, {"t", "\xc3"}})
	_, err = e.ToRepresentation(CanonicalFields).MarshalJSON()
	require.True(t, errors.As(err, &ee), "%v", err)
	assert.Equal(t, "tags[1][1]", ee.Field)
}

func TestDecode_StructuralErrors(t *testing.T) {
	const pub = `"pubkey":"4d4b6cd1361032ca9bd2aeb9d900aa4d45d9ead80ac9423374c451a7254d0766"`

	tests := []struct {
		name  string
		input string
		code  string
		field string
	}{
		{"not json", `{"pubkey":`, canonicalize.ErrCodeMalformedJSON, ""},
		{"array", `[0,"x",1,1,[],""]`, canonicalize.ErrCodeMalformedJSON, ""},
		{"missing content", `{` + pub + `,"created_at":1,"kind":1,"tags":[]}`, canonicalize.ErrCodeMalformedJSON, ""},
		{"non-string tag element", `{` + pub + `,"created_at":1,"kind":1,"tags":[["e",1]],"content":""}`, canonicalize.ErrCodeMalformedTag, "tags[0][1]"},
		{"tag row not an array", `{` + pub + `,"created_at":1,"kind":1,"tags":["e"],"content":""}`, canonicalize.ErrCodeMalformedTag, "tags[0]"},
		{"null tags", `{` + pub + `,"created_at":1,"kind":1,"tags":null,"content":""}`, canonicalize.ErrCodeMalformedTag, "tags"},
		{"string created_at", `{` + pub + `,"created_at":"1","kind":1,"tags":[],"content":""}`, canonicalize.ErrCodeMalformedJSON, "created_at"},
		{"fractional kind", `{` + pub + `,"created_at":1,"kind":1.5,"tags":[],"content":""}`, canonicalize.ErrCodeMalformedJSON, "kind"},
		{"numeric content", `{` + pub + `,"created_at":1,"kind":1,"tags":[],"content":7}`, canonicalize.ErrCodeMalformedJSON, "content"},
		{"created_at overflow", `{` + pub + `,"created_at":99999999999999999999,"kind":1,"tags":[],"content":""}`, canonicalize.ErrCodeMalformedJSON, "created_at"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, canonicalize.ErrEncoding), "%v", err)
			assert.False(t, errors.Is(err, ErrValidation))

			var ee *canonicalize.EncodingError
			require.True(t, errors.As(err, &ee))
			assert.Equal(t, tt.code, ee.Code)
			assert.Equal(t, tt.field, ee.Field)
		})
	}
}

func TestDecode_DomainErrors(t *testing.T) {
	const pub = `"pubkey":"4d4b6cd1361032ca9bd2aeb9d900aa4d45d9ead80ac9423374c451a7254d0766"`

	_, err := Decode([]byte(`{` + pub + `,"created_at":-1,"kind":1,"tags":[],"content":""}`))
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "created_at", ve.Field)
	assert.Equal(t, ErrCodeNegative, ve.Code)

	_, err = Decode([]byte(`{` + pub + `,"created_at":1,"kind":-7,"tags":[],"content":""}`))
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "kind", ve.Field)

	e, err := Decode([]byte(`{` + pub + `,"created_at":0,"kind":0,"tags":[],"content":""}`))
	require.NoError(t, err)
	assert.Equal(t, int64(0), e.CreatedAt())
}

func TestRepresentation(t *testing.T) {
	e, err := NewBuilder().
		PublicKey("4d4b6cd1361032ca9bd2aeb9d900aa4d45d9ead80ac9423374c451a7254d0766").
		CreatedAt(42).
		Kind(7).
		AddTag("t", "x").
		Content("c").
		Build()
	require.NoError(t, err)

	all := e.ToRepresentation(AllFields)
	assert.Equal(t, []string{"id", "pubkey", "created_at", "kind", "tags", "content", "sig"}, all.Names())

	canonical := e.ToRepresentation(CanonicalFields)
	assert.Equal(t, []string{"pubkey", "created_at", "kind", "tags", "content"}, canonical.Names())
	_, ok := canonical.Get(FieldID)
	assert.False(t, ok)

	v, ok := canonical.Get(FieldCreatedAt)
	require.True(t, ok)
	assert.Equal(t, int64(42), v)
	v, _ = canonical.Get(FieldTags)
	assert.Equal(t, [][]string{{"t", "x"}}, v)

	// The representation does not alias the event's tags.
	v.([][]string)[0][1] = "mutated"
	assert.Equal(t, "x", e.Tags()[0][1])

	text, err := canonical.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"pubkey":"4d4b6cd1361032ca9bd2aeb9d900aa4d45d9ead80ac9423374c451a7254d0766","created_at":42,"kind":7,"tags":[["t","x"]],"content":"c"}`, string(text))

	assert.Equal(t, "canonical", CanonicalFields.String())
	assert.Equal(t, "all", AllFields.String())
}
