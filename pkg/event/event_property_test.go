//go:build property
// +build property

// Package event_test contains property-based tests for event signing,
// id derivation and the external representation.
package event_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/Mindburn-Labs/nostrevent/pkg/crypto"
	"github.com/Mindburn-Labs/nostrevent/pkg/event"
)

func newSigner(t *testing.T) *crypto.SchnorrSigner {
	t.Helper()
	s, err := crypto.NewSchnorrSigner("property")
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// TestSignVerifyRoundTrip verifies that every signed event verifies.
// Property: Verify(Sign(e)) == true
func TestSignVerifyRoundTrip(t *testing.T) {
	signer := newSigner(t)
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("signed events verify", prop.ForAll(
		func(createdAt int64, kind int, key, value, content string) bool {
			e, err := event.NewBuilder().
				CreatedAt(createdAt).
				Kind(kind).
				AddTag(key, value).
				Content(content).
				BuildSigned(signer)
			if err != nil {
				return false
			}
			ok, err := e.Verify()
			return ok && err == nil
		},
		gen.Int64Range(0, 1<<40),
		gen.IntRange(0, 65535),
		gen.AlphaString(),
		gen.AnyString(),
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

// TestTextRoundTrip verifies the external representation is lossless.
// Property: Decode(ToText(e)) == e
func TestTextRoundTrip(t *testing.T) {
	signer := newSigner(t)
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("decode inverts ToText", prop.ForAll(
		func(tags [][]string, content string) bool {
			b := event.NewBuilder().Kind(1).Content(content)
			for _, row := range tags {
				b.AddTag(row...)
			}
			e, err := b.BuildSigned(signer)
			if err != nil {
				return false
			}
			text, err := e.ToText()
			if err != nil {
				return false
			}
			decoded, err := event.Decode(text)
			if err != nil {
				return false
			}
			ok, err := decoded.Verify()
			return decoded.Equal(e) && ok && err == nil
		},
		gen.SliceOf(gen.SliceOf(gen.AnyString())),
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

// TestIDSensitivity verifies that any content change alters the id.
// Property: content != content' => id(e) != id(e')
func TestIDSensitivity(t *testing.T) {
	signer := newSigner(t)
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("distinct content gives distinct ids", prop.ForAll(
		func(a, b string) bool {
			if a == b {
				return true
			}
			e1, err1 := event.NewBuilder().CreatedAt(1).Content(a).BuildSigned(signer)
			e2, err2 := event.NewBuilder().CreatedAt(1).Content(b).BuildSigned(signer)
			if err1 != nil || err2 != nil {
				return false
			}
			return e1.ID() != e2.ID()
		},
		gen.AnyString(),
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
