package event

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Flipping any one of a sample of bits in an id-covered field must change
// the id. Only ASCII content bytes are mutated so the content stays valid
// UTF-8.
func TestComputeID_SampledBitFlips(t *testing.T) {
	signer := deterministicSigner(t, strings.Repeat("02", 32))
	base, err := NewBuilder().
		CreatedAt(1700000000).
		Kind(1).
		AddTag("e", strings.Repeat("abcd", 16)).
		Content("the quick brown fox jumps over the lazy dog").
		BuildSigned(signer)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 64; i++ {
		e := base.Clone()
		switch i % 3 {
		case 0:
			b := []byte(e.Content())
			pos := rng.Intn(len(b))
			b[pos] ^= 1 << uint(rng.Intn(7))
			e.SetContent(string(b))
		case 1:
			require.NoError(t, e.SetCreatedAt(e.CreatedAt()^(1<<uint(rng.Intn(31)))))
		case 2:
			require.NoError(t, e.SetKind(e.Kind()^(1<<uint(rng.Intn(16)))))
		}

		id, err := e.ComputeID()
		require.NoError(t, err)
		assert.NotEqual(t, base.ID(), id, "mutation %d", i)

		ok, err := e.Verify()
		require.NoError(t, err)
		assert.False(t, ok, "mutation %d", i)
	}
}
