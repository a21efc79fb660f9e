package crypto

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/nostrevent/pkg/canonicalize"
)

func TestHashHex_KnownDigests(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", HashHex(nil))
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", HashHex([]byte("abc")))
}

func TestHashEvent_GoldenID(t *testing.T) {
	id, err := HashEvent(
		"4d4b6cd1361032ca9bd2aeb9d900aa4d45d9ead80ac9423374c451a7254d0766",
		1700000000,
		1,
		[][]string{{"e", strings.Repeat("abcd", 16)}},
		"hello",
	)
	require.NoError(t, err)
	assert.Equal(t, "7630b7cfaf0021b70fad3f98675ec5dcddab534390919c0f139c526c50df3421", hex.EncodeToString(id[:]))
}

func TestHashEvent_PropagatesEncodingError(t *testing.T) {
	_, err := HashEvent("ABCD", 1, 1, [][]string(nil), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, canonicalize.ErrEncoding))
}
