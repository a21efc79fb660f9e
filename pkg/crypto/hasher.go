package crypto

import (
	"encoding/hex"

	sha256 "github.com/minio/sha256-simd"

	"github.com/Mindburn-Labs/nostrevent/pkg/canonicalize"
)

// HashSize is the size of an event id.
const HashSize = sha256.Size

// Hash returns the SHA-256 digest of data.
func Hash(data []byte) [HashSize]byte {
	return sha256.Sum256(data)
}

// HashHex returns the lowercase hex SHA-256 digest of data.
func HashHex(data []byte) string {
	sum := Hash(data)
	return hex.EncodeToString(sum[:])
}

// HashEvent canonicalizes the signed event fields and hashes the result,
// producing the event id.
func HashEvent[T ~[]string](pubKey string, createdAt int64, kind int, tags []T, content string) ([HashSize]byte, error) {
	b, err := canonicalize.Encode(pubKey, createdAt, kind, tags, content)
	if err != nil {
		return [HashSize]byte{}, err
	}
	return Hash(b), nil
}
