package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Sizes of BIP-340 inputs and outputs.
const (
	PrivateKeySize = 32
	PublicKeySize  = 32
	MessageSize    = 32
	SignatureSize  = 64
)

// Signer interface for event signatures.
type Signer interface {
	Sign(message []byte) (string, error)
	PublicKey() string
	PublicKeyBytes() []byte
}

// Option configures signing.
type Option func(*signConfig)

type signConfig struct {
	auxRand io.Reader
}

// WithAuxRand sets the source of the 32 bytes of BIP-340 auxiliary
// randomness mixed into every nonce. Defaults to crypto/rand.
func WithAuxRand(r io.Reader) Option {
	return func(c *signConfig) {
		c.auxRand = r
	}
}

func newSignConfig(opts []Option) signConfig {
	c := signConfig{auxRand: rand.Reader}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// SchnorrSigner signs 32-byte messages with a secp256k1 key using BIP-340.
type SchnorrSigner struct {
	privKey *secp256k1.PrivateKey
	pubKey  []byte
	KeyID   string
	config  signConfig
}

// NewSchnorrSigner generates a fresh key.
func NewSchnorrSigner(keyID string, opts ...Option) (*SchnorrSigner, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, &FailureError{Op: "key generation", Err: err}
	}
	return newSchnorrSigner(priv, keyID, opts), nil
}

// NewSchnorrSignerFromKey wraps raw private key bytes. The caller keeps
// ownership of privKey and may wipe it after this returns.
func NewSchnorrSignerFromKey(privKey []byte, keyID string, opts ...Option) (*SchnorrSigner, error) {
	priv, err := parsePrivateKey(privKey)
	if err != nil {
		return nil, err
	}
	return newSchnorrSigner(priv, keyID, opts), nil
}

// NewSchnorrSignerFromHex wraps a hex-encoded private key.
func NewSchnorrSignerFromHex(privKeyHex, keyID string, opts ...Option) (*SchnorrSigner, error) {
	raw, err := hex.DecodeString(privKeyHex)
	if err != nil {
		return nil, &InvalidKeyError{Reason: "private key is not hex", Err: err}
	}
	defer wipe(raw)
	return NewSchnorrSignerFromKey(raw, keyID, opts...)
}

func newSchnorrSigner(priv *secp256k1.PrivateKey, keyID string, opts []Option) *SchnorrSigner {
	return &SchnorrSigner{
		privKey: priv,
		pubKey:  schnorr.SerializePubKey(priv.PubKey()),
		KeyID:   keyID,
		config:  newSignConfig(opts),
	}
}

// Sign returns the hex signature of a 32-byte message.
func (s *SchnorrSigner) Sign(message []byte) (string, error) {
	sig, err := s.SignBytes(message)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sig), nil
}

// SignBytes returns the raw 64-byte signature of a 32-byte message.
func (s *SchnorrSigner) SignBytes(message []byte) ([]byte, error) {
	if s.privKey == nil {
		return nil, &InvalidKeyError{Reason: "signer key has been wiped"}
	}
	return sign(s.privKey, message, s.config.auxRand)
}

// PublicKey returns the x-only public key as lowercase hex.
func (s *SchnorrSigner) PublicKey() string {
	return hex.EncodeToString(s.pubKey)
}

func (s *SchnorrSigner) PublicKeyBytes() []byte {
	out := make([]byte, len(s.pubKey))
	copy(out, s.pubKey)
	return out
}

// Verify checks a signature made by this signer's key.
func (s *SchnorrSigner) Verify(message, signature []byte) bool {
	ok, err := Verify(s.pubKey, message, signature)
	return ok && err == nil
}

// Zero wipes the private scalar. Further calls to Sign fail with an
// InvalidKeyError.
func (s *SchnorrSigner) Zero() {
	if s.privKey != nil {
		s.privKey.Zero()
		s.privKey = nil
	}
}

// Sign produces a BIP-340 signature of a 32-byte message with a raw private
// key.
func Sign(privateKey, message []byte, opts ...Option) ([]byte, error) {
	priv, err := parsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	defer priv.Zero()
	return sign(priv, message, newSignConfig(opts).auxRand)
}

// GeneratePrivateKey returns 32 bytes of a fresh, valid private key.
func GeneratePrivateKey() ([]byte, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, &FailureError{Op: "key generation", Err: err}
	}
	defer priv.Zero()
	return priv.Serialize(), nil
}

// PublicKeyFromPrivate derives the 32-byte x-only public key.
func PublicKeyFromPrivate(privateKey []byte) ([]byte, error) {
	priv, err := parsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	defer priv.Zero()
	return schnorr.SerializePubKey(priv.PubKey()), nil
}

func sign(priv *secp256k1.PrivateKey, message []byte, auxRand io.Reader) ([]byte, error) {
	if err := checkLen("message", message, MessageSize); err != nil {
		return nil, err
	}

	var aux [32]byte
	if _, err := io.ReadFull(auxRand, aux[:]); err != nil {
		return nil, &FailureError{Op: "sign", Err: fmt.Errorf("read aux randomness: %w", err)}
	}

	sig, err := schnorr.Sign(priv, message, schnorr.CustomNonce(aux))
	if err != nil {
		return nil, &FailureError{Op: "sign", Err: err}
	}
	return sig.Serialize(), nil
}

// parsePrivateKey rejects zero and out-of-range scalars instead of reducing
// them mod n.
func parsePrivateKey(b []byte) (*secp256k1.PrivateKey, error) {
	if len(b) != PrivateKeySize {
		return nil, &InvalidKeyError{Reason: fmt.Sprintf("expected %d bytes, got %d", PrivateKeySize, len(b))}
	}

	var scalar secp256k1.ModNScalar
	defer scalar.Zero()
	if overflow := scalar.SetByteSlice(b); overflow {
		return nil, &InvalidKeyError{Reason: "scalar is not below the curve order"}
	}
	if scalar.IsZero() {
		return nil, &InvalidKeyError{Reason: "scalar is zero"}
	}
	return secp256k1.NewPrivateKey(&scalar), nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
