package crypto

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// Verifier defines the interface for signature verification.
type Verifier interface {
	Verify(message []byte, signature []byte) bool
}

// Verify checks a BIP-340 signature. An invalid signature is (false, nil);
// errors are reserved for wrong input lengths and public keys that are not
// the x-coordinate of a curve point.
func Verify(publicKey, message, signature []byte) (bool, error) {
	if err := checkLen("public key", publicKey, PublicKeySize); err != nil {
		return false, err
	}
	if err := checkLen("message", message, MessageSize); err != nil {
		return false, err
	}
	if err := checkLen("signature", signature, SignatureSize); err != nil {
		return false, err
	}

	pub, err := ParsePublicKey(publicKey)
	if err != nil {
		return false, err
	}
	return verifyParsed(pub, message, signature), nil
}

// VerifyHex is Verify over hex-encoded inputs.
func VerifyHex(pubKeyHex, messageHex, sigHex string) (bool, error) {
	pub, err := hex.DecodeString(pubKeyHex)
	if err != nil {
		return false, &InvalidKeyError{Reason: "public key is not hex", Err: err}
	}
	msg, err := hex.DecodeString(messageHex)
	if err != nil {
		return false, fmt.Errorf("invalid message hex: %w", err)
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return false, fmt.Errorf("invalid signature hex: %w", err)
	}
	return Verify(pub, msg, sig)
}

// ParsePublicKey decodes a 32-byte x-only public key.
func ParsePublicKey(publicKey []byte) (*btcec.PublicKey, error) {
	if err := checkLen("public key", publicKey, PublicKeySize); err != nil {
		return nil, err
	}
	pub, err := schnorr.ParsePubKey(publicKey)
	if err != nil {
		return nil, &InvalidKeyError{Reason: "public key is not a valid curve point", Err: err}
	}
	return pub, nil
}

func verifyParsed(pub *btcec.PublicKey, message, signature []byte) bool {
	// Out-of-range r or s is just a bad signature.
	sig, err := schnorr.ParseSignature(signature)
	if err != nil {
		return false
	}
	return sig.Verify(message, pub)
}

// SchnorrVerifier implements Verifier for one public key.
type SchnorrVerifier struct {
	publicKey *btcec.PublicKey
}

// NewSchnorrVerifier creates a new verifier.
func NewSchnorrVerifier(pubKeyBytes []byte) (*SchnorrVerifier, error) {
	pub, err := ParsePublicKey(pubKeyBytes)
	if err != nil {
		return nil, err
	}
	return &SchnorrVerifier{publicKey: pub}, nil
}

func (v *SchnorrVerifier) Verify(message []byte, signature []byte) bool {
	if len(message) != MessageSize || len(signature) != SignatureSize {
		return false
	}
	return verifyParsed(v.publicKey, message, signature)
}
