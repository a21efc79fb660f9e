package crypto

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// KeyRing holds several signing keys for rotation. The active key is the
// lexicographically last key id.
type KeyRing struct {
	mu      sync.RWMutex
	signers map[string]*SchnorrSigner
}

// NewKeyRing creates a new empty KeyRing.
func NewKeyRing() *KeyRing {
	return &KeyRing{
		signers: make(map[string]*SchnorrSigner),
	}
}

// AddKey adds a signer to the keyring. Key ids must be unique and non-empty.
func (k *KeyRing) AddKey(s *SchnorrSigner) error {
	if s == nil || s.KeyID == "" {
		return errors.New("keyring: signer must have a key id")
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, exists := k.signers[s.KeyID]; exists {
		return fmt.Errorf("keyring: key %q already present", s.KeyID)
	}
	k.signers[s.KeyID] = s
	return nil
}

// RevokeKey removes a key and wipes its private scalar.
func (k *KeyRing) RevokeKey(keyID string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if s, ok := k.signers[keyID]; ok {
		s.Zero()
		delete(k.signers, keyID)
	}
}

// Active returns the signer currently used by Sign.
func (k *KeyRing) Active() (*SchnorrSigner, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.activeLocked()
}

func (k *KeyRing) activeLocked() (*SchnorrSigner, error) {
	if len(k.signers) == 0 {
		return nil, errors.New("keyring: no keys available")
	}
	keys := make([]string, 0, len(k.signers))
	for id := range k.signers {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	return k.signers[keys[len(keys)-1]], nil
}

// SignerFor returns the signer registered under keyID.
func (k *KeyRing) SignerFor(keyID string) (*SchnorrSigner, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	s, ok := k.signers[keyID]
	return s, ok
}

// Sign signs with the active key.
func (k *KeyRing) Sign(message []byte) (string, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	s, err := k.activeLocked()
	if err != nil {
		return "", err
	}
	return s.Sign(message)
}

// PublicKey returns the active key's public key, or "" for an empty ring.
func (k *KeyRing) PublicKey() string {
	s, err := k.Active()
	if err != nil {
		return ""
	}
	return s.PublicKey()
}

func (k *KeyRing) PublicKeyBytes() []byte {
	s, err := k.Active()
	if err != nil {
		return nil
	}
	return s.PublicKeyBytes()
}

// PublicKeys maps key id to hex public key for every key in the ring.
func (k *KeyRing) PublicKeys() map[string]string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make(map[string]string, len(k.signers))
	for id, s := range k.signers {
		out[id] = s.PublicKey()
	}
	return out
}

// VerifyKey verifies signature for a specific key.
func (k *KeyRing) VerifyKey(keyID string, message []byte, signature []byte) (bool, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	signer, exists := k.signers[keyID]
	if !exists {
		return false, fmt.Errorf("unknown or revoked key: %s", keyID)
	}
	return Verify(signer.pubKey, message, signature)
}

// Zero wipes and drops every key.
func (k *KeyRing) Zero() {
	k.mu.Lock()
	defer k.mu.Unlock()
	for id, s := range k.signers {
		s.Zero()
		delete(k.signers, id)
	}
}
