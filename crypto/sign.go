package crypto

import (
	"crypto/ed25519"
	"errors"
)

// SignatureSize is the size of an Ed25519 signature in bytes.
const SignatureSize = ed25519.SignatureSize

// Signature represents an Ed25519 signature.
type Signature [SignatureSize]byte

// Sign creates an Ed25519 signature for a message using the keypair's
// signing key.
func Sign(message []byte, keyPair *KeyPair) (Signature, error) {
	if keyPair == nil {
		return Signature{}, errors.New("nil keypair")
	}
	if len(message) == 0 {
		return Signature{}, errors.New("empty message")
	}

	// Re-expand the 32-byte seed into the 64-byte form ed25519 expects.
	privateKey := ed25519.NewKeyFromSeed(keyPair.Private[:])

	var signature Signature
	copy(signature[:], ed25519.Sign(privateKey, message))
	return signature, nil
}

// Verify checks if a signature is valid for a message and public key.
func Verify(message []byte, signature Signature, publicKey [32]byte) bool {
	if len(message) == 0 {
		return false
	}
	return ed25519.Verify(publicKey[:], message, signature[:])
}
