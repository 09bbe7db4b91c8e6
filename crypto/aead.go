package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// NonceSize is the size of the AEAD nonce in bytes.
const NonceSize = chacha20poly1305.NonceSize

// MaxMessageSize caps plaintext size (1MB) to prevent excessive memory usage.
const MaxMessageSize = 1024 * 1024

// ErrDecryptionFailed indicates an AEAD open that failed authentication.
var ErrDecryptionFailed = errors.New("decryption failed: message authentication failed")

// EncryptSymmetric encrypts a message under a 32-byte symmetric key using
// ChaCha20-Poly1305. A fresh random 12-byte nonce is drawn per call and
// prepended to the returned ciphertext, so the output is self-contained and
// two encryptions under the same key never share a nonce.
func EncryptSymmetric(message []byte, key [32]byte) ([]byte, error) {
	if len(message) > MaxMessageSize {
		return nil, errors.New("message too large")
	}

	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, message, nil), nil
}

// DecryptSymmetric opens a ciphertext produced by EncryptSymmetric. The
// first 12 bytes are the nonce, the remainder the sealed payload.
func DecryptSymmetric(sealed []byte, key [32]byte) ([]byte, error) {
	if len(sealed) < NonceSize+chacha20poly1305.Overhead {
		return nil, errors.New("ciphertext too short")
	}

	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	plaintext, err := aead.Open(nil, sealed[:NonceSize], sealed[NonceSize:], nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	return plaintext, nil
}
