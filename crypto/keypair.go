package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"runtime"
)

// PublicKeySize is the size of an Ed25519 public key in bytes.
const PublicKeySize = 32

// SecretKeySize is the size of an Ed25519 seed in bytes.
const SecretKeySize = 32

var (
	// ErrInvalidKeyLength indicates a key of the wrong byte length.
	ErrInvalidKeyLength = errors.New("invalid key length")
	// ErrInvalidPublicKey indicates a public key string that does not decode
	// to a 32-byte key.
	ErrInvalidPublicKey = errors.New("invalid public key encoding")
)

// KeyPair represents an Ed25519 identity keypair. Private holds the 32-byte
// seed; the full 64-byte signing key is re-expanded on demand.
type KeyPair struct {
	Public  [32]byte
	Private [32]byte
}

// GenerateKeyPair creates a new random identity keypair.
func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate keypair: %w", err)
	}

	kp := &KeyPair{}
	copy(kp.Public[:], pub)
	copy(kp.Private[:], priv.Seed())
	return kp, nil
}

// FromSecretKey reconstructs a keypair from an existing 32-byte seed.
func FromSecretKey(secretKey [32]byte) (*KeyPair, error) {
	if isZeroKey(secretKey) {
		return nil, errors.New("invalid secret key: all zeros")
	}

	priv := ed25519.NewKeyFromSeed(secretKey[:])

	kp := &KeyPair{Private: secretKey}
	copy(kp.Public[:], priv.Public().(ed25519.PublicKey))
	return kp, nil
}

// PublicKeyString renders a public key as the lower-case hex string used as
// the account's network address.
func PublicKeyString(publicKey [32]byte) string {
	return hex.EncodeToString(publicKey[:])
}

// ParsePublicKey decodes the hex string form of a public key.
func ParsePublicKey(s string) ([32]byte, error) {
	var key [32]byte

	raw, err := hex.DecodeString(s)
	if err != nil {
		return key, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	if len(raw) != PublicKeySize {
		return key, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKeyLength, len(raw), PublicKeySize)
	}

	copy(key[:], raw)
	return key, nil
}

// isZeroKey checks if a key consists of all zeros.
func isZeroKey(key [32]byte) bool {
	for _, b := range key {
		if b != 0 {
			return false
		}
	}
	return true
}

// SecureWipe overwrites sensitive bytes with zeros. The constant-time
// compare touches the buffer first so the compiler cannot prove the zeroing
// dead and elide it.
func SecureWipe(data []byte) error {
	if data == nil {
		return errors.New("cannot wipe nil data")
	}

	zeros := make([]byte, len(data))
	subtle.ConstantTimeCompare(data, zeros)
	copy(data, zeros)

	runtime.KeepAlive(data)
	runtime.KeepAlive(zeros)
	return nil
}

// ZeroBytes wipes a buffer, ignoring the nil-slice error.
func ZeroBytes(data []byte) {
	_ = SecureWipe(data)
}

// WipeKeyPair erases the seed of a keypair that is going out of use, such
// as at sign-out. The public half is not sensitive and stays intact.
func WipeKeyPair(kp *KeyPair) error {
	if kp == nil {
		return errors.New("cannot wipe nil KeyPair")
	}
	return SecureWipe(kp.Private[:])
}
