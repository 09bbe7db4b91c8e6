package crypto

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/curve25519"
)

// DeriveSharedSecret computes the conversation key shared between the local
// identity and a remote public key. Both identity keys are converted from
// their Ed25519 form to X25519 and run through ECDH, so the result is the
// same regardless of which participant computes it.
func DeriveSharedSecret(local *KeyPair, remotePublic []byte) ([32]byte, error) {
	var secret [32]byte

	if local == nil {
		return secret, fmt.Errorf("nil local keypair")
	}
	if len(remotePublic) != PublicKeySize {
		return secret, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKeyLength, len(remotePublic), PublicKeySize)
	}

	logrus.WithFields(logrus.Fields{
		"function":        "DeriveSharedSecret",
		"peer_key_prefix": fmt.Sprintf("%x", remotePublic[:8]),
	}).Debug("Deriving conversation key via ECDH")

	var remoteEd [32]byte
	copy(remoteEd[:], remotePublic)

	remoteX, err := EdPublicToX25519(remoteEd)
	if err != nil {
		return secret, fmt.Errorf("failed to convert remote public key: %w", err)
	}

	localX := EdSecretToX25519(local.Private)

	shared, err := curve25519.X25519(localX[:], remoteX[:])
	if err != nil {
		ZeroBytes(localX[:])
		return secret, fmt.Errorf("failed to compute shared secret: %w", err)
	}

	copy(secret[:], shared)

	// Wipe intermediates; only the caller's copy survives.
	ZeroBytes(localX[:])
	ZeroBytes(shared)

	return secret, nil
}
