package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/user"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/pbkdf2"

	"github.com/opd-ai/pkmsg/crypto"
)

const (
	// appIdentifier salts the device entropy so unrelated applications on
	// the same machine derive different wrapping keys.
	appIdentifier = "pkmsg-session-vault-v1"
	// kdfIterations is the PBKDF2 iteration count (NIST recommendation).
	kdfIterations = 100000
	// SaltSize is the size of the random KDF salt in bytes.
	SaltSize = 32
	// NonceSize is the AES-GCM nonce size in bytes.
	NonceSize = 12
)

var (
	// ErrBadNonceLength indicates a wrapped session whose nonce is not
	// exactly 12 bytes.
	ErrBadNonceLength = errors.New("wrapped session nonce must be 12 bytes")
	// ErrBadKeyLength indicates decrypted key material of the wrong size.
	ErrBadKeyLength = errors.New("unwrapped key must be 32 bytes")
	// ErrDecryptionFailed indicates the wrapped session could not be
	// authenticated, typically because it was created on another machine or
	// account, or was corrupted.
	ErrDecryptionFailed = errors.New("failed to unwrap session (wrong machine, account, or corrupted data)")
)

// WrappedSession is the encrypted-at-rest form of an identity keypair.
// It is opaque outside this package; callers persist it via Encode.
type WrappedSession struct {
	Ciphertext []byte `json:"ciphertext"`
	Nonce      []byte `json:"nonce"`
	Salt       []byte `json:"salt"`
}

// deviceEntropy builds the per-machine key-derivation input. Missing host
// or user information degrades to empty components rather than failing;
// the salt still randomizes the derived key.
func deviceEntropy() []byte {
	hostname, _ := os.Hostname()

	var username string
	if u, err := user.Current(); err == nil {
		username = u.Username
	} else {
		username = os.Getenv("USER")
	}

	return []byte(hostname + username + appIdentifier)
}

// deriveKey stretches the device entropy and salt into a 32-byte AES key.
func deriveKey(salt []byte) []byte {
	return pbkdf2.Key(deviceEntropy(), salt, kdfIterations, 32, sha256.New)
}

// Wrap encrypts the keypair's secret seed under a device-bound key.
// Each call draws a fresh salt and nonce.
func Wrap(keyPair *crypto.KeyPair) (*WrappedSession, error) {
	if keyPair == nil {
		return nil, errors.New("nil keypair")
	}

	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	key := deriveKey(salt)
	defer crypto.ZeroBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, keyPair.Private[:], nil)

	logrus.WithFields(logrus.Fields{
		"function": "Wrap",
	}).Debug("Session keypair wrapped for local persistence")

	return &WrappedSession{
		Ciphertext: ciphertext,
		Nonce:      nonce,
		Salt:       salt,
	}, nil
}

// Unwrap recovers the keypair from a wrapped session created on this
// machine and account. It fails closed on any malformed input.
func Unwrap(session *WrappedSession) (*crypto.KeyPair, error) {
	if session == nil {
		return nil, errors.New("nil wrapped session")
	}
	if len(session.Nonce) != NonceSize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrBadNonceLength, len(session.Nonce))
	}

	key := deriveKey(session.Salt)
	defer crypto.ZeroBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	plaintext, err := gcm.Open(nil, session.Nonce, session.Ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	if len(plaintext) != crypto.SecretKeySize {
		crypto.ZeroBytes(plaintext)
		return nil, fmt.Errorf("%w: got %d bytes", ErrBadKeyLength, len(plaintext))
	}

	var seed [32]byte
	copy(seed[:], plaintext)
	crypto.ZeroBytes(plaintext)

	keyPair, err := crypto.FromSecretKey(seed)
	crypto.ZeroBytes(seed[:])
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild keypair: %w", err)
	}
	return keyPair, nil
}

// Encode renders the wrapped session as an opaque blob suitable for a
// config file or OS credential store.
func (w *WrappedSession) Encode() (string, error) {
	raw, err := json.Marshal(w)
	if err != nil {
		return "", fmt.Errorf("failed to encode wrapped session: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Decode parses a blob produced by Encode.
func Decode(encoded string) (*WrappedSession, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode wrapped session: %w", err)
	}

	var session WrappedSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("failed to parse wrapped session: %w", err)
	}
	return &session, nil
}
