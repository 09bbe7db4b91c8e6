package messaging

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/blake2b"

	"github.com/opd-ai/pkmsg/crypto"
)

// timeNow is swapped out by tests that need fixed timestamps.
var timeNow = time.Now

// ErrMalformedText indicates decrypted envelope fields that are not valid
// UTF-8.
var ErrMalformedText = errors.New("decrypted field is not valid UTF-8")

// Envelope is the stored unit representing one message. It is immutable
// once created; both the content and the sender identity are hidden from
// anyone but the two participants.
type Envelope struct {
	Timestamp        uint64 `json:"timestamp"`
	EncryptedSender  []byte `json:"encrypted_sender"`
	EncryptedContent []byte `json:"encrypted_content"`
	Signature        []byte `json:"signature"`
}

// messageDigest computes the signed digest over the plaintext content, the
// sender's public key, and the big-endian timestamp.
func messageDigest(content []byte, senderPublic [32]byte, timestamp uint64) [32]byte {
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], timestamp)

	h, _ := blake2b.New256(nil)
	h.Write(content)
	h.Write(senderPublic[:])
	h.Write(ts[:])

	var digest [32]byte
	copy(digest[:], h.Sum(nil))
	return digest
}

// ComposeEnvelope builds a signed, encrypted envelope carrying content from
// the sender to the recipient. The signature is created over the plaintext
// digest before encryption, so verification on the receiving side requires
// decryption first.
func ComposeEnvelope(sender *crypto.KeyPair, recipientPublic [32]byte, content string) (*Envelope, error) {
	timestamp := uint64(timeNow().Unix())

	digest := messageDigest([]byte(content), sender.Public, timestamp)
	signature, err := crypto.Sign(digest[:], sender)
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}

	secret, err := crypto.DeriveSharedSecret(sender, recipientPublic[:])
	if err != nil {
		return nil, fmt.Errorf("failed to derive conversation key: %w", err)
	}
	defer crypto.ZeroBytes(secret[:])

	encryptedContent, err := crypto.EncryptSymmetric([]byte(content), secret)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt content: %w", err)
	}

	senderString := crypto.PublicKeyString(sender.Public)
	encryptedSender, err := crypto.EncryptSymmetric([]byte(senderString), secret)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt sender: %w", err)
	}

	return &Envelope{
		Timestamp:        timestamp,
		EncryptedSender:  encryptedSender,
		EncryptedContent: encryptedContent,
		Signature:        signature[:],
	}, nil
}

// OpenEnvelope decrypts an envelope read from either participant's copy of
// the conversation and checks its signature. A cryptographically invalid
// signature is not an error: the message is returned with verified=false so
// the caller decides policy. Decryption failure of either field fails the
// whole open.
func OpenEnvelope(env *Envelope, receiver *crypto.KeyPair, otherPublic [32]byte) (sender, content string, verified bool, err error) {
	secret, err := crypto.DeriveSharedSecret(receiver, otherPublic[:])
	if err != nil {
		return "", "", false, fmt.Errorf("failed to derive conversation key: %w", err)
	}
	defer crypto.ZeroBytes(secret[:])

	contentBytes, err := crypto.DecryptSymmetric(env.EncryptedContent, secret)
	if err != nil {
		return "", "", false, fmt.Errorf("failed to decrypt content: %w", err)
	}

	senderBytes, err := crypto.DecryptSymmetric(env.EncryptedSender, secret)
	if err != nil {
		return "", "", false, fmt.Errorf("failed to decrypt sender: %w", err)
	}

	if !utf8.Valid(contentBytes) || !utf8.Valid(senderBytes) {
		return "", "", false, ErrMalformedText
	}

	sender = string(senderBytes)
	content = string(contentBytes)
	return sender, content, verifyEnvelope(env, content, sender), nil
}

// verifyEnvelope recomputes the plaintext digest and checks the stored
// signature against the decrypted sender identity. Any malformed input
// (unparseable sender, wrong signature length) surfaces as unverified.
func verifyEnvelope(env *Envelope, content, sender string) bool {
	senderPublic, err := crypto.ParsePublicKey(sender)
	if err != nil {
		return false
	}
	if len(env.Signature) != crypto.SignatureSize {
		return false
	}

	var signature crypto.Signature
	copy(signature[:], env.Signature)

	digest := messageDigest([]byte(content), senderPublic, env.Timestamp)
	return crypto.Verify(digest[:], signature, senderPublic)
}
