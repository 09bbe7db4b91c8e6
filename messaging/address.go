package messaging

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"

	"github.com/opd-ai/pkmsg/crypto"
	"github.com/opd-ai/pkmsg/store"
)

// conversationPathPrefix roots every conversation under the account tree.
const conversationPathPrefix = "/private_messages/"

// ConversationAddress maps a pair's shared secret to the storage path both
// participants use for the conversation. Hashing the secret keeps the
// pairing unlinkable to anyone who does not already hold it, and the same
// address falls out on both sides because the secret is symmetric.
func ConversationAddress(secret [32]byte) string {
	sum := blake2b.Sum256(secret[:])
	return conversationPathPrefix + hex.EncodeToString(sum[:]) + "/"
}

// conversationPrefix builds the URI prefix for one participant's copy of
// the conversation.
func conversationPrefix(participant [32]byte, secret [32]byte) string {
	return store.URI(crypto.PublicKeyString(participant), ConversationAddress(secret))
}
