// Package messaging implements the private-message protocol: signed,
// doubly-encrypted message envelopes, deterministic conversation
// addressing, conversation retrieval and merging, and the best-effort
// notification sub-protocol.
//
// # Envelopes
//
// A message is stored as an Envelope: the content and the sender's identity
// are independently encrypted under the pair's shared secret, and an
// Ed25519 signature covers a digest of the plaintext content, the sender's
// public key, and the timestamp. Anyone can read an envelope off the store;
// only the two participants can decrypt it, and only after decryption can
// the signature be checked.
//
// # Conversation Addressing
//
// Both participants derive the same storage path from their shared secret:
//
//	/private_messages/<hex(blake2b-256(secret))>/
//
// Each participant writes messages into that path under their own account,
// so a full conversation is the merge of both accounts' copies of the path.
// Third parties who know neither identity key cannot link the two accounts
// through the path.
//
// # Handler
//
// Handler binds a store client and an identity keypair and exposes the
// conversation operations:
//
//	h := messaging.NewHandler(client, keyPair)
//	err := h.SendMessage(ctx, peerPublicKey, "hello")
//	conv, err := h.FetchConversation(ctx, peerPublicKey)
//
// Retrieval is best-effort: objects that fail to parse, decrypt, or verify
// their inputs are skipped and counted, never fatal to the batch.
package messaging
