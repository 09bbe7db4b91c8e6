package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/pkmsg/crypto"
	"github.com/opd-ai/pkmsg/store"
)

// Message is one decrypted entry of a conversation.
type Message struct {
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Timestamp uint64 `json:"timestamp"`
	Verified  bool   `json:"verified"`
}

// Conversation is the merged, chronological view of both participants'
// copies of a conversation. Skipped counts objects that were listed but
// could not be fetched, parsed, or decrypted.
type Conversation struct {
	Messages []Message
	Skipped  int
}

// Handler binds a store client and an identity keypair and performs the
// conversation and notification operations.
type Handler struct {
	client  store.Client
	keyPair *crypto.KeyPair
}

// NewHandler creates a Handler for the given identity.
func NewHandler(client store.Client, keyPair *crypto.KeyPair) *Handler {
	return &Handler{client: client, keyPair: keyPair}
}

// SendMessage composes an envelope for the recipient and writes it into the
// sender's copy of the conversation path. A failed write is fatal to the
// call; the follow-up notification is fire-and-forget.
func (h *Handler) SendMessage(ctx context.Context, recipientPublic [32]byte, content string) error {
	envelope, err := ComposeEnvelope(h.keyPair, recipientPublic, content)
	if err != nil {
		return fmt.Errorf("failed to compose envelope: %w", err)
	}

	secret, err := crypto.DeriveSharedSecret(h.keyPair, recipientPublic[:])
	if err != nil {
		return fmt.Errorf("failed to derive conversation key: %w", err)
	}
	defer crypto.ZeroBytes(secret[:])

	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}

	messageID := uuid.NewString()
	uri := conversationPrefix(h.keyPair.Public, secret) + messageID + ".json"

	logrus.WithFields(logrus.Fields{
		"function":   "SendMessage",
		"message_id": messageID,
		"recipient":  fmt.Sprintf("%x", recipientPublic[:8]),
		"size":       len(body),
	}).Debug("Storing message envelope")

	if err := h.client.Put(ctx, uri, body); err != nil {
		return fmt.Errorf("failed to store message: %w", err)
	}

	// Best effort: the message is already durable, a lost notification only
	// delays discovery.
	if err := h.Notify(ctx, recipientPublic, messageID); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":   "SendMessage",
			"message_id": messageID,
			"error":      err.Error(),
		}).Warn("Failed to store notification")
	}

	return nil
}

// FetchConversation lists both participants' copies of the conversation
// path, decrypts and verifies every envelope it can, and returns the
// surviving messages in ascending timestamp order. Per-object failures are
// skipped and counted, never fatal.
func (h *Handler) FetchConversation(ctx context.Context, otherPublic [32]byte) (*Conversation, error) {
	secret, err := crypto.DeriveSharedSecret(h.keyPair, otherPublic[:])
	if err != nil {
		return nil, fmt.Errorf("failed to derive conversation key: %w", err)
	}
	defer crypto.ZeroBytes(secret[:])

	var uris []string
	for _, prefix := range []string{
		conversationPrefix(h.keyPair.Public, secret),
		conversationPrefix(otherPublic, secret),
	} {
		listed, err := h.client.List(ctx, prefix)
		if err != nil {
			// An unlistable namespace is treated as empty; the other side
			// may still hold messages.
			logrus.WithFields(logrus.Fields{
				"function": "FetchConversation",
				"prefix":   prefix,
				"error":    err.Error(),
			}).Debug("List failed, treating namespace as empty")
			continue
		}
		uris = append(uris, listed...)
	}

	conv := &Conversation{}
	for _, uri := range uris {
		msg, ok := h.fetchOne(ctx, uri, otherPublic)
		if !ok {
			conv.Skipped++
			continue
		}
		conv.Messages = append(conv.Messages, msg)
	}

	// Chronological order; stable so ties keep encounter order.
	sort.SliceStable(conv.Messages, func(i, j int) bool {
		return conv.Messages[i].Timestamp < conv.Messages[j].Timestamp
	})

	logrus.WithFields(logrus.Fields{
		"function": "FetchConversation",
		"peer":     fmt.Sprintf("%x", otherPublic[:8]),
		"messages": len(conv.Messages),
		"skipped":  conv.Skipped,
	}).Info("Conversation fetched")

	return conv, nil
}

// fetchOne retrieves and opens a single envelope object. Any failure is
// reported as a skip so one corrupt or foreign object never poisons the
// batch.
func (h *Handler) fetchOne(ctx context.Context, uri string, otherPublic [32]byte) (Message, bool) {
	log := logrus.WithFields(logrus.Fields{
		"function": "fetchOne",
		"uri":      uri,
	})

	body, err := h.client.Get(ctx, uri)
	if err != nil {
		log.WithField("error", err.Error()).Warn("Failed to fetch envelope object")
		return Message{}, false
	}

	var envelope Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		log.WithField("error", err.Error()).Warn("Object is not an envelope, skipping")
		return Message{}, false
	}

	sender, content, verified, err := OpenEnvelope(&envelope, h.keyPair, otherPublic)
	if err != nil {
		log.WithField("error", err.Error()).Warn("Failed to open envelope, skipping")
		return Message{}, false
	}

	return Message{
		Sender:    sender,
		Content:   content,
		Timestamp: envelope.Timestamp,
		Verified:  verified,
	}, true
}

// FetchAllFromContacts merges the conversations with every given contact
// into a single view sorted most recent first. Contacts whose conversation
// cannot be derived are skipped.
func (h *Handler) FetchAllFromContacts(ctx context.Context, contacts [][32]byte) ([]Message, error) {
	var all []Message
	for _, contact := range contacts {
		conv, err := h.FetchConversation(ctx, contact)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "FetchAllFromContacts",
				"contact":  fmt.Sprintf("%x", contact[:8]),
				"error":    err.Error(),
			}).Warn("Skipping contact conversation")
			continue
		}
		all = append(all, conv.Messages...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp > all[j].Timestamp
	})
	return all, nil
}
