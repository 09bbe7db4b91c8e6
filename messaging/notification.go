package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/pkmsg/crypto"
	"github.com/opd-ai/pkmsg/store"
)

// notificationPathPrefix is each account's well-known notification inbox.
const notificationPathPrefix = "/notifications/"

// Notification announces a new message to its recipient. The sender field
// is a plaintext public key string.
type Notification struct {
	Timestamp uint64 `json:"timestamp"`
	Sender    string `json:"sender"`
	MsgID     string `json:"msg_id"`
}

// legacyNotification is an older record format whose sender field was
// encrypted. It is recognized only so it can be discarded cleanly; no data
// is extracted from it.
type legacyNotification struct {
	Timestamp       uint64 `json:"timestamp"`
	EncryptedSender []byte `json:"encrypted_sender"`
	MsgID           string `json:"msg_id"`
}

// NotificationEvent is one drained current-format notification.
type NotificationEvent struct {
	Sender string
	MsgID  string
}

// notificationKind tags the outcome of decoding a notification object.
type notificationKind int

const (
	notificationCurrent notificationKind = iota
	notificationLegacy
	notificationUnknown
)

// decodeNotification classifies a stored notification object as current,
// legacy, or unknown. Decoding is strict so a legacy object never half-fills
// the current shape; the sender of a current record must parse as a public
// key.
func decodeNotification(data []byte) (notificationKind, *Notification) {
	current := &Notification{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(current); err == nil && current.Sender != "" && current.MsgID != "" {
		if _, err := crypto.ParsePublicKey(current.Sender); err == nil {
			return notificationCurrent, current
		}
	}

	var legacy legacyNotification
	dec = json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&legacy); err == nil && len(legacy.EncryptedSender) > 0 {
		return notificationLegacy, nil
	}

	return notificationUnknown, nil
}

// Notify writes a new-message notification into the recipient's inbox under
// a fresh random identifier.
func (h *Handler) Notify(ctx context.Context, recipientPublic [32]byte, msgID string) error {
	record := Notification{
		Timestamp: uint64(timeNow().Unix()),
		Sender:    crypto.PublicKeyString(h.keyPair.Public),
		MsgID:     msgID,
	}

	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	uri := store.URI(crypto.PublicKeyString(recipientPublic), notificationPathPrefix) + uuid.NewString() + ".json"
	if err := h.client.Put(ctx, uri, body); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}
	return nil
}

// DrainNotifications reads the local inbox and returns the senders and
// message ids of every current-format record. Every processed object is
// deleted regardless of format, so legacy records and unrecognized garbage
// are cleared out rather than reread forever. Per-object failures are
// logged and skipped.
func (h *Handler) DrainNotifications(ctx context.Context) ([]NotificationEvent, error) {
	prefix := store.URI(crypto.PublicKeyString(h.keyPair.Public), notificationPathPrefix)

	uris, err := h.client.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	var events []NotificationEvent
	var skipped int
	for _, uri := range uris {
		log := logrus.WithFields(logrus.Fields{
			"function": "DrainNotifications",
			"uri":      uri,
		})

		body, err := h.client.Get(ctx, uri)
		if err != nil {
			log.WithField("error", err.Error()).Warn("Failed to fetch notification")
			skipped++
			continue
		}

		kind, record := decodeNotification(body)
		switch kind {
		case notificationCurrent:
			events = append(events, NotificationEvent{Sender: record.Sender, MsgID: record.MsgID})
		case notificationLegacy:
			log.Debug("Discarding legacy notification")
		default:
			log.Debug("Discarding unrecognized notification format")
		}

		// Unconditional delete after a successful read: a crash between
		// read and delete reprocesses at most once, never loses data.
		if err := h.client.Delete(ctx, uri); err != nil {
			log.WithField("error", err.Error()).Warn("Failed to delete notification")
		}
	}

	logrus.WithFields(logrus.Fields{
		"function": "DrainNotifications",
		"events":   len(events),
		"skipped":  skipped,
	}).Info("Notification inbox drained")

	return events, nil
}
