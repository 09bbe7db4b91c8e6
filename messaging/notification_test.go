package messaging

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/pkmsg/crypto"
	"github.com/opd-ai/pkmsg/store"
)

func TestDecodeNotification(t *testing.T) {
	keyPair, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	sender := crypto.PublicKeyString(keyPair.Public)

	current, _ := json.Marshal(Notification{Timestamp: 10, Sender: sender, MsgID: "m-1"})
	legacy, _ := json.Marshal(legacyNotification{Timestamp: 10, EncryptedSender: []byte{1, 2, 3}, MsgID: "m-2"})

	cases := []struct {
		name string
		data []byte
		want notificationKind
	}{
		{"current format", current, notificationCurrent},
		{"legacy format", legacy, notificationLegacy},
		{"not json", []byte("??"), notificationUnknown},
		{"wrong shape", []byte(`{"foo": 1}`), notificationUnknown},
		{"current with bogus sender", []byte(`{"timestamp":1,"sender":"not a key","msg_id":"x"}`), notificationUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			kind, record := decodeNotification(tc.data)
			assert.Equal(t, tc.want, kind)
			if tc.want == notificationCurrent {
				require.NotNil(t, record)
				assert.Equal(t, sender, record.Sender)
				assert.Equal(t, "m-1", record.MsgID)
			} else {
				assert.Nil(t, record)
			}
		})
	}
}

func TestNotifyAndDrain(t *testing.T) {
	ctx := context.Background()
	client := store.NewMemoryClient()

	alice, _ := crypto.GenerateKeyPair()
	bob, _ := crypto.GenerateKeyPair()

	aliceHandler := NewHandler(client, alice)
	require.NoError(t, aliceHandler.Notify(ctx, bob.Public, "msg-42"))

	bobHandler := NewHandler(client, bob)
	events, err := bobHandler.DrainNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, crypto.PublicKeyString(alice.Public), events[0].Sender)
	assert.Equal(t, "msg-42", events[0].MsgID)

	// At-most-once: the record is gone after the drain.
	events, err = bobHandler.DrainNotifications(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Zero(t, client.Len())
}

func TestDrainClearsLegacyAndGarbage(t *testing.T) {
	ctx := context.Background()
	client := store.NewMemoryClient()

	alice, _ := crypto.GenerateKeyPair()
	bob, _ := crypto.GenerateKeyPair()
	inbox := store.URI(crypto.PublicKeyString(bob.Public), notificationPathPrefix)

	legacy, _ := json.Marshal(legacyNotification{Timestamp: 1, EncryptedSender: []byte{9, 9}, MsgID: "old"})
	require.NoError(t, client.Put(ctx, inbox+"legacy.json", legacy))
	require.NoError(t, client.Put(ctx, inbox+"junk.json", []byte("junk")))

	aliceHandler := NewHandler(client, alice)
	require.NoError(t, aliceHandler.Notify(ctx, bob.Public, "fresh"))

	events, err := NewHandler(client, bob).DrainNotifications(ctx)
	require.NoError(t, err)

	// Only the current-format record yields data; everything gets deleted.
	require.Len(t, events, 1)
	assert.Equal(t, "fresh", events[0].MsgID)
	assert.Zero(t, client.Len())
}
