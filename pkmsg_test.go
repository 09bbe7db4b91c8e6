package pkmsg

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/pkmsg/crypto"
	"github.com/opd-ai/pkmsg/messaging"
	"github.com/opd-ai/pkmsg/store"
)

// newTestClient wires a Client to a shared in-memory store. The recovery
// decoder ignores the backup bytes and hands back the given keypair when
// the passphrase matches.
func newTestClient(t *testing.T, shared *store.MemoryClient, keyPair *crypto.KeyPair) *Client {
	t.Helper()

	client, err := New(Options{
		NewStoreClient: func() (store.Client, error) { return shared, nil },
		RecoveryDecrypt: func(data []byte, passphrase string) (*crypto.KeyPair, error) {
			if passphrase != "correct horse" {
				return nil, errors.New("wrong passphrase")
			}
			return keyPair, nil
		},
	})
	require.NoError(t, err)
	return client
}

func TestNewRequiresStoreFactory(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorIs(t, err, ErrNoStoreClient)
}

func TestOperationsRequireSignIn(t *testing.T) {
	ctx := context.Background()
	keyPair, _ := crypto.GenerateKeyPair()
	client := newTestClient(t, store.NewMemoryClient(), keyPair)

	err := client.SendMessage(ctx, crypto.PublicKeyString(keyPair.Public), "hi")
	assert.ErrorIs(t, err, ErrNotSignedIn)

	_, err = client.GetConversation(ctx, crypto.PublicKeyString(keyPair.Public))
	assert.ErrorIs(t, err, ErrNotSignedIn)

	_, err = client.GetFollowedUsers(ctx)
	assert.ErrorIs(t, err, ErrNotSignedIn)

	_, err = client.DrainNotifications(ctx)
	assert.ErrorIs(t, err, ErrNotSignedIn)

	_, err = client.WrapSession()
	assert.ErrorIs(t, err, ErrNotSignedIn)

	assert.Nil(t, client.GetOwnProfile())
}

func TestSignInWithRecovery(t *testing.T) {
	ctx := context.Background()
	keyPair, _ := crypto.GenerateKeyPair()
	client := newTestClient(t, store.NewMemoryClient(), keyPair)

	_, err := client.SignInWithRecovery(ctx, []byte("backup"), "wrong")
	assert.Error(t, err)
	assert.Nil(t, client.GetOwnProfile())

	profile, err := client.SignInWithRecovery(ctx, []byte("backup"), "correct horse")
	require.NoError(t, err)
	assert.True(t, profile.SignedIn)
	assert.Equal(t, crypto.PublicKeyString(keyPair.Public), profile.PublicKey)
}

func TestSendAndFetchThroughFacade(t *testing.T) {
	ctx := context.Background()
	shared := store.NewMemoryClient()

	aliceKeys, _ := crypto.GenerateKeyPair()
	bobKeys, _ := crypto.GenerateKeyPair()

	alice := newTestClient(t, shared, aliceKeys)
	bob := newTestClient(t, shared, bobKeys)

	_, err := alice.SignInWithRecovery(ctx, []byte("backup"), "correct horse")
	require.NoError(t, err)
	_, err = bob.SignInWithRecovery(ctx, []byte("backup"), "correct horse")
	require.NoError(t, err)

	bobKey := crypto.PublicKeyString(bobKeys.Public)
	aliceKey := crypto.PublicKeyString(aliceKeys.Public)

	require.NoError(t, alice.SendMessage(ctx, bobKey, "hello bob"))

	conv, err := bob.GetConversation(ctx, aliceKey)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, "hello bob", conv.Messages[0].Content)
	assert.Equal(t, aliceKey, conv.Messages[0].Sender)
	assert.True(t, conv.Messages[0].Verified)

	// The send also left a notification in Bob's inbox.
	events, err := bob.DrainNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, aliceKey, events[0].Sender)
}

func TestGetInboxMergesFollowedConversations(t *testing.T) {
	ctx := context.Background()
	shared := store.NewMemoryClient()

	aliceKeys, _ := crypto.GenerateKeyPair()
	bobKeys, _ := crypto.GenerateKeyPair()
	carolKeys, _ := crypto.GenerateKeyPair()

	alice := newTestClient(t, shared, aliceKeys)
	bob := newTestClient(t, shared, bobKeys)
	carol := newTestClient(t, shared, carolKeys)

	for _, c := range []*Client{alice, bob, carol} {
		_, err := c.SignInWithRecovery(ctx, []byte("backup"), "correct horse")
		require.NoError(t, err)
	}

	aliceKey := crypto.PublicKeyString(aliceKeys.Public)
	bobKey := crypto.PublicKeyString(bobKeys.Public)
	carolKey := crypto.PublicKeyString(carolKeys.Public)

	// Bob follows Alice and Carol, plus one entry that is not a key.
	follows := "pubky://" + aliceKey + "\npubky://" + carolKey + "\nnot-a-key\n"
	require.NoError(t, shared.Put(ctx, store.URI(bobKey, "/follows/"), []byte(follows)))

	require.NoError(t, alice.SendMessage(ctx, bobKey, "from alice"))
	require.NoError(t, carol.SendMessage(ctx, bobKey, "from carol"))

	inbox, err := bob.GetInbox(ctx)
	require.NoError(t, err)
	require.Len(t, inbox, 2)

	var contents []string
	for _, msg := range inbox {
		contents = append(contents, msg.Content)
	}
	assert.ElementsMatch(t, []string{"from alice", "from carol"}, contents)
}

func TestWrapAndRestoreSession(t *testing.T) {
	ctx := context.Background()
	shared := store.NewMemoryClient()
	keyPair, _ := crypto.GenerateKeyPair()

	client := newTestClient(t, shared, keyPair)
	_, err := client.SignInWithRecovery(ctx, []byte("backup"), "correct horse")
	require.NoError(t, err)

	blob, err := client.WrapSession()
	require.NoError(t, err)

	// A fresh process restores the session from the blob alone.
	restored := newTestClient(t, shared, nil)
	profile, err := restored.RestoreSession(ctx, blob)
	require.NoError(t, err)
	assert.Equal(t, crypto.PublicKeyString(keyPair.Public), profile.PublicKey)
	assert.True(t, profile.SignedIn)
}

func TestRestoreSessionRejectsGarbage(t *testing.T) {
	keyPair, _ := crypto.GenerateKeyPair()
	client := newTestClient(t, store.NewMemoryClient(), keyPair)

	_, err := client.RestoreSession(context.Background(), "not a session blob")
	assert.Error(t, err)
	assert.Nil(t, client.GetOwnProfile())
}

func TestSignOutClearsState(t *testing.T) {
	ctx := context.Background()
	keyPair, _ := crypto.GenerateKeyPair()
	client := newTestClient(t, store.NewMemoryClient(), keyPair)

	_, err := client.SignInWithRecovery(ctx, []byte("backup"), "correct horse")
	require.NoError(t, err)
	require.NotNil(t, client.GetOwnProfile())

	client.SignOut()
	assert.Nil(t, client.GetOwnProfile())

	err = client.SendMessage(ctx, crypto.PublicKeyString(keyPair.Public), "hi")
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

// An operation that grabbed the session before a concurrent sign-out must
// keep a usable key: the session hands out a private copy, so wiping the
// client's key cannot corrupt signatures already in flight.
func TestSessionCopyIsolatedFromSignOut(t *testing.T) {
	ctx := context.Background()
	keyPair, _ := crypto.GenerateKeyPair()
	client := newTestClient(t, store.NewMemoryClient(), keyPair)

	_, err := client.SignInWithRecovery(ctx, []byte("backup"), "correct horse")
	require.NoError(t, err)

	inFlight, _, err := client.session()
	require.NoError(t, err)

	client.SignOut()

	recipient, _ := crypto.GenerateKeyPair()
	env, err := messaging.ComposeEnvelope(inFlight, recipient.Public, "still valid")
	require.NoError(t, err)

	_, content, verified, err := messaging.OpenEnvelope(env, recipient, inFlight.Public)
	require.NoError(t, err)
	assert.Equal(t, "still valid", content)
	assert.True(t, verified)
}

func TestStoreClientCreatedOnce(t *testing.T) {
	var created int
	client, err := New(Options{
		NewStoreClient: func() (store.Client, error) {
			created++
			return store.NewMemoryClient(), nil
		},
	})
	require.NoError(t, err)
	require.NoError(t, client.Initialize())
	require.NoError(t, client.Initialize())
	assert.Equal(t, 1, created)
}
