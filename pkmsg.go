// Package pkmsg implements an end-to-end-encrypted private messaging layer
// on top of a public-key-addressed object store.
//
// Every account is an Ed25519 keypair whose public key doubles as its
// network address. Messages travel as signed, doubly-encrypted envelopes
// written to a conversation path both participants derive from their
// Diffie-Hellman shared secret; neither the content, the sender identity,
// nor the pairing of the two accounts is visible to third parties.
//
// Example:
//
//	client, err := pkmsg.New(pkmsg.Options{
//	    NewStoreClient: func() (store.Client, error) {
//	        return store.NewHTTPClient("https://homeserver.example.org"), nil
//	    },
//	    RecoveryDecrypt: recovery.Decrypt,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	profile, err := client.SignInWithRecovery(ctx, backupBytes, passphrase)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = client.SendMessage(ctx, peerPublicKey, "hello")
//	conv, err := client.GetConversation(ctx, peerPublicKey)
package pkmsg

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/pkmsg/crypto"
	"github.com/opd-ai/pkmsg/messaging"
	"github.com/opd-ai/pkmsg/social"
	"github.com/opd-ai/pkmsg/store"
	"github.com/opd-ai/pkmsg/vault"
)

var (
	// ErrNotSignedIn indicates an operation that requires an active session
	// was attempted while signed out. It is checked before any network I/O.
	ErrNotSignedIn = errors.New("not signed in")
	// ErrNoStoreClient indicates Options without a store client factory.
	ErrNoStoreClient = errors.New("no store client factory configured")
	// ErrNoRecoveryDecrypt indicates a recovery sign-in without a
	// configured recovery decoder.
	ErrNoRecoveryDecrypt = errors.New("no recovery decoder configured")
)

// RecoveryDecryptFunc decodes a passphrase-protected keypair backup.
// It is supplied by the embedding application.
type RecoveryDecryptFunc func(data []byte, passphrase string) (*crypto.KeyPair, error)

// Options configures a Client.
type Options struct {
	// NewStoreClient builds the object-store client on first use.
	NewStoreClient func() (store.Client, error)
	// RecoveryDecrypt decodes recovery backups for SignInWithRecovery.
	// Optional; sign-in via RestoreSession works without it.
	RecoveryDecrypt RecoveryDecryptFunc
}

// UserProfile describes the active session to the embedding application.
type UserProfile struct {
	PublicKey string  `json:"public_key"`
	SignedIn  bool    `json:"signed_in"`
	Name      *string `json:"name"`
}

// Client holds the process-wide session state: the active keypair, the
// signed-in flag, the cached display name, and the lazily-created store
// client. All state access is serialized; the store client is created at
// most once and shared.
type Client struct {
	opts Options

	mu          sync.Mutex
	keyPair     *crypto.KeyPair
	displayName string
	signedIn    bool
	storeClient store.Client
}

// New creates a Client with empty session state.
func New(opts Options) (*Client, error) {
	if opts.NewStoreClient == nil {
		return nil, ErrNoStoreClient
	}
	return &Client{opts: opts}, nil
}

// Initialize eagerly creates the store client. Calling it is optional;
// every operation creates the client on demand.
func (c *Client) Initialize() error {
	_, err := c.store()
	return err
}

// store returns the shared store client, creating it on first use.
func (c *Client) store() (store.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.storeClient != nil {
		return c.storeClient, nil
	}

	client, err := c.opts.NewStoreClient()
	if err != nil {
		return nil, fmt.Errorf("failed to create store client: %w", err)
	}
	c.storeClient = client
	return client, nil
}

// session returns the store client and a private copy of the active
// keypair, or ErrNotSignedIn. The copy keeps an in-flight operation valid
// even if a concurrent SignOut wipes the session key; callers wipe the copy
// when the operation finishes. The state check happens before any I/O is
// attempted.
func (c *Client) session() (*crypto.KeyPair, store.Client, error) {
	c.mu.Lock()
	var keyPair *crypto.KeyPair
	if c.signedIn && c.keyPair != nil {
		snapshot := *c.keyPair
		keyPair = &snapshot
	}
	c.mu.Unlock()

	if keyPair == nil {
		return nil, nil, ErrNotSignedIn
	}

	client, err := c.store()
	if err != nil {
		return nil, nil, err
	}
	return keyPair, client, nil
}

// signIn performs the store handshake and installs the keypair as the
// active session, fetching the published display name best-effort.
func (c *Client) signIn(ctx context.Context, keyPair *crypto.KeyPair) (*UserProfile, error) {
	client, err := c.store()
	if err != nil {
		return nil, err
	}

	if _, err := client.SignIn(ctx, keyPair); err != nil {
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}

	name, err := social.NewDirectory(client, keyPair).OwnProfileName(ctx)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "signIn",
			"error":    err.Error(),
		}).Warn("Failed to fetch own profile name")
		name = ""
	}

	c.mu.Lock()
	c.keyPair = keyPair
	c.displayName = name
	c.signedIn = true
	c.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":   "signIn",
		"key_prefix": crypto.PublicKeyString(keyPair.Public)[:8],
	}).Info("Session established")

	return c.currentProfile(), nil
}

// SignInWithRecovery bootstraps a session from a passphrase-protected
// keypair backup. A failed decode surfaces separately from a failed
// network handshake so the caller can tell "wrong passphrase" apart from
// "network unreachable".
func (c *Client) SignInWithRecovery(ctx context.Context, recoveryData []byte, passphrase string) (*UserProfile, error) {
	if c.opts.RecoveryDecrypt == nil {
		return nil, ErrNoRecoveryDecrypt
	}
	if len(recoveryData) == 0 || passphrase == "" {
		return nil, errors.New("recovery data and passphrase must not be empty")
	}

	keyPair, err := c.opts.RecoveryDecrypt(recoveryData, passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt recovery data (check your passphrase): %w", err)
	}

	return c.signIn(ctx, keyPair)
}

// RestoreSession re-establishes a session from a wrapped-session blob
// produced by WrapSession on this machine.
func (c *Client) RestoreSession(ctx context.Context, encoded string) (*UserProfile, error) {
	session, err := vault.Decode(encoded)
	if err != nil {
		return nil, err
	}

	keyPair, err := vault.Unwrap(session)
	if err != nil {
		return nil, err
	}

	return c.signIn(ctx, keyPair)
}

// WrapSession wraps the active keypair for at-rest persistence and returns
// the opaque blob the caller stores.
func (c *Client) WrapSession() (string, error) {
	c.mu.Lock()
	var keyPair *crypto.KeyPair
	if c.signedIn && c.keyPair != nil {
		snapshot := *c.keyPair
		keyPair = &snapshot
	}
	c.mu.Unlock()

	if keyPair == nil {
		return "", ErrNotSignedIn
	}
	defer func() { _ = crypto.WipeKeyPair(keyPair) }()

	session, err := vault.Wrap(keyPair)
	if err != nil {
		return "", err
	}
	return session.Encode()
}

// SendMessage sends an encrypted message to the recipient's public key
// (hex string form).
func (c *Client) SendMessage(ctx context.Context, recipientPublicKey, content string) error {
	keyPair, client, err := c.session()
	if err != nil {
		return err
	}
	defer func() { _ = crypto.WipeKeyPair(keyPair) }()

	recipient, err := crypto.ParsePublicKey(recipientPublicKey)
	if err != nil {
		return fmt.Errorf("invalid recipient public key: %w", err)
	}

	return messaging.NewHandler(client, keyPair).SendMessage(ctx, recipient, content)
}

// GetConversation returns the merged, chronological conversation with the
// given account.
func (c *Client) GetConversation(ctx context.Context, otherPublicKey string) (*messaging.Conversation, error) {
	keyPair, client, err := c.session()
	if err != nil {
		return nil, err
	}
	defer func() { _ = crypto.WipeKeyPair(keyPair) }()

	other, err := crypto.ParsePublicKey(otherPublicKey)
	if err != nil {
		return nil, fmt.Errorf("invalid public key: %w", err)
	}

	return messaging.NewHandler(client, keyPair).FetchConversation(ctx, other)
}

// GetInbox returns the messages from conversations with every followed
// account, merged and sorted most recent first. Contacts whose follow
// entry is not a valid public key are skipped.
func (c *Client) GetInbox(ctx context.Context) ([]messaging.Message, error) {
	keyPair, client, err := c.session()
	if err != nil {
		return nil, err
	}
	defer func() { _ = crypto.WipeKeyPair(keyPair) }()

	follows, err := social.NewDirectory(client, keyPair).ListFollows(ctx)
	if err != nil {
		return nil, err
	}

	contacts := make([][32]byte, 0, len(follows))
	for _, follow := range follows {
		contact, err := crypto.ParsePublicKey(follow)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "GetInbox",
				"follow":   follow,
			}).Warn("Skipping follow entry that is not a public key")
			continue
		}
		contacts = append(contacts, contact)
	}

	return messaging.NewHandler(client, keyPair).FetchAllFromContacts(ctx, contacts)
}

// DrainNotifications reads and clears the account's notification inbox.
func (c *Client) DrainNotifications(ctx context.Context) ([]messaging.NotificationEvent, error) {
	keyPair, client, err := c.session()
	if err != nil {
		return nil, err
	}
	defer func() { _ = crypto.WipeKeyPair(keyPair) }()
	return messaging.NewHandler(client, keyPair).DrainNotifications(ctx)
}

// GetProfile fetches another account's public profile.
func (c *Client) GetProfile(ctx context.Context, publicKey string) (*social.Profile, error) {
	keyPair, client, err := c.session()
	if err != nil {
		return nil, err
	}
	defer func() { _ = crypto.WipeKeyPair(keyPair) }()
	return social.NewDirectory(client, keyPair).FetchProfile(ctx, publicKey)
}

// GetFollowedUsers lists the accounts the local user follows, with display
// names resolved concurrently.
func (c *Client) GetFollowedUsers(ctx context.Context) ([]social.FollowedUser, error) {
	keyPair, client, err := c.session()
	if err != nil {
		return nil, err
	}
	defer func() { _ = crypto.WipeKeyPair(keyPair) }()
	return social.NewDirectory(client, keyPair).FollowedUsers(ctx)
}

// GetOwnProfile describes the active session, or nil when signed out.
func (c *Client) GetOwnProfile() *UserProfile {
	return c.currentProfile()
}

func (c *Client) currentProfile() *UserProfile {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.signedIn || c.keyPair == nil {
		return nil
	}

	profile := &UserProfile{
		PublicKey: crypto.PublicKeyString(c.keyPair.Public),
		SignedIn:  true,
	}
	if c.displayName != "" {
		name := c.displayName
		profile.Name = &name
	}
	return profile
}

// SignOut wipes the active keypair and clears all session state. The
// cached store client survives for the next sign-in.
func (c *Client) SignOut() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.keyPair != nil {
		_ = crypto.WipeKeyPair(c.keyPair)
	}
	c.keyPair = nil
	c.displayName = ""
	c.signedIn = false

	logrus.WithField("function", "SignOut").Info("Session cleared")
}
