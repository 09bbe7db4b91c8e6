package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/opd-ai/pkmsg/crypto"
)

// Scheme is the URI scheme for public-key-addressed objects.
const Scheme = "pubky"

var (
	// ErrNotFound indicates the requested object does not exist.
	ErrNotFound = errors.New("object not found")
	// ErrRequestFailed indicates a non-success response from the store.
	ErrRequestFailed = errors.New("store request failed")
)

// Session is the result of a successful sign-in handshake.
type Session struct {
	PublicKey string
	Token     string
}

// Client is the store verb contract the messaging core depends on.
// Implementations must be safe for concurrent use.
type Client interface {
	// Get fetches the object at uri. Missing objects return ErrNotFound.
	Get(ctx context.Context, uri string) ([]byte, error)
	// Put writes body to uri, creating or replacing the object atomically.
	Put(ctx context.Context, uri string, body []byte) error
	// List enumerates the URIs of all objects under prefix.
	List(ctx context.Context, prefix string) ([]string, error)
	// Delete removes the object at uri. Deleting a missing object is not
	// an error.
	Delete(ctx context.Context, uri string) error
	// SignIn performs the authentication handshake for the keypair's
	// account and returns the established session.
	SignIn(ctx context.Context, keyPair *crypto.KeyPair) (*Session, error)
}

// URI builds an object URI for a path under the given account.
// The path must begin with "/".
func URI(publicKey string, path string) string {
	return fmt.Sprintf("%s://%s%s", Scheme, publicKey, path)
}

// SplitURI splits an object URI into its account public key and path.
func SplitURI(uri string) (publicKey, path string, err error) {
	rest, ok := strings.CutPrefix(uri, Scheme+"://")
	if !ok {
		return "", "", fmt.Errorf("invalid uri %q: missing %s scheme", uri, Scheme)
	}

	slash := strings.Index(rest, "/")
	if slash < 0 {
		return rest, "/", nil
	}
	return rest[:slash], rest[slash:], nil
}

// LastSegment returns the final path segment of a URI, with any trailing
// slash removed. Used to extract object names and follow targets.
func LastSegment(uri string) string {
	trimmed := strings.TrimSuffix(uri, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}
