package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/opd-ai/pkmsg/crypto"
)

// MemoryClient is an in-process Client implementation backed by a map.
// It is used as a test double and by example programs; every account's
// objects live in the same flat namespace keyed by full URI.
type MemoryClient struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryClient creates an empty in-memory store.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{objects: make(map[string][]byte)}
}

// Get implements Client.Get.
func (m *MemoryClient) Get(ctx context.Context, uri string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	body, ok := m.objects[uri]
	if !ok {
		return nil, ErrNotFound
	}

	out := make([]byte, len(body))
	copy(out, body)
	return out, nil
}

// Put implements Client.Put.
func (m *MemoryClient) Put(ctx context.Context, uri string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stored := make([]byte, len(body))
	copy(stored, body)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[uri] = stored
	return nil
}

// List implements Client.List. Results are sorted for determinism.
func (m *MemoryClient) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var uris []string
	for uri := range m.objects {
		if len(uri) >= len(prefix) && uri[:len(prefix)] == prefix {
			uris = append(uris, uri)
		}
	}

	sort.Strings(uris)
	return uris, nil
}

// Delete implements Client.Delete.
func (m *MemoryClient) Delete(ctx context.Context, uri string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, uri)
	return nil
}

// SignIn implements Client.SignIn. The in-memory store trusts the caller.
func (m *MemoryClient) SignIn(ctx context.Context, keyPair *crypto.KeyPair) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &Session{
		PublicKey: crypto.PublicKeyString(keyPair.Public),
		Token:     uuid.NewString(),
	}, nil
}

// Len reports the number of stored objects.
func (m *MemoryClient) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
