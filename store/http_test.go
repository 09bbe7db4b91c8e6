package store

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/pkmsg/crypto"
)

// newTestHomeserver runs a minimal homeserver over an in-memory object map.
func newTestHomeserver(t *testing.T) (*httptest.Server, map[string][]byte) {
	t.Helper()
	objects := make(map[string][]byte)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/session" && r.Method == http.MethodPost {
			var req signInRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

			pub, err := crypto.ParsePublicKey(req.PublicKey)
			require.NoError(t, err)

			raw, err := hex.DecodeString(req.Signature)
			require.NoError(t, err)
			var sig crypto.Signature
			copy(sig[:], raw)

			challenge := "signin:" + req.PublicKey + ":" + strconv.FormatInt(req.Timestamp, 10)
			if !crypto.Verify([]byte(challenge), sig, pub) {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(signInResponse{Token: "test-token"})
			return
		}

		key := strings.TrimPrefix(r.URL.Path, "/")
		switch r.Method {
		case http.MethodGet:
			if strings.HasSuffix(key, "/") {
				var lines []string
				for stored := range objects {
					if strings.HasPrefix(stored, key) {
						lines = append(lines, "pubky://"+stored)
					}
				}
				io.WriteString(w, strings.Join(lines, "\n"))
				return
			}
			body, ok := objects[key]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write(body)
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			objects[key] = body
		case http.MethodDelete:
			delete(objects, key)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(server.Close)
	return server, objects
}

func TestHTTPClientVerbs(t *testing.T) {
	server, objects := newTestHomeserver(t)
	ctx := context.Background()
	client := NewHTTPClient(server.URL)

	uri := URI("aa11", "/notes/1.json")
	require.NoError(t, client.Put(ctx, uri, []byte(`{"v":1}`)))
	assert.Equal(t, []byte(`{"v":1}`), objects["aa11/notes/1.json"])

	body, err := client.Get(ctx, uri)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"v":1}`), body)

	uris, err := client.List(ctx, URI("aa11", "/notes/"))
	require.NoError(t, err)
	assert.Equal(t, []string{"pubky://aa11/notes/1.json"}, uris)

	require.NoError(t, client.Delete(ctx, uri))
	_, err = client.Get(ctx, uri)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHTTPClientSignIn(t *testing.T) {
	server, _ := newTestHomeserver(t)
	keyPair, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	client := NewHTTPClient(server.URL)
	session, err := client.SignIn(context.Background(), keyPair)
	require.NoError(t, err)
	assert.Equal(t, "test-token", session.Token)
	assert.Equal(t, crypto.PublicKeyString(keyPair.Public), session.PublicKey)
}
