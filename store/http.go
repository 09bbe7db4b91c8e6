package store

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/pkmsg/crypto"
)

// HTTPClient talks to a homeserver that exposes account object trees over
// plain HTTP. Object URIs map onto the server as
// <base>/<public-key><path>; listing a prefix returns a newline-delimited
// body of object URIs.
type HTTPClient struct {
	base string
	http *http.Client

	mu    sync.RWMutex
	token string
}

// signInRequest is the sign-in handshake payload. The signature covers
// "signin:<public-key>:<timestamp>" under the account's identity key.
type signInRequest struct {
	PublicKey string `json:"public_key"`
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature"`
}

type signInResponse struct {
	Token string `json:"token"`
}

// NewHTTPClient creates a store client for the homeserver at base,
// e.g. "https://homeserver.example.org".
func NewHTTPClient(base string) *HTTPClient {
	return &HTTPClient{
		base: strings.TrimSuffix(base, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// objectURL translates a pubky URI into the homeserver's HTTP URL.
func (c *HTTPClient) objectURL(uri string) (string, error) {
	publicKey, path, err := SplitURI(uri)
	if err != nil {
		return "", err
	}
	return c.base + "/" + publicKey + path, nil
}

func (c *HTTPClient) do(ctx context.Context, method, uri string, body []byte) (*http.Response, error) {
	url, err := c.objectURL(uri)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	return c.http.Do(req)
}

// Get implements Client.Get.
func (c *HTTPClient) Get(ctx context.Context, uri string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: GET %s returned %s", ErrRequestFailed, uri, resp.Status)
	}

	return io.ReadAll(resp.Body)
}

// Put implements Client.Put.
func (c *HTTPClient) Put(ctx context.Context, uri string, body []byte) error {
	resp, err := c.do(ctx, http.MethodPut, uri, body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: PUT %s returned %s", ErrRequestFailed, uri, resp.Status)
	}
	return nil
}

// List implements Client.List. The homeserver answers a prefix GET with a
// newline-delimited list of object URIs; a missing prefix lists empty.
func (c *HTTPClient) List(ctx context.Context, prefix string) ([]string, error) {
	resp, err := c.do(ctx, http.MethodGet, prefix, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: LIST %s returned %s", ErrRequestFailed, prefix, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	var uris []string
	for _, line := range strings.Split(string(body), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			uris = append(uris, line)
		}
	}
	return uris, nil
}

// Delete implements Client.Delete.
func (c *HTTPClient) Delete(ctx context.Context, uri string) error {
	resp, err := c.do(ctx, http.MethodDelete, uri, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: DELETE %s returned %s", ErrRequestFailed, uri, resp.Status)
	}
	return nil
}

// SignIn implements Client.SignIn. The handshake proves control of the
// identity key by signing a timestamped challenge; the returned token is
// attached to subsequent requests.
func (c *HTTPClient) SignIn(ctx context.Context, keyPair *crypto.KeyPair) (*Session, error) {
	publicKey := crypto.PublicKeyString(keyPair.Public)
	timestamp := time.Now().Unix()

	challenge := fmt.Sprintf("signin:%s:%d", publicKey, timestamp)
	signature, err := crypto.Sign([]byte(challenge), keyPair)
	if err != nil {
		return nil, fmt.Errorf("failed to sign challenge: %w", err)
	}

	payload, err := json.Marshal(signInRequest{
		PublicKey: publicKey,
		Timestamp: timestamp,
		Signature: hex.EncodeToString(signature[:]),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode sign-in request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/session", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build sign-in request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: sign-in returned %s", ErrRequestFailed, resp.Status)
	}

	var out signInResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode sign-in response: %w", err)
	}

	c.mu.Lock()
	c.token = out.Token
	c.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":   "SignIn",
		"key_prefix": publicKey[:8],
	}).Info("Homeserver session established")

	return &Session{PublicKey: publicKey, Token: out.Token}, nil
}
