package social

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/pkmsg/crypto"
	"github.com/opd-ai/pkmsg/store"
)

const (
	// followsPath is each account's newline-delimited follow list.
	followsPath = "/follows/"
	// profilePath is each account's public profile object.
	profilePath = "/profile.json"
)

// Link is one external link on a public profile.
type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Profile is the public profile object an account publishes about itself.
type Profile struct {
	Name   string  `json:"name"`
	Bio    *string `json:"bio,omitempty"`
	Image  *string `json:"image,omitempty"`
	Links  []Link  `json:"links,omitempty"`
	Status *string `json:"status,omitempty"`
}

// FollowedUser pairs a follow target with its resolved display name.
// Name is nil when no profile could be resolved.
type FollowedUser struct {
	Name      *string `json:"name"`
	PublicKey string  `json:"public_key"`
}

// Directory reads the social graph of one signed-in account.
type Directory struct {
	client  store.Client
	keyPair *crypto.KeyPair
}

// NewDirectory creates a Directory for the given identity.
func NewDirectory(client store.Client, keyPair *crypto.KeyPair) *Directory {
	return &Directory{client: client, keyPair: keyPair}
}

// ListFollows returns the public keys of every account the local user
// follows. An absent or unreadable follow list is an empty graph, not an
// error.
func (d *Directory) ListFollows(ctx context.Context) ([]string, error) {
	uri := store.URI(crypto.PublicKeyString(d.keyPair.Public), followsPath)

	body, err := d.client.Get(ctx, uri)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logrus.WithFields(logrus.Fields{
				"function": "ListFollows",
				"error":    err.Error(),
			}).Warn("Failed to fetch follow list, treating as empty")
		}
		return nil, nil
	}

	var targets []string
	for _, line := range strings.Split(string(body), "\n") {
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		targets = append(targets, store.LastSegment(line))
	}

	logrus.WithFields(logrus.Fields{
		"function": "ListFollows",
		"count":    len(targets),
	}).Debug("Follow list fetched")

	return targets, nil
}

// FetchProfile retrieves and parses one account's public profile.
func (d *Directory) FetchProfile(ctx context.Context, publicKey string) (*Profile, error) {
	body, err := d.client.Get(ctx, store.URI(publicKey, profilePath))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}

	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	return &profile, nil
}

// OwnProfileName returns the local account's published display name, or
// empty when no profile exists.
func (d *Directory) OwnProfileName(ctx context.Context) (string, error) {
	profile, err := d.FetchProfile(ctx, crypto.PublicKeyString(d.keyPair.Public))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return profile.Name, nil
}

// ResolveProfiles fetches every target's profile concurrently and returns
// one FollowedUser per target, in input order. Targets whose profile fetch
// or parse fails keep their slot with a nil name; the call completes only
// when all fetches have finished.
func (d *Directory) ResolveProfiles(ctx context.Context, targets []string) []FollowedUser {
	users := make([]FollowedUser, len(targets))

	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target string) {
			defer wg.Done()

			users[i] = FollowedUser{PublicKey: target}
			profile, err := d.FetchProfile(ctx, target)
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"function":   "ResolveProfiles",
					"key_prefix": keyPrefix(target),
					"error":      err.Error(),
				}).Debug("No resolvable profile for follow target")
				return
			}
			users[i].Name = &profile.Name
		}(i, target)
	}
	wg.Wait()

	resolved := 0
	for _, u := range users {
		if u.Name != nil {
			resolved++
		}
	}
	logrus.WithFields(logrus.Fields{
		"function": "ResolveProfiles",
		"targets":  len(targets),
		"resolved": resolved,
		"unnamed":  len(targets) - resolved,
	}).Info("Follow profiles resolved")

	return users
}

// FollowedUsers lists the follow graph with profiles resolved.
func (d *Directory) FollowedUsers(ctx context.Context) ([]FollowedUser, error) {
	targets, err := d.ListFollows(ctx)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, nil
	}
	return d.ResolveProfiles(ctx, targets), nil
}

func keyPrefix(key string) string {
	if len(key) > 8 {
		return key[:8]
	}
	return key
}
