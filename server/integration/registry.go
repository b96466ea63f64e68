package integration

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"

	"github.com/studyhallhq/studyhall/internal/lru"
	"github.com/studyhallhq/studyhall/internal/profile"
	"github.com/studyhallhq/studyhall/plugin/agent"
	"github.com/studyhallhq/studyhall/store"
)

// ClientFactory builds integration clients from stored credentials.
// Injected so tests can resolve against fakes.
type ClientFactory interface {
	Course(cred *store.IntegrationCredential) CourseClient
	Calendar(cred *store.IntegrationCredential) CalendarClient
	Notes(cred *store.IntegrationCredential) NotesClient
}

// Registry resolves a user's connected integrations into a
// request-scoped capability set. Bound clients are held in a bounded
// LRU keyed by credential identity, so rotating a credential yields a
// fresh client on the next request.
type Registry struct {
	creds   CredentialStore
	factory ClientFactory
	clients *lru.Cache[any]
}

// NewRegistry creates a registry with its injected client cache.
func NewRegistry(creds CredentialStore, factory ClientFactory, clients *lru.Cache[any]) *Registry {
	if clients == nil {
		clients = lru.New[any](64, 30*time.Minute)
	}
	return &Registry{
		creds:   creds,
		factory: factory,
		clients: clients,
	}
}

// ResolveOptions carries per-request credential overrides.
type ResolveOptions struct {
	// CanvasToken and CanvasBaseURL let a request supply Canvas access
	// inline, taking precedence over the stored credential.
	CanvasToken   string
	CanvasBaseURL string
}

// Resolve builds the capability set for a user. An integration without
// a credential is skipped silently; only storage failures surface as
// errors. The worst case is an empty set, never a failed resolution.
func (r *Registry) Resolve(ctx context.Context, userID int32) (*CapabilitySet, error) {
	return r.ResolveWithOptions(ctx, userID, ResolveOptions{})
}

// ResolveWithOptions is Resolve with per-request overrides applied.
func (r *Registry) ResolveWithOptions(ctx context.Context, userID int32, opts ResolveOptions) (*CapabilitySet, error) {
	set := newCapabilitySet()

	for _, kind := range Kinds() {
		cred, err := r.creds.GetIntegrationCredential(ctx, userID, string(kind))
		if err != nil {
			return nil, fmt.Errorf("failed to look up %s credential: %w", kind, err)
		}

		if kind == KindCanvas && opts.CanvasToken != "" {
			cred = &store.IntegrationCredential{
				UserID:      userID,
				Kind:        string(kind),
				AccessToken: opts.CanvasToken,
				BaseURL:     opts.CanvasBaseURL,
			}
		}
		if cred == nil {
			continue
		}

		caps, err := r.bind(userID, kind, cred)
		if err != nil {
			// A malformed credential disables its group, not the chat.
			slog.Warn("failed to bind integration",
				slog.String("kind", string(kind)),
				slog.Int64("user_id", int64(userID)),
				slog.String("error", err.Error()))
			continue
		}
		set.add(kind, caps)
	}

	return set, nil
}

// bind builds (or reuses) the kind's client and wraps it in its
// capability group.
func (r *Registry) bind(userID int32, kind Kind, cred *store.IntegrationCredential) ([]agent.Capability, error) {
	key := clientCacheKey(userID, kind, cred)

	switch kind {
	case KindCanvas:
		client, err := lruGetOrCreate(r.clients, key, func() (CourseClient, error) {
			return r.factory.Course(cred), nil
		})
		if err != nil {
			return nil, err
		}
		return CourseCapabilities(client), nil
	case KindCalendar:
		client, err := lruGetOrCreate(r.clients, key, func() (CalendarClient, error) {
			return r.factory.Calendar(cred), nil
		})
		if err != nil {
			return nil, err
		}
		return CalendarCapabilities(client), nil
	case KindNotion:
		client, err := lruGetOrCreate(r.clients, key, func() (NotesClient, error) {
			return r.factory.Notes(cred), nil
		})
		if err != nil {
			return nil, err
		}
		return NotesCapabilities(client), nil
	default:
		return nil, fmt.Errorf("unknown integration kind: %s", kind)
	}
}

// lruGetOrCreate adapts the untyped client cache to a concrete client
// type.
func lruGetOrCreate[T any](cache *lru.Cache[any], key string, create func() (T, error)) (T, error) {
	if v, ok := cache.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}
	created, err := create()
	if err != nil {
		var zero T
		return zero, err
	}
	cache.Set(key, created)
	return created, nil
}

// clientCacheKey fingerprints the credential so rotation invalidates
// the cached client.
func clientCacheKey(userID int32, kind Kind, cred *store.IntegrationCredential) string {
	sum := sha256.Sum256([]byte(cred.AccessToken + "|" + cred.BaseURL))
	return fmt.Sprintf("%d|%s|%s|%d", userID, kind, hex.EncodeToString(sum[:8]), cred.UpdatedTs)
}

// DefaultClientFactory builds real API clients.
type DefaultClientFactory struct {
	Profile *profile.Profile
}

// Course builds a Canvas client, falling back to the instance-wide
// base URL when the credential does not carry one.
func (f *DefaultClientFactory) Course(cred *store.IntegrationCredential) CourseClient {
	baseURL := cred.BaseURL
	if baseURL == "" && f.Profile != nil {
		baseURL = f.Profile.CanvasBaseURL
	}
	return NewCanvasClient(baseURL, cred.AccessToken)
}

// googleEndpoint avoids importing the google subpackage for two URLs.
var googleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.google.com/o/oauth2/auth",
	TokenURL: "https://oauth2.googleapis.com/token",
}

// Calendar builds a Google Calendar client whose token source renews
// expired access tokens when a refresh token is stored.
func (f *DefaultClientFactory) Calendar(cred *store.IntegrationCredential) CalendarClient {
	token := &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
	}
	if cred.ExpiresTs > 0 {
		token.Expiry = time.Unix(cred.ExpiresTs, 0)
	}

	var source oauth2.TokenSource
	if cred.RefreshToken != "" && f.Profile != nil && f.Profile.GoogleClientID != "" {
		conf := &oauth2.Config{
			ClientID:     f.Profile.GoogleClientID,
			ClientSecret: f.Profile.GoogleClientSecret,
			Endpoint:     googleEndpoint,
		}
		source = conf.TokenSource(context.Background(), token)
	} else {
		source = oauth2.StaticTokenSource(token)
	}
	return NewGoogleCalendarClient(source)
}

// Notes builds a Notion client.
func (f *DefaultClientFactory) Notes(cred *store.IntegrationCredential) NotesClient {
	return NewNotionClient(cred.AccessToken)
}
