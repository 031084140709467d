package oras

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"oras.land/oras-go/v2/registry"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"
	"oras.land/oras-go/v2/registry/remote/retry"
)

// DefaultUserAgent is sent with every registry request unless overridden.
const DefaultUserAgent = "bale/1.0"

// Client opens remote repositories that share one authenticated HTTP client.
type Client struct {
	plainHTTP  bool
	userAgent  string
	anonymous  bool // skip credential lookup entirely
	credStore  credentials.Store
	authClient *auth.Client // shared auth client with token cache
	logger     *slog.Logger
}

// New creates a new client with the given options.
func New(opts ...Option) *Client {
	c := &Client{userAgent: DefaultUserAgent}
	for _, opt := range opts {
		opt(c)
	}

	c.authClient = &auth.Client{
		Client: retry.DefaultClient,
		Cache:  auth.NewCache(),
		Credential: func(ctx context.Context, hostport string) (auth.Credential, error) {
			if c.anonymous || c.credStore == nil {
				return auth.EmptyCredential, nil
			}
			return c.credStore.Get(ctx, hostport)
		},
		Header: http.Header{
			"User-Agent": []string{c.userAgent},
		},
	}
	return c
}

func (c *Client) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

// Repository opens the repository named by ref and returns it together with
// the parsed reference. The tag or digest of ref is not resolved.
func (c *Client) Repository(ref string) (*remote.Repository, registry.Reference, error) {
	parsed, err := ParseReference(ref)
	if err != nil {
		return nil, registry.Reference{}, err
	}
	repo, err := remote.NewRepository(parsed.Registry + "/" + parsed.Repository)
	if err != nil {
		return nil, registry.Reference{}, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	repo.PlainHTTP = c.plainHTTP
	repo.Client = c.authClient
	c.log().Debug("opened repository", "registry", parsed.Registry, "repository", parsed.Repository, "plain_http", c.plainHTTP)
	return repo, parsed, nil
}

// ParseReference parses a full reference into registry, repository, and
// tag or digest.
func ParseReference(ref string) (registry.Reference, error) {
	r, err := registry.ParseReference(ref)
	if err != nil {
		return registry.Reference{}, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	return r, nil
}
