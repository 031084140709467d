package bale

import (
	"fmt"
	"log/slog"

	"github.com/meigma/bale/registry"
	"github.com/meigma/bale/registry/oras"
)

// Client pushes and pulls packs to and from OCI registries.
type Client struct {
	// orasOpts are options for the underlying ORAS client.
	orasOpts []oras.Option
	logger   *slog.Logger

	oras *oras.Client
}

// NewClient creates a new pack client with the given options.
//
// If no authentication is configured, anonymous access is used.
// Use [WithDockerConfig] to read credentials from ~/.docker/config.json.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	orasOpts := c.orasOpts
	if c.logger != nil {
		orasOpts = append(orasOpts, oras.WithLogger(c.logger))
	}
	c.oras = oras.New(orasOpts...)
	return c, nil
}

// log returns the logger, falling back to a discard logger if nil.
func (c *Client) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

// registryFor opens the repository named by ref and returns a registry
// client for it along with the tag or digest part of ref.
func (c *Client) registryFor(ref string) (*registry.Client, string, error) {
	repo, parsed, err := c.oras.Repository(ref)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", registry.ErrInvalidReference, err)
	}
	return registry.New(repo, registry.WithLogger(c.logger)), parsed.Reference, nil
}
