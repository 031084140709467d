package bale

import (
	"context"
	"fmt"

	pack "github.com/meigma/bale/core"
	"github.com/meigma/bale/registry"
)

// Pull downloads the pack at ref into dir using a client built from opts.
// See [Client.Pull].
func Pull(ctx context.Context, ref, dir string, opts ...Option) (*pack.Pack, error) {
	c, err := NewClient(opts...)
	if err != nil {
		return nil, err
	}
	return c.Pull(ctx, ref, dir)
}

// Pull downloads the pack at ref into dir and opens it.
//
// The ref must include a tag or digest. Existing chunk and index files in dir
// are replaced.
func (c *Client) Pull(ctx context.Context, ref, dir string, opts ...PullOption) (*pack.Pack, error) {
	cfg := pullConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	reg, reference, err := c.registryFor(ref)
	if err != nil {
		return nil, err
	}
	if reference == "" {
		return nil, fmt.Errorf("%w: reference must include a tag or digest", registry.ErrInvalidReference)
	}
	c.log().Info("pulling from registry", "ref", ref)
	return reg.Pull(ctx, reference, dir, cfg.registryOptions()...)
}

// Fetch returns the manifest of the pack at ref without downloading blobs.
func (c *Client) Fetch(ctx context.Context, ref string) (*registry.PackManifest, error) {
	reg, reference, err := c.registryFor(ref)
	if err != nil {
		return nil, err
	}
	return reg.Fetch(ctx, reference)
}

// Tag applies tag to the manifest named by ref, in the same repository.
func (c *Client) Tag(ctx context.Context, ref, tag string) error {
	reg, reference, err := c.registryFor(ref)
	if err != nil {
		return err
	}
	return reg.Tag(ctx, reference, tag)
}
