package bale

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	pack "github.com/meigma/bale/core"
	"github.com/meigma/bale/registry"
)

// Push publishes the pack directory dir to ref using a client built from
// opts. See [Client.Push].
func Push(ctx context.Context, ref, dir string, opts ...Option) (ocispec.Descriptor, error) {
	c, err := NewClient(opts...)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	return c.Push(ctx, ref, dir)
}

// Push publishes the pack directory dir to the registry.
//
// The ref must include a tag (e.g., "registry.com/packs/base:v1").
// Use [PushWithTags] to apply additional tags to the same manifest.
func (c *Client) Push(ctx context.Context, ref, dir string, opts ...PushOption) (ocispec.Descriptor, error) {
	cfg := pushConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	reg, tag, err := c.registryFor(ref)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	if tag == "" || isDigest(tag) {
		return ocispec.Descriptor{}, fmt.Errorf("%w: reference must include a tag", registry.ErrInvalidReference)
	}
	return reg.Push(ctx, dir, tag, cfg.registryOptions()...)
}

// BuildAndPush collects srcDir into the resource domain, builds a pack in a
// temporary directory, and pushes it to ref.
//
// This is the most common operation: build + push in one call.
func (c *Client) BuildAndPush(ctx context.Context, ref, domain, srcDir string, opts ...PushOption) (ocispec.Descriptor, error) {
	cfg := pushConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.packID == "" {
		abs, err := filepath.Abs(srcDir)
		if err != nil {
			return ocispec.Descriptor{}, err
		}
		opts = append(opts, PushWithPackID(filepath.Base(abs)))
	}

	resources, err := pack.CollectDir(domain, srcDir)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	tmp, err := os.MkdirTemp("", "bale-push-*")
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	defer os.RemoveAll(tmp)

	dir := filepath.Join(tmp, "pack")
	buildOpts := append([]pack.BuildOption{pack.BuildWithLogger(c.logger)}, cfg.buildOpts...)
	if _, err := pack.Build(ctx, dir, resources, buildOpts...); err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("build pack: %w", err)
	}
	c.log().Debug("built pack for push", "src", srcDir, "resources", len(resources))
	return c.Push(ctx, ref, dir, opts...)
}

// isDigest returns true if the reference is a digest (not a tag).
func isDigest(ref string) bool {
	// Digests contain a colon after the algorithm (e.g., "sha256:abc123...")
	return strings.Contains(ref, ":")
}
