package registry

import (
	"context"
	"encoding/json"
	"fmt"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2/content"
)

// maxManifestSize bounds the manifest bytes read by Fetch.
const maxManifestSize = 4 << 20

// Fetch resolves reference, a tag or digest, and returns the pack manifest
// without downloading any blobs.
func (c *Client) Fetch(ctx context.Context, reference string) (*PackManifest, error) {
	if reference == "" {
		return nil, fmt.Errorf("%w: reference must include a tag or digest", ErrInvalidReference)
	}

	desc, err := c.target.Resolve(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", reference, mapOCIError(err))
	}
	c.log().Debug("resolved reference", "reference", reference, "digest", desc.Digest.String())

	if desc.MediaType != "" && desc.MediaType != ocispec.MediaTypeImageManifest {
		return nil, fmt.Errorf("%w: unsupported media type %s", ErrInvalidManifest, desc.MediaType)
	}
	if desc.Size > maxManifestSize {
		return nil, fmt.Errorf("%w: manifest is %d bytes, limit is %d", ErrInvalidManifest, desc.Size, maxManifestSize)
	}

	raw, err := content.FetchAll(ctx, c.target, desc)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest: %w", mapOCIError(err))
	}
	var manifest ocispec.Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	return parsePackManifest(&manifest, desc)
}
