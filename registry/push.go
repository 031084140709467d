package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/errdef"
	orasreg "oras.land/oras-go/v2/registry"

	pack "github.com/meigma/bale/core"
)

// Push publishes the pack stored in dir and tags it.
//
// The pack is opened and verified first. Blobs already present in the target
// are not uploaded again. The returned descriptor identifies the pushed
// manifest.
func (c *Client) Push(ctx context.Context, dir, tag string, opts ...PushOption) (ocispec.Descriptor, error) {
	cfg := pushConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := validateTag(tag); err != nil {
		return ocispec.Descriptor{}, err
	}
	for _, t := range cfg.tags {
		if err := validateTag(t); err != nil {
			return ocispec.Descriptor{}, err
		}
	}

	openOpts := []pack.OpenOption{}
	if cfg.packID != "" {
		openOpts = append(openOpts, pack.OpenWithID(cfg.packID))
	}
	p, err := pack.Open(dir, openOpts...)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	c.log().Info("pushing pack", "dir", dir, "pack", p.ID(), "tag", tag, "chunks", p.Index().FileCount())

	// Step 1: Push index blob
	indexData, err := os.ReadFile(filepath.Join(dir, pack.IndexFile))
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("read index: %w", err)
	}
	indexDesc := content.NewDescriptorFromBytes(MediaTypeIndex, indexData)
	indexDesc.Annotations = map[string]string{ocispec.AnnotationTitle: pack.IndexFile}
	if err := c.pushBlob(ctx, indexDesc, func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(indexData)), nil
	}); err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("push index blob: %w", err)
	}

	// Step 2: Push chunk blobs in chunk order
	layers := []ocispec.Descriptor{indexDesc}
	src := pack.NewDirSource(dir, nil)
	for i := range p.Index().FileCount() {
		chunk := uint8(i) //nolint:gosec // FileCount never exceeds MaxChunks
		desc, err := chunkDescriptor(src, chunk)
		if err != nil {
			return ocispec.Descriptor{}, fmt.Errorf("describe chunk %d: %w", chunk, err)
		}
		if err := c.pushBlob(ctx, desc, func() (io.ReadCloser, error) {
			return src.OpenChunk(chunk)
		}); err != nil {
			return ocispec.Descriptor{}, fmt.Errorf("push chunk %d: %w", chunk, err)
		}
		layers = append(layers, desc)
	}

	// Step 3: Pack and push the manifest
	annotations := map[string]string{
		AnnotationPackID:    p.ID(),
		AnnotationResources: strconv.Itoa(p.Index().Len()),
	}
	for k, v := range cfg.annotations {
		annotations[k] = v
	}
	manifestDesc, err := oras.PackManifest(ctx, c.target, oras.PackManifestVersion1_1, ArtifactType, oras.PackManifestOptions{
		Layers:              layers,
		ManifestAnnotations: annotations,
	})
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("push manifest: %w", mapOCIError(err))
	}

	// Step 4: Apply tags
	for _, t := range append([]string{tag}, cfg.tags...) {
		if err := c.target.Tag(ctx, manifestDesc, t); err != nil {
			return ocispec.Descriptor{}, fmt.Errorf("tag %q: %w", t, mapOCIError(err))
		}
	}

	c.log().Info("pushed pack", "pack", p.ID(), "tag", tag, "digest", manifestDesc.Digest.String())
	return manifestDesc, nil
}

// pushBlob uploads the blob described by desc unless the target has it.
func (c *Client) pushBlob(ctx context.Context, desc ocispec.Descriptor, open func() (io.ReadCloser, error)) error {
	exists, err := c.target.Exists(ctx, desc)
	if err != nil {
		return mapOCIError(err)
	}
	if exists {
		c.log().Debug("blob exists", "digest", desc.Digest.String(), "size", desc.Size)
		return nil
	}

	rc, err := open()
	if err != nil {
		return err
	}
	defer rc.Close()
	if err := c.target.Push(ctx, desc, rc); err != nil && !errors.Is(err, errdef.ErrAlreadyExists) {
		return mapOCIError(err)
	}
	c.log().Debug("pushed blob", "digest", desc.Digest.String(), "size", desc.Size)
	return nil
}

// chunkDescriptor digests chunk i of src. Fragmented chunks are read through
// their fragment set.
func chunkDescriptor(src *pack.DirSource, i uint8) (ocispec.Descriptor, error) {
	rc, err := src.OpenChunk(i)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	defer rc.Close()

	digester := digest.Canonical.Digester()
	n, err := io.Copy(digester.Hash(), rc)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	return ocispec.Descriptor{
		MediaType: MediaTypeChunk,
		Digest:    digester.Digest(),
		Size:      n,
		Annotations: map[string]string{
			AnnotationChunk:         strconv.Itoa(int(i)),
			ocispec.AnnotationTitle: pack.ChunkName(i),
		},
	}, nil
}

// validateTag reports whether tag can name a manifest.
func validateTag(tag string) error {
	if tag == "" {
		return fmt.Errorf("%w: empty tag", ErrInvalidReference)
	}
	if err := (orasreg.Reference{Reference: tag}).ValidateReferenceAsTag(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidReference, err)
	}
	return nil
}
