package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2/content"

	pack "github.com/meigma/bale/core"
	"github.com/meigma/bale/fragment"
	"github.com/meigma/bale/internal/fsutil"
)

// Pull downloads the pack named by reference into dir and opens it.
//
// Every blob is verified against its descriptor while it is written. Chunk
// files are written first and the index last, each one atomically, so an
// interrupted pull never leaves an index that refers to missing chunks.
// An index already in dir is removed before any chunk is replaced, so dir
// holds no openable pack until the pull completes. Packs opened from dir
// earlier keep their old index and must not be used during the pull. Chunk
// fragment sets left in dir by earlier builds are removed.
func (c *Client) Pull(ctx context.Context, reference, dir string, opts ...PullOption) (*pack.Pack, error) {
	cfg := pullConfig{maxIndexSize: pack.DefaultMaxIndexSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	c.log().Info("pulling pack", "reference", reference, "dir", dir)
	m, err := c.Fetch(ctx, reference)
	if err != nil {
		return nil, err
	}

	indexDesc := m.IndexDescriptor()
	if cfg.maxIndexSize > 0 && indexDesc.Size > cfg.maxIndexSize {
		return nil, fmt.Errorf("read index blob: index blob too large: %d > %d", indexDesc.Size, cfg.maxIndexSize)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create pack directory: %w", err)
	}
	// A stale index must not describe the chunks written below.
	if err := os.Remove(filepath.Join(dir, pack.IndexFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("remove previous index: %w", err)
	}
	for i, desc := range m.ChunkDescriptors() {
		path := filepath.Join(dir, pack.ChunkName(uint8(i))) //nolint:gosec // parse bounds chunk layers by MaxChunks
		if err := os.RemoveAll(fragment.Dir(path)); err != nil {
			return nil, err
		}
		if err := c.fetchTo(ctx, desc, path); err != nil {
			return nil, fmt.Errorf("pull chunk %d: %w", i, err)
		}
	}
	if err := c.fetchTo(ctx, indexDesc, filepath.Join(dir, pack.IndexFile)); err != nil {
		return nil, fmt.Errorf("pull index blob: %w", err)
	}
	c.log().Info("pulled pack", "reference", reference, "digest", m.Digest().String(), "bytes", m.Size())

	var openOpts []pack.OpenOption
	if id := m.PackID(); id != "" {
		openOpts = append(openOpts, pack.OpenWithID(id))
	}
	openOpts = append(openOpts, cfg.openOpts...)
	return pack.Open(dir, openOpts...)
}

// fetchTo streams the blob described by desc into path, verifying its size
// and digest before the file replaces path.
func (c *Client) fetchTo(ctx context.Context, desc ocispec.Descriptor, path string) error {
	rc, err := c.target.Fetch(ctx, desc)
	if err != nil {
		return mapOCIError(err)
	}
	defer rc.Close()

	f, err := fsutil.CreateAtomic(path)
	if err != nil {
		return err
	}
	vr := content.NewVerifyReader(rc, desc)
	if _, err := io.Copy(f, vr); err != nil {
		f.Abort()
		return mapOCIError(err)
	}
	if err := vr.Verify(); err != nil {
		f.Abort()
		return mapOCIError(err)
	}
	if err := f.Commit(); err != nil {
		return err
	}
	c.log().Debug("fetched blob", "digest", desc.Digest.String(), "path", path, "size", desc.Size)
	return nil
}
