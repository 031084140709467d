package pack

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/bale/fragment"
	"github.com/meigma/bale/internal/fsutil"
	"github.com/meigma/bale/rid"
)

// BuildResult describes a written pack.
type BuildResult struct {
	// Index is the index written to IndexFile.
	Index *Index
	// IndexFile is the path of the index file.
	IndexFile string
	// ChunkFiles lists the written chunk paths in index order. A chunk
	// stored as a fragment set is listed by its fragment directory.
	ChunkFiles []string
}

// Build writes a leaf pack for resources into destDir.
//
// The layout follows Calculate. Each chunk file is the concatenation of its
// resources' bytes; the index file is written last. Every file is replaced
// atomically, but the build as a whole is not: a failed build leaves
// partial output in destDir that callers must discard. Build must not run
// concurrently with readers of destDir.
//
// ctx is checked between resources.
func Build(ctx context.Context, destDir string, resources []Resource, opts ...BuildOption) (*BuildResult, error) {
	cfg := newBuildConfig(opts)
	layout, err := calculate(resources, &cfg)
	if err != nil {
		return nil, err
	}

	cfg.log().Info("building pack", "dir", destDir, "resources", len(resources), "chunks", len(layout.Chunks))

	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return nil, fmt.Errorf("create pack directory: %w", err)
	}

	entries := make(map[rid.ID]Entry, len(resources))
	result := &BuildResult{
		IndexFile:  filepath.Join(destDir, IndexFile),
		ChunkFiles: make([]string, 0, len(layout.Chunks)),
	}
	buf := make([]byte, 128*1024)
	for i := range layout.Chunks {
		c := &layout.Chunks[i]
		path := filepath.Join(destDir, ChunkName(c.Index))
		if err := writeChunk(ctx, path, c, entries, buf, &cfg); err != nil {
			return nil, fmt.Errorf("write chunk %d: %w", c.Index, err)
		}

		if cfg.fragmentOversized && c.Size > fragment.ChunkSize {
			set, err := fragment.Fragment(ctx, path, fragment.WithLogger(cfg.logger))
			if err != nil {
				return nil, fmt.Errorf("fragment chunk %d: %w", c.Index, err)
			}
			if err := os.Remove(path); err != nil {
				return nil, fmt.Errorf("remove fragmented chunk %d: %w", c.Index, err)
			}
			result.ChunkFiles = append(result.ChunkFiles, set.Dir)
			continue
		}
		result.ChunkFiles = append(result.ChunkFiles, path)
	}

	idx, err := NewIndex(entries)
	if err != nil {
		return nil, err
	}
	data, err := EncodeIndex(idx, cfg.indexCompression)
	if err != nil {
		return nil, err
	}
	if err := fsutil.WriteFileAtomic(result.IndexFile, data); err != nil {
		return nil, fmt.Errorf("write index file: %w", err)
	}
	result.Index = idx

	cfg.log().Info("built pack", "dir", destDir, "resources", idx.Len(), "chunks", idx.FileCount())
	return result, nil
}

func writeChunk(ctx context.Context, path string, c *Chunk, entries map[rid.ID]Entry, buf []byte, cfg *buildConfig) error {
	// Drop a fragment set left by an earlier build.
	if err := os.RemoveAll(fragment.Dir(path)); err != nil {
		return err
	}

	f, err := fsutil.CreateAtomic(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriterSize(f, len(buf))
	for _, p := range c.Placements {
		if err := ctx.Err(); err != nil {
			f.Abort()
			return err
		}
		dgst, err := copyResource(w, p, buf, cfg.digests)
		if err != nil {
			f.Abort()
			return fmt.Errorf("copy %s: %w", p.ID, err)
		}
		e := p.Entry
		e.Digest = dgst
		entries[p.ID] = e
		cfg.log().Debug("packed resource", "id", p.ID.String(), "chunk", c.Index, "offset", e.Offset, "size", e.Size)
	}
	if err := w.Flush(); err != nil {
		f.Abort()
		return err
	}
	return f.Commit()
}

// copyResource appends the source bytes of p to w and returns their digest
// when withDigest is set. The source must still have the planned size.
func copyResource(w io.Writer, p Placement, buf []byte, withDigest bool) (digest.Digest, error) {
	src, err := os.Open(p.Path) //nolint:gosec // caller-provided path is intentional
	if err != nil {
		return "", err
	}
	defer src.Close()

	var digester digest.Digester
	if withDigest {
		digester = digest.SHA256.Digester()
		w = io.MultiWriter(w, digester.Hash())
	}

	// Read one byte past the planned size to detect growth.
	n, err := io.CopyBuffer(w, io.LimitReader(src, int64(p.Size)+1), buf) //nolint:gosec // planned sizes come from file lengths
	if err != nil {
		return "", err
	}
	if uint64(n) != p.Size { //nolint:gosec // n is non-negative
		return "", fmt.Errorf("source %s changed size during build", p.Path)
	}
	if digester == nil {
		return "", nil
	}
	return digester.Digest(), nil
}
