package pack

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/meigma/bale/core/internal/platform"
	"github.com/meigma/bale/core/internal/sizing"
	"github.com/meigma/bale/fragment"
	"github.com/meigma/bale/retention"
)

// IndexFile names the index file inside a pack directory.
const IndexFile = "index"

// DefaultMaxIndexSize bounds the index file size read by Open.
const DefaultMaxIndexSize = 64 << 20

// openConfig holds configuration for Open.
type openConfig struct {
	id           string
	policy       retention.Policy
	maxIndexSize uint64
	packOpts     []Option
}

// OpenOption configures Open.
type OpenOption func(*openConfig)

// OpenWithID sets the pack id. The default is the directory base name.
func OpenWithID(id string) OpenOption {
	return func(cfg *openConfig) {
		cfg.id = id
	}
}

// OpenWithRetention sets the policy used to open chunk files.
// The default is retention.NoRetention, which is safe for concurrent reads.
func OpenWithRetention(p retention.Policy) OpenOption {
	return func(cfg *openConfig) {
		cfg.policy = p
	}
}

// OpenWithMaxIndexSize limits the size of the index file.
// Zero uses DefaultMaxIndexSize.
func OpenWithMaxIndexSize(n uint64) OpenOption {
	return func(cfg *openConfig) {
		cfg.maxIndexSize = n
	}
}

// OpenWithPackOptions applies opts to the opened pack.
func OpenWithPackOptions(opts ...Option) OpenOption {
	return func(cfg *openConfig) {
		cfg.packOpts = append(cfg.packOpts, opts...)
	}
}

// Open opens the leaf pack stored in dir.
//
// It loads the index file and verifies that every chunk file the index
// refers to exists and is long enough for its entries. Chunks may be stored
// plain or as fragment sets. Problems with the directory contents are
// reported as ErrFormat.
func Open(dir string, opts ...OpenOption) (*Pack, error) {
	cfg := openConfig{maxIndexSize: DefaultMaxIndexSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxIndexSize == 0 {
		cfg.maxIndexSize = DefaultMaxIndexSize
	}
	if cfg.id == "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, err
		}
		cfg.id = filepath.Base(abs)
	}

	data, err := readIndexFile(dir, cfg.maxIndexSize)
	if err != nil {
		return nil, err
	}
	idx, err := LoadIndex(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filepath.Join(dir, IndexFile), err)
	}

	src := NewDirSource(dir, cfg.policy)
	if err := verifyChunks(idx, src); err != nil {
		return nil, err
	}
	return NewLeaf(cfg.id, idx, src, cfg.packOpts...), nil
}

func readIndexFile(dir string, limit uint64) ([]byte, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("open pack directory: %w", err)
	}
	defer root.Close()

	f, _, err := platform.OpenRegular(root, IndexFile)
	if err != nil {
		if errors.Is(err, platform.ErrNotRegular) || errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrFormat, filepath.Join(dir, IndexFile), err)
		}
		return nil, fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()

	data, err := sizing.ReadAll(f, limit, ErrSizeOverflow)
	if err != nil {
		if errors.Is(err, ErrSizeOverflow) {
			return nil, fmt.Errorf("%w: index file exceeds %d bytes", ErrFormat, limit)
		}
		return nil, fmt.Errorf("read index file: %w", err)
	}
	return data, nil
}

func verifyChunks(idx *Index, src *DirSource) error {
	for i, need := range idx.ChunkExtents() {
		n, err := src.ChunkLen(uint8(i)) //nolint:gosec // FileCount never exceeds MaxChunks
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%w: missing chunk %d in %s: %w", ErrFormat, i, src.Dir(), err)
			}
			if errors.Is(err, fragment.ErrCorrupt) {
				return fmt.Errorf("%w: chunk %d in %s: %w", ErrFormat, i, src.Dir(), err)
			}
			return fmt.Errorf("stat chunk %d: %w", i, err)
		}
		if n < need {
			return fmt.Errorf("%w: chunk %d in %s is %d bytes, index needs %d", ErrFormat, i, src.Dir(), n, need)
		}
	}
	return nil
}
