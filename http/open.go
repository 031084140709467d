package http

import (
	"fmt"

	pack "github.com/meigma/bale/core"
)

// OpenOption configures Open.
type OpenOption func(*openConfig)

type openConfig struct {
	id           string
	maxIndexSize int64
	sourceOpts   []Option
	packOpts     []pack.Option
}

// OpenWithID sets the pack id. The default is the last path segment of
// the base URL.
func OpenWithID(id string) OpenOption {
	return func(cfg *openConfig) {
		cfg.id = id
	}
}

// OpenWithMaxIndexSize limits the size of the index file.
// Zero uses pack.DefaultMaxIndexSize.
func OpenWithMaxIndexSize(n int64) OpenOption {
	return func(cfg *openConfig) {
		cfg.maxIndexSize = n
	}
}

// OpenWithSourceOptions configures the underlying Source.
func OpenWithSourceOptions(opts ...Option) OpenOption {
	return func(cfg *openConfig) {
		cfg.sourceOpts = append(cfg.sourceOpts, opts...)
	}
}

// OpenWithPackOptions applies opts to the opened pack.
func OpenWithPackOptions(opts ...pack.Option) OpenOption {
	return func(cfg *openConfig) {
		cfg.packOpts = append(cfg.packOpts, opts...)
	}
}

// Open opens the leaf pack served at baseURL.
//
// Only the index file is downloaded; resources are read on demand with
// range requests. Unlike pack.Open, chunk lengths are not verified up front.
func Open(baseURL string, opts ...OpenOption) (*pack.Pack, error) {
	cfg := openConfig{maxIndexSize: pack.DefaultMaxIndexSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxIndexSize <= 0 {
		cfg.maxIndexSize = pack.DefaultMaxIndexSize
	}
	if cfg.id == "" {
		cfg.id = packID(baseURL)
	}

	src := NewSource(baseURL, cfg.sourceOpts...)
	data, err := src.readIndex(cfg.maxIndexSize)
	if err != nil {
		return nil, err
	}
	idx, err := pack.LoadIndex(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", src.FileURL(pack.IndexFile), err)
	}
	src.log().Info("opened remote pack", "url", baseURL, "id", cfg.id, "resources", idx.Len())
	return pack.NewLeaf(cfg.id, idx, src, cfg.packOpts...), nil
}
