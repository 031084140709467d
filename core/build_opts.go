package pack

import "log/slog"

// buildConfig holds configuration for Calculate and Build.
type buildConfig struct {
	keyFunc           KeyFunc
	maxChunkSize      uint64
	indexCompression  Compression
	digests           bool
	fragmentOversized bool
	logger            *slog.Logger
}

func newBuildConfig(opts []BuildOption) buildConfig {
	cfg := buildConfig{keyFunc: CategoryKey, digests: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.keyFunc == nil {
		cfg.keyFunc = CategoryKey
	}
	return cfg
}

func (c *buildConfig) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

// BuildOption configures Calculate and Build.
type BuildOption func(*buildConfig)

// BuildWithKeyFunc sets the grouping key. Resources with equal keys share a
// chunk. The default is CategoryKey.
func BuildWithKeyFunc(fn KeyFunc) BuildOption {
	return func(cfg *buildConfig) {
		cfg.keyFunc = fn
	}
}

// BuildWithMaxChunkSize lets consecutive groups share a chunk while the
// chunk stays within n bytes. A group is never split, so a single group
// larger than n gets a chunk of its own. Zero (the default) gives every
// group its own chunk.
func BuildWithMaxChunkSize(n uint64) BuildOption {
	return func(cfg *buildConfig) {
		cfg.maxChunkSize = n
	}
}

// BuildWithIndexCompression sets how the index file is framed.
// The default is CompressionNone.
func BuildWithIndexCompression(c Compression) BuildOption {
	return func(cfg *buildConfig) {
		cfg.indexCompression = c
	}
}

// BuildWithDigests controls whether Build records a SHA-256 digest for
// every resource (default: true). Leaf packs verify recorded digests on
// every load.
func BuildWithDigests(enabled bool) BuildOption {
	return func(cfg *buildConfig) {
		cfg.digests = enabled
	}
}

// BuildWithFragmentOversized stores every chunk larger than
// fragment.ChunkSize as a fragment set instead of a single file.
func BuildWithFragmentOversized(enabled bool) BuildOption {
	return func(cfg *buildConfig) {
		cfg.fragmentOversized = enabled
	}
}

// BuildWithLogger sets the logger for build progress.
func BuildWithLogger(logger *slog.Logger) BuildOption {
	return func(cfg *buildConfig) {
		cfg.logger = logger
	}
}
