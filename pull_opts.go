package bale

import (
	pack "github.com/meigma/bale/core"
	"github.com/meigma/bale/registry"
)

// PullOption configures a Pull operation.
type PullOption func(*pullConfig)

type pullConfig struct {
	maxIndexSize int64
	openOpts     []pack.OpenOption
}

// PullWithMaxIndexSize limits the size of the index blob.
// Zero keeps the default of pack.DefaultMaxIndexSize.
func PullWithMaxIndexSize(maxBytes int64) PullOption {
	return func(cfg *pullConfig) {
		cfg.maxIndexSize = maxBytes
	}
}

// PullWithOpenOptions passes options to pack.Open for the pulled pack.
func PullWithOpenOptions(opts ...pack.OpenOption) PullOption {
	return func(cfg *pullConfig) {
		cfg.openOpts = append(cfg.openOpts, opts...)
	}
}

func (cfg *pullConfig) registryOptions() []registry.PullOption {
	var opts []registry.PullOption
	if cfg.maxIndexSize > 0 {
		opts = append(opts, registry.WithMaxIndexSize(cfg.maxIndexSize))
	}
	if len(cfg.openOpts) > 0 {
		opts = append(opts, registry.WithOpenOptions(cfg.openOpts...))
	}
	return opts
}
