package registry

import pack "github.com/meigma/bale/core"

// PullOption configures a Pull operation.
type PullOption func(*pullConfig)

type pullConfig struct {
	// maxIndexSize limits how many bytes are accepted for the index blob.
	maxIndexSize int64
	openOpts     []pack.OpenOption
}

// WithMaxIndexSize sets the maximum number of bytes allowed for the index
// blob. The default is pack.DefaultMaxIndexSize.
func WithMaxIndexSize(maxBytes int64) PullOption {
	return func(cfg *pullConfig) {
		cfg.maxIndexSize = maxBytes
	}
}

// WithOpenOptions passes options to pack.Open when the pulled pack is opened.
//
// The pack id defaults to the id recorded at push time.
func WithOpenOptions(opts ...pack.OpenOption) PullOption {
	return func(cfg *pullConfig) {
		cfg.openOpts = append(cfg.openOpts, opts...)
	}
}
