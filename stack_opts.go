package bale

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	pack "github.com/meigma/bale/core"
)

// StackOption configures OpenStack.
type StackOption func(*stackConfig)

type stackConfig struct {
	id            string
	cacheSize     int
	negative      bool
	registerer    prometheus.Registerer
	defaultDomain string
	openOpts      []pack.OpenOption
	logger        *slog.Logger
}

// DefaultStackID is the id of the composite pack built by OpenStack.
const DefaultStackID = "stack"

// StackWithID sets the id of the composite pack.
func StackWithID(id string) StackOption {
	return func(cfg *stackConfig) {
		cfg.id = id
	}
}

// StackWithCacheSize sets the number of resources kept in the cache.
// Zero uses cache.DefaultSize.
func StackWithCacheSize(n int) StackOption {
	return func(cfg *stackConfig) {
		cfg.cacheSize = n
	}
}

// StackWithNegativeCache enables caching of not-found results.
func StackWithNegativeCache(enabled bool) StackOption {
	return func(cfg *stackConfig) {
		cfg.negative = enabled
	}
}

// StackWithRegisterer registers cache metrics with r.
func StackWithRegisterer(r prometheus.Registerer) StackOption {
	return func(cfg *stackConfig) {
		cfg.registerer = r
	}
}

// StackWithDefaultDomain sets the domain LoadName uses for names without one.
func StackWithDefaultDomain(domain string) StackOption {
	return func(cfg *stackConfig) {
		cfg.defaultDomain = domain
	}
}

// StackWithOpenOptions passes options to pack.Open for every layer.
//
// Options that set an id are ignored; each layer is named after its
// directory.
func StackWithOpenOptions(opts ...pack.OpenOption) StackOption {
	return func(cfg *stackConfig) {
		cfg.openOpts = append(cfg.openOpts, opts...)
	}
}

// StackWithLogger sets the logger for the stack, its packs, and its cache.
func StackWithLogger(logger *slog.Logger) StackOption {
	return func(cfg *stackConfig) {
		cfg.logger = logger
	}
}
