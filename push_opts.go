package bale

import (
	"maps"

	pack "github.com/meigma/bale/core"
	"github.com/meigma/bale/registry"
)

// PushOption configures a Push or BuildAndPush operation.
type PushOption func(*pushConfig)

type pushConfig struct {
	tags        []string
	annotations map[string]string
	packID      string
	buildOpts   []pack.BuildOption
}

// PushWithTags applies additional tags to the pushed manifest.
//
// The primary tag from the ref is always applied. These tags are applied
// after the initial push succeeds.
func PushWithTags(tags ...string) PushOption {
	return func(cfg *pushConfig) {
		cfg.tags = append(cfg.tags, tags...)
	}
}

// PushWithAnnotations sets custom annotations on the manifest.
//
// Standard annotations like org.opencontainers.image.created are set
// automatically and can be overridden.
func PushWithAnnotations(annotations map[string]string) PushOption {
	return func(cfg *pushConfig) {
		if cfg.annotations == nil {
			cfg.annotations = make(map[string]string)
		}
		maps.Copy(cfg.annotations, annotations)
	}
}

// PushWithPackID records id as the pack id in the manifest.
// The default is the base name of the pack or source directory.
func PushWithPackID(id string) PushOption {
	return func(cfg *pushConfig) {
		cfg.packID = id
	}
}

// --- Pack build options (for BuildAndPush, not Push) ---

// PushWithBuildOptions passes options to pack.Build.
func PushWithBuildOptions(opts ...pack.BuildOption) PushOption {
	return func(cfg *pushConfig) {
		cfg.buildOpts = append(cfg.buildOpts, opts...)
	}
}

func (cfg *pushConfig) registryOptions() []registry.PushOption {
	var opts []registry.PushOption
	if len(cfg.tags) > 0 {
		opts = append(opts, registry.WithTags(cfg.tags...))
	}
	if len(cfg.annotations) > 0 {
		opts = append(opts, registry.WithAnnotations(cfg.annotations))
	}
	if cfg.packID != "" {
		opts = append(opts, registry.WithPackID(cfg.packID))
	}
	return opts
}
