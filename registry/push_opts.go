package registry

import "maps"

// PushOption configures a Push operation.
type PushOption func(*pushConfig)

type pushConfig struct {
	tags        []string
	annotations map[string]string
	packID      string
}

// WithTags applies additional tags to the pushed manifest.
//
// The primary tag is always applied first. These tags are applied after the
// manifest is pushed.
func WithTags(tags ...string) PushOption {
	return func(cfg *pushConfig) {
		cfg.tags = append(cfg.tags, tags...)
	}
}

// WithAnnotations sets custom annotations on the manifest.
//
// Standard annotations like org.opencontainers.image.created are set
// automatically and can be overridden.
func WithAnnotations(annotations map[string]string) PushOption {
	return func(cfg *pushConfig) {
		if cfg.annotations == nil {
			cfg.annotations = make(map[string]string)
		}
		maps.Copy(cfg.annotations, annotations)
	}
}

// WithPackID records id as the pack id in the manifest. The default is the
// base name of the pack directory.
func WithPackID(id string) PushOption {
	return func(cfg *pushConfig) {
		cfg.packID = id
	}
}
