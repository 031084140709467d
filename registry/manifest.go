package registry

import (
	"fmt"
	"strconv"
	"time"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	pack "github.com/meigma/bale/core"
)

// PackManifest wraps the OCI manifest of a pushed pack.
type PackManifest struct {
	raw     ocispec.Manifest
	desc    ocispec.Descriptor
	index   ocispec.Descriptor
	chunks  []ocispec.Descriptor
	created time.Time
}

// Descriptor returns the manifest descriptor.
func (m *PackManifest) Descriptor() ocispec.Descriptor {
	return m.desc
}

// Digest returns the manifest digest.
func (m *PackManifest) Digest() digest.Digest {
	return m.desc.Digest
}

// IndexDescriptor returns the descriptor for the index blob.
func (m *PackManifest) IndexDescriptor() ocispec.Descriptor {
	return m.index
}

// ChunkDescriptors returns the chunk blob descriptors in chunk order.
func (m *PackManifest) ChunkDescriptors() []ocispec.Descriptor {
	return m.chunks
}

// PackID returns the id the pack was pushed with, or "" if unknown.
func (m *PackManifest) PackID() string {
	return m.raw.Annotations[AnnotationPackID]
}

// Size returns the total size of the index and chunk blobs.
func (m *PackManifest) Size() int64 {
	n := m.index.Size
	for _, c := range m.chunks {
		n += c.Size
	}
	return n
}

// Annotations returns the manifest annotations.
func (m *PackManifest) Annotations() map[string]string {
	return m.raw.Annotations
}

// Created returns the creation timestamp from annotations.
//
// Returns zero time if the annotation is not present or cannot be parsed.
func (m *PackManifest) Created() time.Time {
	return m.created
}

// Raw returns the underlying OCI manifest.
func (m *PackManifest) Raw() ocispec.Manifest {
	return m.raw
}

// parsePackManifest validates an OCI manifest as a pack manifest.
//
// The index layer comes first, followed by one layer per chunk whose
// AnnotationChunk values count up from zero.
func parsePackManifest(manifest *ocispec.Manifest, desc ocispec.Descriptor) (*PackManifest, error) {
	if manifest.MediaType != ocispec.MediaTypeImageManifest {
		return nil, fmt.Errorf("%w: unexpected manifest media type %q", ErrInvalidManifest, manifest.MediaType)
	}
	if manifest.ArtifactType != ArtifactType {
		return nil, fmt.Errorf("%w: unexpected artifact type %q", ErrInvalidManifest, manifest.ArtifactType)
	}
	if len(manifest.Layers) == 0 || manifest.Layers[0].MediaType != MediaTypeIndex {
		return nil, ErrMissingIndex
	}
	chunks := manifest.Layers[1:]
	if len(chunks) > pack.MaxChunks {
		return nil, fmt.Errorf("%w: %d chunk layers, at most %d allowed", ErrInvalidManifest, len(chunks), pack.MaxChunks)
	}
	for i, layer := range chunks {
		if layer.MediaType != MediaTypeChunk {
			return nil, fmt.Errorf("%w: layer %d has media type %q", ErrInvalidManifest, i+1, layer.MediaType)
		}
		n, err := strconv.Atoi(layer.Annotations[AnnotationChunk])
		if err != nil || n != i {
			return nil, fmt.Errorf("%w: layer %d is not chunk %d", ErrInvalidManifest, i+1, i)
		}
	}
	for _, layer := range manifest.Layers {
		if err := layer.Digest.Validate(); err != nil {
			return nil, fmt.Errorf("%w: invalid layer digest %q: %w", ErrInvalidManifest, layer.Digest, err)
		}
		if layer.Size < 0 {
			return nil, fmt.Errorf("%w: negative layer size %d", ErrInvalidManifest, layer.Size)
		}
	}

	var created time.Time
	if ts, ok := manifest.Annotations[ocispec.AnnotationCreated]; ok {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			created = t
		}
	}

	return &PackManifest{
		raw:     *manifest,
		desc:    desc,
		index:   manifest.Layers[0],
		chunks:  chunks,
		created: created,
	}, nil
}
