package registry

// Media types for packs in OCI registries.
const (
	// ArtifactType identifies packs as an OCI 1.1 artifact type.
	ArtifactType = "application/vnd.meigma.bale.pack.v1"

	// MediaTypeIndex is the media type for the FlatBuffers index blob.
	MediaTypeIndex = "application/vnd.meigma.bale.index.v1+flatbuffers"

	// MediaTypeChunk is the media type for chunk blobs.
	MediaTypeChunk = "application/vnd.meigma.bale.chunk.v1"
)

// Annotation keys set on pushed manifests and layers.
const (
	// AnnotationChunk holds the decimal chunk index of a chunk layer.
	AnnotationChunk = "io.meigma.bale.chunk"

	// AnnotationPackID holds the id of the pushed pack.
	AnnotationPackID = "io.meigma.bale.pack.id"

	// AnnotationResources holds the number of indexed resources.
	AnnotationResources = "io.meigma.bale.resources"
)
