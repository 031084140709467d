// Package registry publishes pack directories to OCI registries and
// fetches them back.
//
// A pushed pack is an OCI 1.1 artifact manifest with ArtifactType as its
// artifact type. The first layer is the index file; the remaining layers are
// the chunk files in chunk order, each annotated with its chunk index.
// Fragmented chunks are reassembled before upload, so a pulled pack always
// holds plain chunk files.
//
// Client works against any oras.Target: a remote repository (see the oras
// subpackage), an OCI layout directory, or the in-memory store used in
// tests.
package registry
