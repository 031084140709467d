// Package index encodes and decodes the pack index file.
//
// The index is a FlatBuffers table holding one entry per resource (id
// components, chunk index, offset, size, and an optional content digest).
// It may be wrapped in a single zstd frame; Decode detects this from the
// frame magic.
package index
