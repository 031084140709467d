//go:generate flatc --go --go-namespace fb -o internal schema/index.fbs

// Package pack implements resource packs: compact archives of application
// resources addressed by [rid.ID].
//
// A leaf pack is a directory holding an index file and numbered chunk files:
//   - index: FlatBuffers-encoded records mapping each resource id to its
//     chunk index, byte offset, and size (optionally zstd-framed)
//   - 0, 1, ... N-1: concatenated resource bytes, one chunk per
//     (domain, category) group by default
//
// Composite packs layer other packs. LoadResource tries each component in
// order and returns the first success; when every component fails the
// returned [*AggregateError] reports one line per component.
//
// Build writes packs and is not atomic: a failed build leaves partial
// output that callers must discard. Packs are write-once, read-many; a built
// pack is safe for concurrent reads.
package pack
