package pack

import (
	"cmp"
	"fmt"
	"iter"
	"maps"
	"slices"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/bale/core/internal/index"
	"github.com/meigma/bale/core/internal/sizing"
	"github.com/meigma/bale/rid"
)

// MaxChunks is the number of chunk files a chunk index can address.
const MaxChunks = 256

// Compression identifies how an index file is framed.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionZstd
)

// String returns the human-readable name of the compression algorithm.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// Entry locates one resource inside a pack.
type Entry struct {
	// ChunkIndex selects the chunk file.
	ChunkIndex uint8
	// Offset is the byte offset of the resource within the chunk.
	Offset uint64
	// Size is the resource length in bytes.
	Size uint64
	// Digest is the content digest, or empty if none was recorded.
	Digest digest.Digest
}

// End returns Offset+Size. ok is false on overflow.
func (e Entry) End() (end uint64, ok bool) {
	return sizing.Add(e.Offset, e.Size)
}

// Index maps resource ids to their location in a pack. It is immutable and
// safe for concurrent use.
type Index struct {
	entries   map[rid.ID]Entry
	ids       []rid.ID
	fileCount int
}

// NewIndex builds an Index from a completed mapping.
//
// Every id must be valid, every digest must be well formed, and no entry may
// extend past the end of the addressable range. The mapping is copied.
func NewIndex(entries map[rid.ID]Entry) (*Index, error) {
	idx := &Index{
		entries: make(map[rid.ID]Entry, len(entries)),
		ids:     make([]rid.ID, 0, len(entries)),
	}
	for id, e := range entries {
		if err := id.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFormat, err)
		}
		if err := validateEntry(id, e); err != nil {
			return nil, err
		}
		idx.entries[id] = e
		idx.ids = append(idx.ids, id)
		idx.fileCount = max(idx.fileCount, int(e.ChunkIndex)+1)
	}
	slices.SortFunc(idx.ids, rid.Compare)
	return idx, nil
}

func validateEntry(id rid.ID, e Entry) error {
	if _, ok := e.End(); !ok {
		return fmt.Errorf("%w: entry %s: %w", ErrFormat, id, ErrSizeOverflow)
	}
	if e.Digest != "" {
		if err := e.Digest.Validate(); err != nil {
			return fmt.Errorf("%w: entry %s: %w", ErrFormat, id, err)
		}
	}
	return nil
}

// Lookup returns the entry for id. ok is false when id is not indexed.
func (x *Index) Lookup(id rid.ID) (Entry, bool) {
	e, ok := x.entries[id]
	return e, ok
}

// FileCount returns the number of chunk files the index refers to:
// one more than the largest chunk index, or zero for an empty index.
func (x *Index) FileCount() int {
	return x.fileCount
}

// Len returns the number of indexed resources.
func (x *Index) Len() int {
	return len(x.ids)
}

// IDs returns the indexed resource ids in sorted order.
func (x *Index) IDs() []rid.ID {
	return slices.Clone(x.ids)
}

// All iterates over the index in sorted id order.
func (x *Index) All() iter.Seq2[rid.ID, Entry] {
	return func(yield func(rid.ID, Entry) bool) {
		for _, id := range x.ids {
			if !yield(id, x.entries[id]) {
				return
			}
		}
	}
}

// Entries returns a copy of the underlying mapping.
func (x *Index) Entries() map[rid.ID]Entry {
	return maps.Clone(x.entries)
}

// ChunkExtents returns, for each chunk, the minimum length the chunk file
// must have to hold every entry that refers to it.
func (x *Index) ChunkExtents() []uint64 {
	extents := make([]uint64, x.fileCount)
	for _, e := range x.entries {
		end, _ := e.End()
		extents[e.ChunkIndex] = max(extents[e.ChunkIndex], end)
	}
	return extents
}

// EncodeIndex serializes x. Records are written in chunk and offset order.
func EncodeIndex(x *Index, c Compression) ([]byte, error) {
	records := make([]index.Record, 0, len(x.ids))
	for id, e := range x.All() {
		records = append(records, index.Record{
			Domain:     id.Domain(),
			Category:   id.Category(),
			Identifier: id.Identifier(),
			ChunkIndex: e.ChunkIndex,
			Offset:     e.Offset,
			Size:       e.Size,
			Digest:     string(e.Digest),
		})
	}
	slices.SortStableFunc(records, func(a, b index.Record) int {
		return cmp.Or(cmp.Compare(a.ChunkIndex, b.ChunkIndex), cmp.Compare(a.Offset, b.Offset))
	})

	data := index.Encode(records)
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionZstd:
		return index.Compress(data)
	default:
		return nil, fmt.Errorf("unknown index compression %d", c)
	}
}

// LoadIndex parses index data produced by EncodeIndex.
//
// Malformed data, invalid ids or digests, and duplicate ids are reported as
// ErrFormat. LoadIndex never panics on malformed input.
func LoadIndex(data []byte) (*Index, error) {
	records, err := index.Decode(data, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	entries := make(map[rid.ID]Entry, len(records))
	for _, r := range records {
		id := rid.From(r.Domain, r.Category, r.Identifier)
		if _, dup := entries[id]; dup {
			return nil, fmt.Errorf("%w: duplicate entry %s", ErrFormat, id)
		}
		entries[id] = Entry{
			ChunkIndex: r.ChunkIndex,
			Offset:     r.Offset,
			Size:       r.Size,
			Digest:     digest.Digest(r.Digest),
		}
	}
	return NewIndex(entries)
}
