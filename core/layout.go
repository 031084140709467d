package pack

import (
	"fmt"
	"os"

	"github.com/meigma/bale/core/internal/sizing"
	"github.com/meigma/bale/rid"
)

// Resource pairs a resource id with the file holding its bytes.
type Resource struct {
	ID   rid.ID
	Path string
}

// KeyFunc returns the grouping key of a resource.
type KeyFunc func(rid.ID) string

// CategoryKey groups resources by domain and category.
func CategoryKey(id rid.ID) string {
	return id.Domain() + ":" + id.Category()
}

// Placement is a resource assigned to a position in a chunk.
type Placement struct {
	Resource
	Entry
}

// Chunk is the planned content of one chunk file.
type Chunk struct {
	// Index is the chunk index.
	Index uint8
	// Groups lists the grouping keys stored in the chunk, in order.
	Groups []string
	// Placements lists the resources in write order.
	Placements []Placement
	// Size is the total chunk length.
	Size uint64
}

// Layout is the result of Calculate.
type Layout struct {
	// Index maps every resource to its planned location. Entries carry no
	// digests.
	Index *Index
	// Chunks lists the chunk files to write, in index order.
	Chunks []Chunk
}

// group is the resources sharing one grouping key.
type group struct {
	key       string
	resources []Resource
	sizes     []uint64
	size      uint64
}

// Calculate plans the chunk layout for resources without writing anything.
//
// Resources are partitioned by the grouping key (CategoryKey by default).
// Groups keep the order in which their key first appears, and resources
// keep their input order within a group. Each group gets its own chunk
// unless BuildWithMaxChunkSize lets consecutive groups share one. Offsets
// are cumulative within a chunk and sizes are the current source file
// lengths.
//
// Calculate fails on duplicate or invalid ids, on sources that are not
// regular files, and with ErrTooManyChunks when more than MaxChunks chunk
// files would be needed.
func Calculate(resources []Resource, opts ...BuildOption) (*Layout, error) {
	cfg := newBuildConfig(opts)
	return calculate(resources, &cfg)
}

func calculate(resources []Resource, cfg *buildConfig) (*Layout, error) {
	groups, err := groupResources(resources, cfg.keyFunc)
	if err != nil {
		return nil, err
	}

	var chunks []Chunk
	for _, g := range groups {
		if startChunk(chunks, g, cfg.maxChunkSize) {
			if len(chunks) == MaxChunks {
				return nil, fmt.Errorf("%w: more than %d needed", ErrTooManyChunks, MaxChunks)
			}
			chunks = append(chunks, Chunk{Index: uint8(len(chunks))}) //nolint:gosec // bounded by MaxChunks
		}
		c := &chunks[len(chunks)-1]
		c.Groups = append(c.Groups, g.key)
		for i, r := range g.resources {
			size := g.sizes[i]
			end, ok := sizing.Add(c.Size, size)
			if !ok {
				return nil, fmt.Errorf("chunk %d: %w", c.Index, ErrSizeOverflow)
			}
			c.Placements = append(c.Placements, Placement{
				Resource: r,
				Entry:    Entry{ChunkIndex: c.Index, Offset: c.Size, Size: size},
			})
			c.Size = end
		}
	}

	entries := make(map[rid.ID]Entry, len(resources))
	for _, c := range chunks {
		for _, p := range c.Placements {
			entries[p.ID] = p.Entry
		}
	}
	idx, err := NewIndex(entries)
	if err != nil {
		return nil, err
	}
	return &Layout{Index: idx, Chunks: chunks}, nil
}

// startChunk reports whether g must begin a new chunk.
func startChunk(chunks []Chunk, g *group, maxChunkSize uint64) bool {
	if len(chunks) == 0 || maxChunkSize == 0 {
		return true
	}
	sum, ok := sizing.Add(chunks[len(chunks)-1].Size, g.size)
	return !ok || sum > maxChunkSize
}

func groupResources(resources []Resource, keyFunc KeyFunc) ([]*group, error) {
	seen := make(map[rid.ID]struct{}, len(resources))
	byKey := make(map[string]*group)
	var groups []*group
	for _, r := range resources {
		if err := r.ID.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFormat, err)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate resource %s", ErrFormat, r.ID)
		}
		seen[r.ID] = struct{}{}

		size, err := sourceSize(r.Path)
		if err != nil {
			return nil, err
		}

		key := keyFunc(r.ID)
		g, ok := byKey[key]
		if !ok {
			g = &group{key: key}
			byKey[key] = g
			groups = append(groups, g)
		}
		g.resources = append(g.resources, r)
		g.sizes = append(g.sizes, size)
		if g.size, ok = sizing.Add(g.size, size); !ok {
			return nil, fmt.Errorf("group %s: %w", key, ErrSizeOverflow)
		}
	}
	return groups, nil
}

func sourceSize(path string) (uint64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("source %s: not a regular file", path)
	}
	return uint64(info.Size()), nil //nolint:gosec // regular file sizes are non-negative
}
