package pack

import (
	_ "crypto/sha256" // register digest.SHA256
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/meigma/bale/core/internal/sizing"
	"github.com/meigma/bale/rid"
)

// Kind distinguishes leaf packs from composite packs.
type Kind uint8

const (
	KindLeaf Kind = iota
	KindComposite
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindComposite:
		return "composite"
	default:
		return "unknown"
	}
}

// Pack is a source of resources.
//
// A leaf pack serves resources from its index and chunk source. A composite
// pack serves resources from an ordered list of component packs. Packs are
// immutable after construction; LoadResource performs I/O on every call and
// caches nothing.
type Pack struct {
	id   string
	kind Kind

	index  *Index
	source ChunkSource

	components []*Pack

	logger *slog.Logger
}

// Option configures a Pack.
type Option func(*Pack)

// WithLogger sets the logger for resource loads.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pack) {
		p.logger = logger
	}
}

// log returns the logger, falling back to a discard logger if nil.
func (p *Pack) log() *slog.Logger {
	if p.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.logger
}

// NewLeaf creates a leaf pack serving idx from src.
func NewLeaf(id string, idx *Index, src ChunkSource, opts ...Option) *Pack {
	p := &Pack{id: id, kind: KindLeaf, index: idx, source: src}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewComposite creates a composite pack over components, tried in order.
// The slice is copied. NewComposite panics if a component is nil.
func NewComposite(id string, components []*Pack, opts ...Option) *Pack {
	for i, c := range components {
		if c == nil {
			panic(fmt.Sprintf("pack: nil component %d in composite %q", i, id))
		}
	}
	p := &Pack{id: id, kind: KindComposite, components: slices.Clone(components)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ID returns the pack id.
func (p *Pack) ID() string {
	return p.id
}

// Kind returns whether p is a leaf or composite pack.
func (p *Pack) Kind() Kind {
	return p.kind
}

// Components returns a copy of the component packs. It is empty for leaf
// packs.
func (p *Pack) Components() []*Pack {
	return slices.Clone(p.components)
}

// Index returns the index of a leaf pack, or nil for a composite pack.
func (p *Pack) Index() *Index {
	return p.index
}

// Contains reports whether the pack, or any component, indexes id.
func (p *Pack) Contains(id rid.ID) bool {
	if p.kind == KindLeaf {
		_, ok := p.index.Lookup(id)
		return ok
	}
	return slices.ContainsFunc(p.components, func(c *Pack) bool { return c.Contains(id) })
}

// LoadResource returns the bytes of resource id.
//
// A leaf pack fails with *NotFoundError when id is not indexed and with
// *LoadError when the indexed bytes cannot be read. A composite pack returns
// the first component success; if every component fails it returns
// *AggregateError, or *NotFoundError when there are no components.
func (p *Pack) LoadResource(id rid.ID) (*RawResource, error) {
	if p.kind == KindComposite {
		return p.loadComposite(id)
	}
	return p.loadLeaf(id)
}

func (p *Pack) loadLeaf(id rid.ID) (*RawResource, error) {
	e, ok := p.index.Lookup(id)
	if !ok {
		return nil, &NotFoundError{ID: id, Reason: "not indexed"}
	}
	data, err := p.readEntry(e)
	if err != nil {
		p.log().Debug("resource load failed", "pack", p.id, "id", id.String(), "error", err)
		return nil, &LoadError{PackID: p.id, ID: id, Err: err}
	}
	p.log().Debug("resource loaded", "pack", p.id, "id", id.String(), "size", len(data))
	return &RawResource{id: id, packID: p.id, data: data}, nil
}

func (p *Pack) readEntry(e Entry) (data []byte, err error) {
	size, err := sizing.Int[int](e.Size, ErrSizeOverflow)
	if err != nil {
		return nil, err
	}
	offset, err := sizing.Int[int64](e.Offset, ErrSizeOverflow)
	if err != nil {
		return nil, err
	}

	rc, err := p.openEntry(e.ChunkIndex, offset, int64(size))
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil && err == nil {
			data, err = nil, fmt.Errorf("close chunk %d: %w", e.ChunkIndex, cerr)
		}
	}()

	data = make([]byte, size)
	if _, err := io.ReadFull(rc, data); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("read chunk %d: %w", e.ChunkIndex, err)
	}

	if e.Digest != "" {
		v := e.Digest.Verifier()
		_, _ = v.Write(data) //nolint:errcheck // hash writes never fail
		if !v.Verified() {
			return nil, fmt.Errorf("%w: expected %s", ErrDigestMismatch, e.Digest)
		}
	}
	return data, nil
}

// openEntry returns a reader positioned at offset in chunk i.
func (p *Pack) openEntry(i uint8, offset, length int64) (io.ReadCloser, error) {
	if rs, ok := p.source.(RangeSource); ok {
		rc, err := rs.OpenRange(i, offset, length)
		if err != nil {
			return nil, fmt.Errorf("open chunk %d range %d+%d: %w", i, offset, length, err)
		}
		return rc, nil
	}

	rc, err := p.source.OpenChunk(i)
	if err != nil {
		return nil, fmt.Errorf("open chunk %d: %w", i, err)
	}
	if err := skipN(rc, offset); err != nil {
		rc.Close()
		return nil, fmt.Errorf("seek chunk %d to offset %d: %w", i, offset, err)
	}
	return rc, nil
}

type skipper interface {
	Skip(n int64) (int64, error)
}

// skipN advances r by exactly n bytes.
func skipN(r io.Reader, n int64) error {
	if n == 0 {
		return nil
	}
	var (
		got int64
		err error
	)
	switch s := r.(type) {
	case skipper:
		got, err = s.Skip(n)
	case io.Seeker:
		// Seeking past the end succeeds; the following read reports it.
		_, err = s.Seek(n, io.SeekCurrent)
		got = n
	default:
		got, err = io.CopyN(io.Discard, r, n)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if got < n {
		return io.ErrUnexpectedEOF
	}
	return nil
}

func (p *Pack) loadComposite(id rid.ID) (*RawResource, error) {
	if len(p.components) == 0 {
		return nil, &NotFoundError{ID: id, Reason: "no component packs"}
	}
	failures := make([]ComponentFailure, 0, len(p.components))
	for _, c := range p.components {
		res, err := c.LoadResource(id)
		if err == nil {
			if len(failures) > 0 {
				p.log().Debug("resource resolved after fallback", "pack", p.id, "id", id.String(), "component", c.id, "failed", len(failures))
			}
			return res, nil
		}
		failures = append(failures, ComponentFailure{PackID: c.id, Err: err})
	}
	return nil, &AggregateError{ID: id, Failures: failures}
}
