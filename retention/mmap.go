package retention

import (
	"io"
	"os"
	"path/filepath"
)

// SingleMMap is a Policy that keeps at most one file memory-mapped.
//
// OpenStream maps the requested file read-only in full unless it is the
// file already mapped (compared by absolute path with symlinks resolved), and returns a view over
// the mapping. Requesting a different path replaces the retained mapping;
// views opened earlier keep their own reference and stay readable until
// they are closed and collected.
//
// The retained mapping reflects the file as it was when mapped. Files must
// not be truncated while mapped. SingleMMap holds one mutable slot and is
// not safe for concurrent use; use one instance per goroutine or
// NoRetention.
type SingleMMap struct {
	path string
	m    *mapping
}

// mapping owns one read-only mapped region. The region is released when
// the mapping becomes unreachable.
type mapping struct {
	data []byte
}

// NewSingleMMap creates a SingleMMap policy with nothing mapped.
func NewSingleMMap() *SingleMMap {
	return &SingleMMap{}
}

// OpenStream returns a view over the mapped contents of path.
func (p *SingleMMap) OpenStream(path string) (Stream, error) {
	canonical, err := canonicalPath(path)
	if err != nil {
		return nil, err
	}
	if p.m == nil || canonical != p.path {
		m, err := mapFile(canonical)
		if err != nil {
			return nil, err
		}
		p.m, p.path = m, canonical
	}
	return &View{m: p.m, mark: -1}, nil
}

// canonicalPath returns the absolute form of path with symlinks resolved.
// A path that cannot be resolved keeps its absolute form.
func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

// Path returns the canonical path of the retained mapping, or "" if none.
func (p *SingleMMap) Path() string {
	return p.path
}

// Release drops the retained mapping. The next OpenStream maps again.
func (p *SingleMMap) Release() {
	p.m, p.path = nil, ""
}

// View is a read-only stream over a mapped file.
type View struct {
	m    *mapping
	pos  int
	mark int
}

var _ MarkableStream = (*View)(nil)

func (v *View) data() ([]byte, error) {
	if v.m == nil {
		return nil, os.ErrClosed
	}
	return v.m.data, nil
}

// Read implements io.Reader.
func (v *View) Read(p []byte) (int, error) {
	data, err := v.data()
	if err != nil {
		return 0, err
	}
	if v.pos >= len(data) {
		return 0, io.EOF
	}
	n := copy(p, data[v.pos:])
	v.pos += n
	return n, nil
}

// ReadByte implements io.ByteReader.
func (v *View) ReadByte() (byte, error) {
	data, err := v.data()
	if err != nil {
		return 0, err
	}
	if v.pos >= len(data) {
		return 0, io.EOF
	}
	b := data[v.pos]
	v.pos++
	return b, nil
}

// Skip advances the position by up to n bytes.
func (v *View) Skip(n int64) (int64, error) {
	data, err := v.data()
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, nil
	}
	k := min(n, int64(len(data)-v.pos))
	v.pos += int(k)
	return k, nil
}

// Available returns the number of unread bytes.
func (v *View) Available() int {
	if v.m == nil {
		return 0
	}
	return len(v.m.data) - v.pos
}

// Mark records the current position for Reset.
func (v *View) Mark() {
	v.mark = v.pos
}

// Reset returns to the position recorded by Mark.
func (v *View) Reset() error {
	if v.mark < 0 {
		return ErrNoMark
	}
	v.pos = v.mark
	return nil
}

// Close releases the view's reference to the mapping.
func (v *View) Close() error {
	v.m = nil
	return nil
}
