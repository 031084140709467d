package pack

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/meigma/bale/fragment"
	"github.com/meigma/bale/retention"
)

// ChunkSource opens the chunk files of a leaf pack.
//
// OpenChunk returns a reader positioned at the start of chunk i. If the
// reader implements Skip(int64) (int64, error) or io.Seeker, leaf packs use
// it to reach resource offsets without reading the skipped bytes.
type ChunkSource interface {
	OpenChunk(i uint8) (io.ReadCloser, error)
}

// RangeSource is implemented by chunk sources that can open a byte range of
// a chunk directly. Leaf packs prefer it over OpenChunk.
type RangeSource interface {
	OpenRange(i uint8, offset, length int64) (io.ReadCloser, error)
}

// ChunkName returns the file name of chunk i inside a pack directory.
func ChunkName(i uint8) string {
	return strconv.Itoa(int(i))
}

// DirSource reads chunk files from a pack directory.
//
// A chunk stored as a fragment set (see package fragment) is read
// transparently when the plain chunk file is absent. DirSource is safe for
// concurrent use when its retention policy is.
type DirSource struct {
	dir    string
	policy retention.Policy
}

// NewDirSource returns a DirSource for dir. A nil policy uses
// retention.NoRetention.
func NewDirSource(dir string, policy retention.Policy) *DirSource {
	if policy == nil {
		policy = retention.NoRetention()
	}
	return &DirSource{dir: dir, policy: policy}
}

// Dir returns the pack directory.
func (s *DirSource) Dir() string {
	return s.dir
}

// ChunkPath returns the path of chunk i.
func (s *DirSource) ChunkPath(i uint8) string {
	return filepath.Join(s.dir, ChunkName(i))
}

// OpenChunk implements ChunkSource.
func (s *DirSource) OpenChunk(i uint8) (io.ReadCloser, error) {
	path := s.ChunkPath(i)
	st, err := s.policy.OpenStream(path)
	if err == nil {
		return st, nil
	}
	if errors.Is(err, fs.ErrNotExist) && fragment.Exists(path) {
		r, ferr := fragment.Open(path, fragment.WithRetention(s.policy))
		if ferr != nil {
			return nil, ferr
		}
		return r, nil
	}
	return nil, err
}

// ChunkLen returns the length of chunk i, whether stored plain or
// fragmented. Every chunk file of a fragment set is checked against the
// set's size record.
func (s *DirSource) ChunkLen(i uint8) (uint64, error) {
	path := s.ChunkPath(i)
	info, err := os.Stat(path)
	if err == nil {
		if !info.Mode().IsRegular() {
			return 0, &fs.PathError{Op: "stat", Path: path, Err: errors.New("not a regular file")}
		}
		return uint64(info.Size()), nil //nolint:gosec // regular file sizes are non-negative
	}
	if errors.Is(err, fs.ErrNotExist) && fragment.Exists(path) {
		set, ferr := fragment.Verify(path)
		if ferr != nil {
			return 0, ferr
		}
		return set.Size, nil
	}
	return 0, err
}
