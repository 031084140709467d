// Package fragment splits oversized files into fixed-size chunk files and
// reassembles them into one logical byte stream.
//
// A file at location L is stored as the directory L.frag holding a size
// record named .size (the logical length as an 8-byte big-endian unsigned
// integer) and chunk files named by a zero-padded 10-digit hex index:
//
//	L.frag/.size
//	L.frag/0000000000.chunk
//	L.frag/0000000001.chunk
//
// Every chunk holds exactly ChunkSize bytes except possibly the last.
//
// Fragment writes are not atomic. A failed Fragment leaves partial output
// behind and callers must discard it and retry.
package fragment

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/meigma/bale/retention"
)

const (
	// ChunkSize is the size of every chunk except possibly the last.
	ChunkSize = 20 * 1024 * 1024

	// DirSuffix is appended to a location to name its fragment directory.
	DirSuffix = ".frag"

	// SizeFile names the size record inside a fragment directory.
	SizeFile = ".size"

	sizeRecordLen = 8
)

// ErrCorrupt is returned when a fragment set does not match its size record.
var ErrCorrupt = errors.New("fragment: corrupt fragment set")

// Set describes a fragment set on disk.
type Set struct {
	// Dir is the fragment directory.
	Dir string
	// Size is the logical length of the fragmented file.
	Size uint64
	// ChunkSize is the length of every chunk but the last.
	ChunkSize int64
	// Chunks lists the chunk file paths in order.
	Chunks []string
}

// ChunkLen returns the expected length of chunk i.
func (s *Set) ChunkLen(i int) int64 {
	start := uint64(i) * uint64(s.ChunkSize) //nolint:gosec // i and ChunkSize are non-negative
	if start >= s.Size {
		return 0
	}
	return int64(min(s.Size-start, uint64(s.ChunkSize))) //nolint:gosec // bounded by ChunkSize
}

// ChunkName returns the file name of chunk i.
func ChunkName(i int) string {
	return fmt.Sprintf("%010x.chunk", i)
}

// Dir returns the fragment directory for location.
func Dir(location string) string {
	return location + DirSuffix
}

// ChunkCount returns ceil(size / chunkSize).
func ChunkCount(size uint64, chunkSize int64) int {
	cs := uint64(chunkSize) //nolint:gosec // chunk sizes are positive
	return int((size + cs - 1) / cs) //nolint:gosec // bounded by size
}

// Exists reports whether location has a fragment set.
func Exists(location string) bool {
	info, err := os.Stat(filepath.Join(Dir(location), SizeFile))
	return err == nil && info.Mode().IsRegular()
}

// Option configures fragmenting and reassembly.
type Option func(*config)

type config struct {
	chunkSize int64
	policy    retention.Policy
	logger    *slog.Logger
}

func newConfig(opts []Option) config {
	cfg := config{chunkSize: ChunkSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.policy == nil {
		cfg.policy = retention.NoRetention()
	}
	return cfg
}

// WithRetention sets the policy used to open chunk files.
// The default is retention.NoRetention.
func WithRetention(p retention.Policy) Option {
	return func(c *config) {
		c.policy = p
	}
}

// WithLogger sets the logger for fragment operations.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// withChunkSize overrides ChunkSize.
func withChunkSize(n int64) Option {
	return func(c *config) {
		c.chunkSize = n
	}
}

func (c *config) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

func newSet(location string, size uint64, chunkSize int64) *Set {
	dir := Dir(location)
	n := ChunkCount(size, chunkSize)
	chunks := make([]string, n)
	for i := range n {
		chunks[i] = filepath.Join(dir, ChunkName(i))
	}
	return &Set{Dir: dir, Size: size, ChunkSize: chunkSize, Chunks: chunks}
}

// Fragment splits the file at path into a fragment set next to it.
//
// The source file is left in place. Existing chunk files in the fragment
// directory are overwritten. ctx is checked between chunks.
func Fragment(ctx context.Context, path string, opts ...Option) (*Set, error) {
	cfg := newConfig(opts)

	src, err := os.Open(path) //nolint:gosec // caller-provided path is intentional
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("fragment %s: not a regular file", path)
	}
	size := uint64(info.Size()) //nolint:gosec // regular file sizes are non-negative
	set := newSet(path, size, cfg.chunkSize)

	cfg.log().Info("fragmenting file", "path", path, "size", size, "chunks", len(set.Chunks))

	if err := os.MkdirAll(set.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create fragment directory: %w", err)
	}
	var rec [sizeRecordLen]byte
	binary.BigEndian.PutUint64(rec[:], size)
	if err := os.WriteFile(filepath.Join(set.Dir, SizeFile), rec[:], 0o640); err != nil { //nolint:gosec // fragment files are not secrets
		return nil, fmt.Errorf("write size record: %w", err)
	}

	r := bufio.NewReaderSize(src, 256*1024)
	for i, chunk := range set.Chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := writeChunk(chunk, r, set.ChunkLen(i)); err != nil {
			return nil, fmt.Errorf("write chunk %d: %w", i, err)
		}
		cfg.log().Debug("wrote chunk", "path", chunk, "index", i)
	}

	cfg.log().Info("fragmented file", "path", path, "dir", set.Dir)
	return set, nil
}

func writeChunk(path string, r io.Reader, n int64) error {
	f, err := os.Create(path) //nolint:gosec // path is derived from the fragment directory
	if err != nil {
		return err
	}
	if _, err := io.CopyN(f, r, n); err != nil {
		f.Close()
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("source shrank while fragmenting: %w", io.ErrUnexpectedEOF)
		}
		return err
	}
	return f.Close()
}

// Stat reads the size record of the fragment set for location.
func Stat(location string) (*Set, error) {
	return stat(location, ChunkSize)
}

func stat(location string, chunkSize int64) (*Set, error) {
	rec, err := os.ReadFile(filepath.Join(Dir(location), SizeFile)) //nolint:gosec // caller-provided path is intentional
	if err != nil {
		return nil, fmt.Errorf("read size record: %w", err)
	}
	if len(rec) != sizeRecordLen {
		return nil, fmt.Errorf("%w: size record is %d bytes", ErrCorrupt, len(rec))
	}
	return newSet(location, binary.BigEndian.Uint64(rec), chunkSize), nil
}

// Verify checks that every chunk file of the set exists as a regular file
// of its expected length. Wrong lengths and non-regular files are reported
// as ErrCorrupt; a missing chunk wraps fs.ErrNotExist as well.
func (s *Set) Verify() error {
	for i, chunk := range s.Chunks {
		info, err := os.Stat(chunk)
		if err != nil {
			return fmt.Errorf("%w: chunk %d: %w", ErrCorrupt, i, err)
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("%w: chunk %d is not a regular file", ErrCorrupt, i)
		}
		if want := s.ChunkLen(i); info.Size() != want {
			return fmt.Errorf("%w: chunk %d is %d bytes, want %d", ErrCorrupt, i, info.Size(), want)
		}
	}
	return nil
}

// Verify reads the size record for location and checks its chunk files.
func Verify(location string, opts ...Option) (*Set, error) {
	cfg := newConfig(opts)
	set, err := stat(location, cfg.chunkSize)
	if err != nil {
		return nil, err
	}
	if err := set.Verify(); err != nil {
		return nil, err
	}
	return set, nil
}

// Source reopens the logical stream of a fragment set.
//
// Each Open starts from the beginning and opens chunk files fresh, one at a
// time, as the stream reaches them.
type Source struct {
	set    *Set
	policy retention.Policy
}

// NewSource reads the size record for location and returns a Source for it.
func NewSource(location string, opts ...Option) (*Source, error) {
	cfg := newConfig(opts)
	set, err := stat(location, cfg.chunkSize)
	if err != nil {
		return nil, err
	}
	return &Source{set: set, policy: cfg.policy}, nil
}

// Set returns the fragment set backing the source.
func (s *Source) Set() *Set {
	return s.set
}

// Size returns the logical length of the stream.
func (s *Source) Size() uint64 {
	return s.set.Size
}

// Open returns a new reader positioned at the start of the stream.
func (s *Source) Open() *Reader {
	return &Reader{set: s.set, policy: s.policy, remaining: s.set.Size}
}

// Open is a convenience for NewSource followed by Source.Open.
func Open(location string, opts ...Option) (*Reader, error) {
	src, err := NewSource(location, opts...)
	if err != nil {
		return nil, err
	}
	return src.Open(), nil
}
