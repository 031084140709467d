// Package retention provides strategies for opening byte streams over files.
//
// A Policy decides what, if anything, is kept between OpenStream calls.
// [NoRetention] opens a fresh buffered stream every time and is safe for
// concurrent use. [SingleMMap] keeps one read-only memory mapping and serves
// views over it; it is not safe for concurrent use.
package retention

import (
	"bufio"
	"errors"
	"io"
	"os"
)

// ErrNoMark is returned by Reset when Mark was never called on the stream.
var ErrNoMark = errors.New("retention: reset without mark")

// Stream is a sequential byte stream opened by a Policy.
//
// Skip advances up to n bytes and returns the number skipped. A short skip
// with a nil error means the end of the stream was reached. Available
// returns the number of bytes that can be read without further I/O.
type Stream interface {
	io.ReadCloser
	io.ByteReader
	Skip(n int64) (int64, error)
	Available() int
}

// MarkableStream is a Stream that can return to a previously marked position.
type MarkableStream interface {
	Stream
	// Mark records the current position.
	Mark()
	// Reset returns to the position recorded by Mark.
	Reset() error
}

// Policy opens streams over file paths.
type Policy interface {
	OpenStream(path string) (Stream, error)
}

// NoRetention returns a Policy that opens a new buffered file stream on
// every call. It keeps no state, always observes the current file contents,
// and is safe for concurrent use.
func NoRetention() Policy {
	return noRetention{}
}

type noRetention struct{}

// bufferSize matches the buffered stream size used for chunk reads.
const bufferSize = 32 * 1024

func (noRetention) OpenStream(path string) (Stream, error) {
	f, err := os.Open(path) //nolint:gosec // caller-provided path is intentional
	if err != nil {
		return nil, err
	}
	return &fileStream{f: f, r: bufio.NewReaderSize(f, bufferSize)}, nil
}

// fileStream is a buffered stream over an open file.
type fileStream struct {
	f *os.File
	r *bufio.Reader
}

func (s *fileStream) Read(p []byte) (int, error) {
	return s.r.Read(p)
}

func (s *fileStream) ReadByte() (byte, error) {
	return s.r.ReadByte()
}

func (s *fileStream) Available() int {
	return s.r.Buffered()
}

// Skip discards buffered bytes first and seeks the file for the remainder.
func (s *fileStream) Skip(n int64) (int64, error) {
	if n <= 0 {
		return 0, nil
	}
	buffered := int64(s.r.Buffered())
	if n <= buffered {
		d, err := s.r.Discard(int(n))
		return int64(d), err
	}

	if _, err := s.r.Discard(int(buffered)); err != nil {
		return 0, err
	}
	cur, err := s.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return buffered, err
	}
	info, err := s.f.Stat()
	if err != nil {
		return buffered, err
	}
	want := n - buffered
	if left := info.Size() - cur; want > left {
		want = max(left, 0)
	}
	if _, err := s.f.Seek(want, io.SeekCurrent); err != nil {
		return buffered, err
	}
	s.r.Reset(s.f)
	return buffered + want, nil
}

func (s *fileStream) Close() error {
	return s.f.Close()
}
