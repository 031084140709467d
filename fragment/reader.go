package fragment

import (
	"fmt"
	"io"
	"os"

	"github.com/meigma/bale/retention"
)

// Reader streams the concatenated chunks of a fragment set.
//
// Chunks are opened lazily in index order and closed as soon as they are
// exhausted. A chunk shorter than its expected length is reported as
// io.ErrUnexpectedEOF. Reader implements retention.Stream.
type Reader struct {
	set    *Set
	policy retention.Policy

	next      int
	cur       retention.Stream
	curLeft   int64
	remaining uint64
	closed    bool
}

var _ retention.Stream = (*Reader)(nil)

func (r *Reader) openNext() error {
	i := r.next
	s, err := r.policy.OpenStream(r.set.Chunks[i])
	if err != nil {
		return fmt.Errorf("open chunk %d: %w", i, err)
	}
	r.cur = s
	r.curLeft = r.set.ChunkLen(i)
	r.next++
	return nil
}

func (r *Reader) closeCur() error {
	if r.cur == nil {
		return nil
	}
	err := r.cur.Close()
	r.cur = nil
	return err
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, os.ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	for r.remaining > 0 {
		if r.cur == nil {
			if err := r.openNext(); err != nil {
				return 0, err
			}
		}
		n, err := r.cur.Read(p[:min(int64(len(p)), r.curLeft)])
		r.curLeft -= int64(n)
		r.remaining -= uint64(n) //nolint:gosec // n is non-negative
		if r.curLeft == 0 {
			if cerr := r.closeCur(); cerr != nil {
				return n, cerr
			}
		} else if err == io.EOF {
			return n, fmt.Errorf("chunk %d: %w", r.next-1, io.ErrUnexpectedEOF)
		}
		if err != nil && err != io.EOF {
			return n, err
		}
		if n > 0 {
			return n, nil
		}
	}
	return 0, io.EOF
}

// ReadByte implements io.ByteReader.
func (r *Reader) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// Skip advances up to n bytes. Whole chunks that are skipped entirely are
// never opened.
func (r *Reader) Skip(n int64) (int64, error) {
	if r.closed {
		return 0, os.ErrClosed
	}
	var skipped int64
	for n > 0 && r.remaining > 0 {
		if r.cur == nil {
			if l := r.set.ChunkLen(r.next); n >= l {
				r.next++
				n -= l
				skipped += l
				r.remaining -= uint64(l) //nolint:gosec // l is non-negative
				continue
			}
			if err := r.openNext(); err != nil {
				return skipped, err
			}
		}
		want := min(n, r.curLeft)
		k, err := r.cur.Skip(want)
		r.curLeft -= k
		r.remaining -= uint64(k) //nolint:gosec // k is non-negative
		n -= k
		skipped += k
		if err != nil {
			return skipped, err
		}
		if k < want {
			return skipped, fmt.Errorf("chunk %d: %w", r.next-1, io.ErrUnexpectedEOF)
		}
		if r.curLeft == 0 {
			if err := r.closeCur(); err != nil {
				return skipped, err
			}
		}
	}
	return skipped, nil
}

// Available returns the bytes readable from the current chunk without I/O.
func (r *Reader) Available() int {
	if r.cur == nil {
		return 0
	}
	return int(min(int64(r.cur.Available()), r.curLeft))
}

// Remaining returns the number of logical bytes not yet read.
func (r *Reader) Remaining() uint64 {
	return r.remaining
}

// Close closes the open chunk, if any.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.closeCur()
}
