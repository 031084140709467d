// Package testutil provides helpers shared by package tests.
package testutil

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

// WriteTree writes files, keyed by slash-separated path relative to root.
func WriteTree(tb testing.TB, root string, files map[string]string) {
	tb.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			tb.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			tb.Fatalf("write %s: %v", path, err)
		}
	}
}

// Pattern returns n deterministic bytes derived from seed.
func Pattern(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*31) ^ seed
	}
	return b
}

// MemChunks is an in-memory chunk source.
type MemChunks struct {
	chunks [][]byte
	opens  atomic.Int64

	// Err, when set, is returned by every OpenChunk call.
	Err error
}

// NewMemChunks returns a chunk source serving chunks in index order.
func NewMemChunks(chunks ...[]byte) *MemChunks {
	return &MemChunks{chunks: chunks}
}

// OpenChunk returns a seekable reader over chunk i.
func (m *MemChunks) OpenChunk(i uint8) (io.ReadCloser, error) {
	m.opens.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}
	if int(i) >= len(m.chunks) {
		return nil, &fs.PathError{Op: "open", Path: "chunk", Err: fs.ErrNotExist}
	}
	return chunkReader{bytes.NewReader(m.chunks[i])}, nil
}

// Opens returns the number of OpenChunk calls.
func (m *MemChunks) Opens() int64 {
	return m.opens.Load()
}

type chunkReader struct {
	*bytes.Reader
}

func (chunkReader) Close() error { return nil }
