package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := filepath.Join(dir, "index")
	require.NoError(t, os.WriteFile(target, []byte("old"), 0o644))

	require.NoError(t, WriteFileAtomic(target, []byte("new")))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
	assertOnly(t, dir, "index")
}

func TestAtomicFileAbort(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := filepath.Join(dir, "0")
	require.NoError(t, os.WriteFile(target, []byte("keep"), 0o644))

	f, err := CreateAtomic(target)
	require.NoError(t, err)
	assert.Equal(t, target, f.Target())
	_, err = f.WriteString("discard")
	require.NoError(t, err)
	f.Abort()

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(data))
	assertOnly(t, dir, "0")
}

func TestCreateAtomicMissingDir(t *testing.T) {
	t.Parallel()

	_, err := CreateAtomic(filepath.Join(t.TempDir(), "missing", "0"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func assertOnly(t *testing.T, dir string, names ...string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var got []string
	for _, e := range entries {
		got = append(got, e.Name())
	}
	assert.Equal(t, names, got)
}
