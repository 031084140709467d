//go:build unix

package retention

import (
	"fmt"
	"math"
	"os"
	"runtime"

	"golang.org/x/sys/unix"
)

// mapFile maps path read-only in full. Empty files are not mapped.
func mapFile(path string) (*mapping, error) {
	f, err := os.Open(path) //nolint:gosec // caller-provided path is intentional
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	if size == 0 {
		return &mapping{}, nil
	}
	if size > math.MaxInt {
		return nil, fmt.Errorf("mmap %s: file too large (%d bytes)", path, size)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED) //nolint:gosec // fd fits in int
	if err != nil {
		return nil, &os.PathError{Op: "mmap", Path: path, Err: err}
	}
	m := &mapping{data: data}
	runtime.AddCleanup(m, func(region []byte) {
		_ = unix.Munmap(region) //nolint:errcheck // nothing to report from a cleanup
	}, data)
	return m, nil
}
