//go:build !unix

package retention

import "os"

// mapFile reads path into memory on platforms without mmap support.
func mapFile(path string) (*mapping, error) {
	data, err := os.ReadFile(path) //nolint:gosec // caller-provided path is intentional
	if err != nil {
		return nil, err
	}
	return &mapping{data: data}, nil
}
