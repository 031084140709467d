//go:build !unix

package platform

import (
	"io/fs"
	"os"
)

func openNoFollow(root *os.Root, name string) (*os.File, error) {
	info, err := root.Lstat(name)
	if err != nil {
		return nil, err
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		return nil, ErrNotRegular
	}
	return root.Open(name)
}
