// Package platform opens pack files without following symbolic links.
package platform

import (
	"errors"
	"io/fs"
	"os"
)

// ErrNotRegular is returned when a pack file is a symbolic link, a
// directory, or another non-regular file.
var ErrNotRegular = errors.New("not a regular file")

// OpenRegular opens name inside root for reading. It fails with
// ErrNotRegular if name is not a regular file, without following a
// symbolic link in the final path component.
func OpenRegular(root *os.Root, name string) (*os.File, fs.FileInfo, error) {
	info, err := root.Lstat(name)
	if err != nil {
		return nil, nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, nil, ErrNotRegular
	}
	f, err := openNoFollow(root, name)
	if err != nil {
		return nil, nil, err
	}
	// The file may have been replaced between Lstat and open.
	if info, err = f.Stat(); err != nil || !info.Mode().IsRegular() {
		f.Close()
		if err == nil {
			err = ErrNotRegular
		}
		return nil, nil, err
	}
	return f, info, nil
}
