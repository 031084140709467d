// Package fsutil holds file helpers shared by the pack writers.
package fsutil

import (
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to a temp file then renames to target,
// ensuring atomic replacement of the target file.
func WriteFileAtomic(target string, data []byte) error {
	f, err := CreateAtomic(target)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Abort()
		return err
	}
	return f.Commit()
}

// AtomicFile is a temp file that replaces its target on Commit.
type AtomicFile struct {
	*os.File
	target string
}

// CreateAtomic creates a temp file next to target.
func CreateAtomic(target string) (*AtomicFile, error) {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".bale-*")
	if err != nil {
		return nil, err
	}
	return &AtomicFile{File: tmp, target: target}, nil
}

// Target returns the path the file replaces on Commit.
func (f *AtomicFile) Target() string {
	return f.target
}

// Commit closes the temp file and renames it over the target.
func (f *AtomicFile) Commit() error {
	tmpPath := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, f.target); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Abort closes and removes the temp file.
func (f *AtomicFile) Abort() {
	f.Close()
	os.Remove(f.Name())
}
