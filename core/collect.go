package pack

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/meigma/bale/rid"
)

// CollectDir lists the resources stored under dir.
//
// Each regular file at "<category>/<name>" relative to dir becomes the
// resource "domain:<category>/<name>". Files are returned in lexical path
// order. Symbolic links and other non-regular files are skipped. Files
// directly under dir have no category and are reported as ErrFormat.
func CollectDir(domain, dir string) ([]Resource, error) {
	var resources []Resource
	err := fs.WalkDir(os.DirFS(dir), ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		category := path.Dir(name)
		if category == "." {
			return fmt.Errorf("%w: %s has no category directory", ErrFormat, filepath.Join(dir, name))
		}
		id := rid.From(domain, category, path.Base(name))
		if err := id.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrFormat, filepath.Join(dir, name), err)
		}
		resources = append(resources, Resource{ID: id, Path: filepath.Join(dir, filepath.FromSlash(name))})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect %s: %w", dir, err)
	}
	return resources, nil
}
