package app

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"pyshape/internal/core/app/helpers"
	"pyshape/internal/core/errors"
)

// Discover expands paths into the Python files to process. Directories are
// walked with the exclusion filter; files named directly are always taken.
func (a *App) Discover(paths []string) ([]string, error) {
	filter := a.snapshot().filter
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, root := range helpers.UniqueScanRoots(paths) {
		info, err := os.Stat(root)
		if err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeIO, "stat path"), errors.CtxPath, root)
		}
		if !info.IsDir() {
			add(root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && filter.SkipDir(path) {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() && filter.Accept(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeIO, "walk path"), errors.CtxPath, root)
		}
	}

	sort.Strings(files)
	return files, nil
}
