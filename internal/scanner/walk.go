package scanner

import (
	"context"
	"path/filepath"

	"github.com/spf13/afero"
)

// visitFunc inspects one directory. It may prune the walk by removing
// entries from folders before the walk recurses into them.
type visitFunc func(dir string, folders *[]string, files []string) error

// walkTree walks dir top-down, splitting each directory into folders and
// regular files. Unreadable directories are skipped without failing the
// walk; cancellation is checked per entry.
func walkTree(ctx context.Context, fs afero.Fs, dir string, visit visitFunc) error {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil
	}

	var folders, files []string
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch {
		case entry.IsDir():
			folders = append(folders, entry.Name())
		case entry.Mode().IsRegular():
			files = append(files, entry.Name())
		}
	}

	if err := visit(dir, &folders, files); err != nil {
		return err
	}

	for _, folder := range folders {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := walkTree(ctx, fs, filepath.Join(dir, folder), visit); err != nil {
			return err
		}
	}
	return nil
}
