package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Dir stores blobs as files below a root directory
type Dir struct {
	Root string
}

func NewDir(root string) *Dir {
	return &Dir{Root: root}
}

func (d *Dir) full(p string) string {
	return filepath.Join(d.Root, filepath.FromSlash(Clean(p)))
}

func (d *Dir) Open(_ context.Context, p string) (io.ReadCloser, error) {
	f, err := os.Open(d.full(p))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return nil, fmt.Errorf("failed to open blob %s: %w", p, err)
	}
	return f, nil
}

func (d *Dir) Save(_ context.Context, p string, r io.Reader) error {
	target := d.full(p)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create blob directory: %w", err)
	}

	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create blob %s: %w", p, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("failed to write blob %s: %w", p, err)
	}
	return nil
}

func (d *Dir) List(ctx context.Context) ([]string, error) {
	var result []string
	err := filepath.WalkDir(d.Root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(d.Root, p)
		if err != nil {
			return err
		}
		result = append(result, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}
	sort.Strings(result)
	return result, nil
}
