// Package blob provides path-keyed storage for source files.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrNotFound is returned when no blob exists at a path
var ErrNotFound = errors.New("blob not found")

// Store is a blob store keyed by slash separated path. Path is the sole identity.
type Store interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Save(ctx context.Context, path string, r io.Reader) error
	List(ctx context.Context) ([]string, error)
}

// ReadAll reads the whole blob at p. The blob is closed before returning,
// even when the read fails.
func ReadAll(ctx context.Context, s Store, p string) ([]byte, error) {
	rc, err := s.Open(ctx, p)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", p, err)
	}
	return data, nil
}

// Clean normalizes a blob path: forward slashes, no leading slash, no dot segments
func Clean(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}
