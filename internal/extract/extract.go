package extract

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/docmeta/internal/blob"
)

// Metadata keys produced by extractors
const (
	FieldAuthor   = "author"
	FieldTitle    = "title"
	FieldCreated  = "source_file_created"
	FieldModified = "source_file_modified"
)

// Metadata maps a field name to a decoded value (string or time.Time)
type Metadata map[string]any

// String returns the value for key if it is a non-empty string
func (m Metadata) String(key string) (string, bool) {
	s, ok := m[key].(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// Time returns the value for key if it is a timestamp
func (m Metadata) Time(key string) (time.Time, bool) {
	t, ok := m[key].(time.Time)
	return t, ok
}

// Extractor pulls metadata out of the raw bytes of one file format
type Extractor interface {
	Extract(data []byte) (Metadata, error)
}

// ExtractorFunc adapts a function to the Extractor interface
type ExtractorFunc func(data []byte) (Metadata, error)

func (f ExtractorFunc) Extract(data []byte) (Metadata, error) {
	return f(data)
}

// Registry dispatches on lowercased file extension
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry returns a registry with the PDF extractor registered
func NewRegistry() *Registry {
	r := &Registry{extractors: make(map[string]Extractor)}
	r.Register(".pdf", PDF{})
	return r
}

// Register adds or replaces the extractor for ext (".pdf" or "pdf")
func (r *Registry) Register(ext string, e Extractor) {
	r.extractors[normalizeExt(ext)] = e
}

// Supports reports whether an extractor exists for the file at p
func (r *Registry) Supports(p string) bool {
	_, ok := r.extractors[normalizeExt(path.Ext(p))]
	return ok
}

// Extract reads the blob at p and returns its metadata. Unknown extensions
// yield an empty mapping without touching the store.
func (r *Registry) Extract(ctx context.Context, store blob.Store, p string) (Metadata, error) {
	e, ok := r.extractors[normalizeExt(path.Ext(p))]
	if !ok {
		return Metadata{}, nil
	}

	data, err := blob.ReadAll(ctx, store, p)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}

	md, err := e.Extract(data)
	if err != nil {
		return nil, fmt.Errorf("failed to extract metadata from %s: %w", p, err)
	}
	if md == nil {
		md = Metadata{}
	}
	return md, nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
