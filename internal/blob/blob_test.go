package blob

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestClean(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"reports/annual.pdf", "reports/annual.pdf"},
		{"/reports/annual.pdf", "reports/annual.pdf"},
		{"reports\\2012\\annual.pdf", "reports/2012/annual.pdf"},
		{"reports/../annual.pdf", "annual.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Clean(tt.input); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func testStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	if err := store.Save(ctx, "reports/2012/annual.pdf", strings.NewReader("annual")); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	if err := store.Save(ctx, "abstract.txt", strings.NewReader("abstract")); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	data, err := ReadAll(ctx, store, "reports/2012/annual.pdf")
	if err != nil {
		t.Fatalf("Failed to read: %v", err)
	}
	if string(data) != "annual" {
		t.Errorf("Expected annual, got %s", data)
	}

	paths, err := store.List(ctx)
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(paths) != 2 || paths[0] != "abstract.txt" || paths[1] != "reports/2012/annual.pdf" {
		t.Errorf("Unexpected listing: %v", paths)
	}

	if _, err := ReadAll(ctx, store, "missing.pdf"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemory())
}

func TestDirStore(t *testing.T) {
	testStore(t, NewDir(t.TempDir()))
}
