package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
)

// Memory is an in-process blob store
type Memory struct {
	blobs map[string][]byte
	mu    sync.RWMutex
}

func NewMemory() *Memory {
	return &Memory{
		blobs: make(map[string][]byte),
	}
}

func (m *Memory) Get(p string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, exists := m.blobs[Clean(p)]
	return data, exists
}

func (m *Memory) Set(p string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[Clean(p)] = data
}

func (m *Memory) Open(_ context.Context, p string) (io.ReadCloser, error) {
	data, ok := m.Get(p)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *Memory) Save(_ context.Context, p string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read blob content: %w", err)
	}
	m.Set(p, data)
	return nil
}

func (m *Memory) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]string, 0, len(m.blobs))
	for k := range m.blobs {
		result = append(result, k)
	}
	sort.Strings(result)
	return result, nil
}
