package fuzzy

import "fmt"

// Index maps normalized names to values and resolves lookups exactly first,
// then by similarity.
type Index[T any] struct {
	matcher *Matcher
	values  map[string]T
	keys    []string
}

// NewIndex returns an empty index using m for approximate lookups
func NewIndex[T any](m *Matcher) *Index[T] {
	if m == nil {
		m = New(DefaultCutoff)
	}
	return &Index[T]{
		matcher: m,
		values:  make(map[string]T),
	}
}

// Add registers v under the normalized form of name. The first value added
// for a key wins.
func (ix *Index[T]) Add(name string, v T) {
	key := Normalize(name)
	if key == "" {
		return
	}
	if _, exists := ix.values[key]; exists {
		return
	}
	ix.values[key] = v
	ix.keys = append(ix.keys, key)
}

// Exact returns the value registered under the normalized name
func (ix *Index[T]) Exact(name string) (T, bool) {
	v, ok := ix.values[Normalize(name)]
	return v, ok
}

// Lookup resolves name exactly, then approximately. It returns ErrNoMatch
// when nothing clears the matcher's cutoff.
func (ix *Index[T]) Lookup(name string) (T, error) {
	if v, ok := ix.Exact(name); ok {
		return v, nil
	}

	var zero T
	key := Normalize(name)
	if key == "" {
		return zero, fmt.Errorf("%w: empty name", ErrNoMatch)
	}
	match, ok := ix.matcher.BestMatch(key, ix.keys)
	if !ok {
		return zero, fmt.Errorf("%w: %q", ErrNoMatch, name)
	}
	return ix.values[match], nil
}

// Len returns the number of distinct keys
func (ix *Index[T]) Len() int {
	return len(ix.keys)
}
