// Package entity resolves raw names to reference entities, creating them on
// first reference.
package entity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lehigh-university-libraries/docmeta/internal/fuzzy"
	"github.com/lehigh-university-libraries/docmeta/internal/models"
	"gorm.io/gorm"
)

// ErrEmptyName is returned when a name is blank after trimming
var ErrEmptyName = errors.New("entity name is empty")

// Store is a per-run registry of reference entities keyed by kind and
// normalized name. Entities created through it are persisted immediately and
// indexed, so later lookups in the same run reuse them.
type Store struct {
	db      *gorm.DB
	indexes map[models.Kind]*fuzzy.Index[*models.NamedEntity]
	matcher *fuzzy.Matcher
	created int
}

// NewStore loads every existing entity into the lookup index
func NewStore(ctx context.Context, db *gorm.DB, matcher *fuzzy.Matcher) (*Store, error) {
	if matcher == nil {
		matcher = fuzzy.New(fuzzy.DefaultCutoff)
	}

	s := &Store{
		db:      db,
		indexes: make(map[models.Kind]*fuzzy.Index[*models.NamedEntity], len(models.Kinds)),
		matcher: matcher,
	}
	for _, kind := range models.Kinds {
		s.indexes[kind] = fuzzy.NewIndex[*models.NamedEntity](matcher)
	}

	var entities []models.NamedEntity
	if err := db.WithContext(ctx).Order("id").Find(&entities).Error; err != nil {
		return nil, fmt.Errorf("failed to load entities: %w", err)
	}
	for i := range entities {
		e := &entities[i]
		if ix, ok := s.indexes[e.Kind]; ok {
			ix.Add(e.Name, e)
		}
	}

	slog.Debug("Entity index loaded", "entities", len(entities))
	return s, nil
}

// Resolve returns the entity of the given kind named raw. An exact match on
// the normalized name wins; with allowFuzzy, the closest name above the
// matcher cutoff is used next; otherwise a new entity is created with the
// trimmed original name. The boolean reports whether an entity was created.
func (s *Store) Resolve(ctx context.Context, kind models.Kind, raw string, allowFuzzy bool) (*models.NamedEntity, bool, error) {
	ix, ok := s.indexes[kind]
	if !ok {
		return nil, false, fmt.Errorf("unknown entity kind: %s", kind)
	}

	name := strings.TrimSpace(raw)
	if name == "" {
		return nil, false, ErrEmptyName
	}

	if e, ok := ix.Exact(name); ok {
		return e, false, nil
	}

	if allowFuzzy {
		if e, err := ix.Lookup(name); err == nil {
			slog.Debug("Fuzzy matched entity", "kind", kind, "raw", name, "matched", e.Name)
			return e, false, nil
		}
	}

	e := &models.NamedEntity{Kind: kind, Name: name}
	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create %s %q: %w", kind, name, err)
	}
	ix.Add(e.Name, e)
	s.created++

	slog.Debug("Created entity", "kind", kind, "name", name, "id", e.ID)
	return e, true, nil
}

// Created returns how many entities this store has created
func (s *Store) Created() int {
	return s.created
}
