// Package category maintains the hierarchical document category tree.
package category

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gosimple/slug"
	"github.com/lehigh-university-libraries/docmeta/internal/models"
	"gorm.io/gorm"
)

// MaxSlugLength bounds generated slugs
const MaxSlugLength = 50

// ErrNotFound is returned when a path element does not exist
var ErrNotFound = errors.New("category not found")

// Service reads and writes categories
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Slugify converts a category name to its slug
func Slugify(name string) string {
	s := slug.Make(name)
	if len(s) > MaxSlugLength {
		s = strings.TrimRight(s[:MaxSlugLength], "-")
	}
	return s
}

func (s *Service) child(ctx context.Context, parent *models.DocumentCategory, column, value string) (models.DocumentCategory, error) {
	var c models.DocumentCategory
	q := s.db.WithContext(ctx).Where(column+" = ?", value)
	if parent == nil {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where("parent_id = ?", parent.ID)
	}
	err := q.Order("id").First(&c).Error
	return c, err
}

// VerifyPath resolves names from the root down, one level per name. Missing
// levels are created when createIfAbsent is set; otherwise ErrNotFound is
// returned. The full chain is returned root first.
func (s *Service) VerifyPath(ctx context.Context, names []string, createIfAbsent bool) ([]models.DocumentCategory, error) {
	result := make([]models.DocumentCategory, 0, len(names))
	var parent *models.DocumentCategory

	for _, name := range names {
		c, err := s.child(ctx, parent, "name", name)
		switch {
		case err == nil:
		case errors.Is(err, gorm.ErrRecordNotFound):
			if !createIfAbsent {
				return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
			}
			c = models.DocumentCategory{Name: name, Slug: Slugify(name), Active: true}
			if parent != nil {
				c.ParentID = &parent.ID
			}
			if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
				return nil, fmt.Errorf("failed to create category %q: %w", name, err)
			}
			slog.Debug("Created category", "name", name, "id", c.ID)
		default:
			return nil, fmt.Errorf("failed to look up category %q: %w", name, err)
		}

		result = append(result, c)
		parent = &result[len(result)-1]
	}

	return result, nil
}

// FromSlugs resolves a chain of slugs from the root down without creating anything
func (s *Service) FromSlugs(ctx context.Context, slugs []string) ([]models.DocumentCategory, error) {
	result := make([]models.DocumentCategory, 0, len(slugs))
	var parent *models.DocumentCategory

	for _, sl := range slugs {
		c, err := s.child(ctx, parent, "slug", sl)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: slug %q", ErrNotFound, sl)
			}
			return nil, fmt.Errorf("failed to look up slug %q: %w", sl, err)
		}
		result = append(result, c)
		parent = &result[len(result)-1]
	}

	return result, nil
}

// Tree loads the whole hierarchy
func (s *Service) Tree(ctx context.Context) (*Tree, error) {
	var categories []models.DocumentCategory
	if err := s.db.WithContext(ctx).Order("id").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	return NewTree(categories), nil
}

// Roots returns the parentless categories
func (s *Service) Roots(ctx context.Context) ([]models.DocumentCategory, error) {
	t, err := s.Tree(ctx)
	if err != nil {
		return nil, err
	}
	return t.Roots(), nil
}

// SetActive updates a category's active flag. Deactivation cascades to every
// descendant; activation applies to the category alone.
func (s *Service) SetActive(ctx context.Context, id uint, active bool) error {
	t, err := s.Tree(ctx)
	if err != nil {
		return err
	}
	if _, ok := t.Get(id); !ok {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}

	ids := []uint{id}
	if !active {
		for _, d := range t.Descendants(id) {
			ids = append(ids, d.ID)
		}
	}

	err = s.db.WithContext(ctx).Model(&models.DocumentCategory{}).
		Where("id IN ?", ids).
		Update("active", active).Error
	if err != nil {
		return fmt.Errorf("failed to update category %d: %w", id, err)
	}

	slog.Debug("Category active flag updated", "id", id, "active", active, "affected", len(ids))
	return nil
}

// OrphanDocuments returns documents that belong to no category
func (s *Service) OrphanDocuments(ctx context.Context) ([]models.Document, error) {
	var docs []models.Document
	err := s.db.WithContext(ctx).
		Where("NOT EXISTS (SELECT 1 FROM " + models.DocumentCategoriesTable + " m WHERE m.document_id = documents.id)").
		Order("title").
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load orphan documents: %w", err)
	}
	return docs, nil
}

// Prune deletes categories that hold no documents and have no children,
// repeating until none remain. It returns the deleted categories.
func (s *Service) Prune(ctx context.Context) ([]models.DocumentCategory, error) {
	var removed []models.DocumentCategory

	for {
		var empty []models.DocumentCategory
		err := s.db.WithContext(ctx).
			Where("NOT EXISTS (SELECT 1 FROM " + models.DocumentCategoriesTable + " m WHERE m.document_category_id = document_categories.id)").
			Where("NOT EXISTS (SELECT 1 FROM document_categories c WHERE c.parent_id = document_categories.id)").
			Find(&empty).Error
		if err != nil {
			return removed, fmt.Errorf("failed to find empty categories: %w", err)
		}
		if len(empty) == 0 {
			return removed, nil
		}

		if err := s.db.WithContext(ctx).Delete(&empty).Error; err != nil {
			return removed, fmt.Errorf("failed to delete empty categories: %w", err)
		}
		removed = append(removed, empty...)
	}
}

// Attach adds c to the document's categories unless it is already there
func (s *Service) Attach(ctx context.Context, doc *models.Document, c models.DocumentCategory) (bool, error) {
	for _, existing := range doc.Categories {
		if existing.ID == c.ID {
			return false, nil
		}
	}
	if err := s.db.WithContext(ctx).Model(doc).Association("Categories").Append(&c); err != nil {
		return false, fmt.Errorf("failed to attach category %d: %w", c.ID, err)
	}
	return true, nil
}
