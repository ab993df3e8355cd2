// Package reconcile drives the batch operations that bring stored files,
// spreadsheet metadata and document records into agreement.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lehigh-university-libraries/docmeta/internal/blob"
	"github.com/lehigh-university-libraries/docmeta/internal/category"
	"github.com/lehigh-university-libraries/docmeta/internal/extract"
	"github.com/lehigh-university-libraries/docmeta/internal/fuzzy"
	"github.com/lehigh-university-libraries/docmeta/internal/importer"
	"github.com/lehigh-university-libraries/docmeta/internal/models"
	"github.com/lehigh-university-libraries/docmeta/internal/report"
	"github.com/lehigh-university-libraries/docmeta/internal/sheet"
	"github.com/lehigh-university-libraries/docmeta/internal/unique"
	"gorm.io/gorm"
)

// Options configures a Service. Zero values select the defaults.
type Options struct {
	Extractors *extract.Registry
	Matcher    *fuzzy.Matcher
	Columns    []importer.Column
}

// Service runs reconciliation operations against one database and blob store
type Service struct {
	db         *gorm.DB
	blobs      blob.Store
	extractors *extract.Registry
	matcher    *fuzzy.Matcher
	columns    []importer.Column
}

// NewService creates a reconciliation service
func NewService(db *gorm.DB, blobs blob.Store, opts Options) *Service {
	if opts.Extractors == nil {
		opts.Extractors = extract.NewRegistry()
	}
	if opts.Matcher == nil {
		opts.Matcher = fuzzy.New(fuzzy.DefaultCutoff)
	}
	if opts.Columns == nil {
		opts.Columns = importer.DefaultColumns()
	}
	return &Service{
		db:         db,
		blobs:      blobs,
		extractors: opts.Extractors,
		matcher:    opts.Matcher,
		columns:    opts.Columns,
	}
}

// Categories returns a category service on the same database
func (s *Service) Categories() *category.Service {
	return category.NewService(s.db)
}

// Import applies a loaded sheet. The importer's lookup tables are built
// fresh for every call.
func (s *Service) Import(ctx context.Context, sh *sheet.Sheet) (*report.Report, error) {
	im, err := importer.New(ctx, s.db, importer.Options{Columns: s.columns, Matcher: s.matcher})
	if err != nil {
		return nil, fmt.Errorf("failed to prepare import: %w", err)
	}
	slog.Info("Importing sheet", "sheet", sh.Name, "rows", len(sh.Rows))
	return im.Import(ctx, sh)
}

// NameCandidate returns the value a document's name is derived from: the
// existing name, else the stem of its first file name, else its title.
func NameCandidate(doc *models.Document) string {
	if name := strings.TrimSpace(doc.Name); name != "" {
		return name
	}
	for _, f := range doc.FileNames {
		if stem := models.Stem(f.Base()); stem != "" {
			return stem
		}
	}
	return strings.TrimSpace(doc.Title)
}

// AssignName gives doc a name no other document holds
func AssignName(ctx context.Context, db *gorm.DB, doc *models.Document) error {
	col := unique.Column{DB: db, Model: &models.Document{}, Name: "name", ExcludeID: doc.ID}
	name, err := col.Allocate(ctx, NameCandidate(doc))
	if err != nil {
		return fmt.Errorf("failed to allocate document name: %w", err)
	}
	doc.Name = name
	return nil
}
