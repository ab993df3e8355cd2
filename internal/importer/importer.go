// Package importer applies spreadsheet rows to documents through a
// declarative column table.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/lehigh-university-libraries/docmeta/internal/category"
	"github.com/lehigh-university-libraries/docmeta/internal/entity"
	"github.com/lehigh-university-libraries/docmeta/internal/fuzzy"
	"github.com/lehigh-university-libraries/docmeta/internal/models"
	"github.com/lehigh-university-libraries/docmeta/internal/report"
	"github.com/lehigh-university-libraries/docmeta/internal/sheet"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Options configures an import run
type Options struct {
	Columns []Column
	Matcher *fuzzy.Matcher
}

// Importer holds the lookup tables for one import run. They are built once
// at construction and reused for every row.
type Importer struct {
	db         *gorm.DB
	columns    []Column
	files      map[string][]*models.Document
	users      *fuzzy.Index[*models.User]
	entities   *entity.Store
	categories *category.Service
	tags       map[string]*models.Tag
}

// New builds the filename index, the user directory index and the entity
// store for a run.
func New(ctx context.Context, db *gorm.DB, opts Options) (*Importer, error) {
	columns := opts.Columns
	if columns == nil {
		columns = DefaultColumns()
	}
	if err := Validate(columns); err != nil {
		return nil, err
	}

	matcher := opts.Matcher
	if matcher == nil {
		matcher = fuzzy.New(fuzzy.DefaultCutoff)
	}

	entities, err := entity.NewStore(ctx, db, matcher)
	if err != nil {
		return nil, err
	}

	im := &Importer{
		db:         db,
		columns:    columns,
		entities:   entities,
		categories: category.NewService(db),
		tags:       make(map[string]*models.Tag),
	}

	if err := im.loadFiles(ctx); err != nil {
		return nil, err
	}
	if err := im.loadUsers(ctx, matcher); err != nil {
		return nil, err
	}
	return im, nil
}

// loadFiles maps every historical file base name to its documents. A
// document reachable through several names is loaded once and shared, and
// appears at most once under each base name.
func (im *Importer) loadFiles(ctx context.Context) error {
	var docs []*models.Document
	err := im.db.WithContext(ctx).
		Preload("Authors").Preload("Editors").Preload("URLs").
		Preload("Tags").Preload("Categories").Preload("FileNames").
		Where("id IN (?)", im.db.Model(&models.DocumentFileName{}).Select("document_id")).
		Order("id").
		Find(&docs).Error
	if err != nil {
		return fmt.Errorf("failed to load documents: %w", err)
	}

	im.files = make(map[string][]*models.Document)
	for _, doc := range docs {
		seen := make(map[string]bool, len(doc.FileNames))
		for _, f := range doc.FileNames {
			base := f.Base()
			if seen[base] {
				continue
			}
			seen[base] = true
			im.files[base] = append(im.files[base], doc)
		}
	}

	slog.Debug("Filename index loaded", "documents", len(docs), "names", len(im.files))
	return nil
}

func (im *Importer) loadUsers(ctx context.Context, matcher *fuzzy.Matcher) error {
	var users []*models.User
	if err := im.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return fmt.Errorf("failed to load users: %w", err)
	}

	im.users = fuzzy.NewIndex[*models.User](matcher)
	for _, u := range users {
		im.users.Add(u.Username, u)
		im.users.Add(u.FullName(), u)
	}
	return nil
}

// Documents returns the documents associated with a file name. Only the
// base name is significant.
func (im *Importer) Documents(filename string) []*models.Document {
	name := strings.TrimSpace(filename)
	if name == "" {
		return nil
	}
	return im.files[path.Base(name)]
}

// Import applies every row of s. A missing heading fails the whole import
// before any row is touched; row and document failures are recorded in the
// report and the run continues.
func (im *Importer) Import(ctx context.Context, s *sheet.Sheet) (*report.Report, error) {
	records, err := s.Records(Headings(im.columns))
	if err != nil {
		return nil, err
	}

	rep := report.New("import")
	defer rep.Finish()

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		row := s.FirstRow + i
		key := strings.TrimSpace(cellString(rec[KeyHeading]))
		docs := im.Documents(key)
		if len(docs) == 0 {
			rep.Add(report.Outcome{Row: row, Key: key, Status: report.StatusSkipped})
			continue
		}

		slog.Debug("Importing row", "progress", fmt.Sprintf("%d/%d", i+1, len(records)), "file", key, "documents", len(docs))
		rep.Add(report.Outcome{Row: row, Key: key, Status: report.StatusMatched})
		for _, doc := range docs {
			o := im.ApplyRow(ctx, doc, rec)
			o.Row = row
			o.Key = key
			rep.Add(o)
		}
	}

	counts := rep.Counts()
	slog.Info("Import complete",
		"rows", len(records),
		"skipped", counts[report.StatusSkipped],
		"updated", counts[report.StatusUpdated],
		"failed", counts[report.StatusFailed],
		"entities_created", im.entities.Created())
	return rep, nil
}

// ApplyRow runs every column transform against doc and saves the document
// row once if any field changed. Relations are written by the transforms
// themselves. When a transform or the save fails, field changes made by the
// row are discarded from doc and the failed outcome lists none.
func (im *Importer) ApplyRow(ctx context.Context, doc *models.Document, rec map[string]any) report.Outcome {
	o := report.Outcome{DocumentID: int64(doc.ID), DocumentName: doc.Name}
	before := *doc

	for _, col := range im.columns {
		value := rec[col.Heading]
		if value == nil {
			continue
		}
		transform, ok := transforms[col.Transform]
		if !ok {
			continue
		}

		eff, err := transform(ctx, im, doc, col, value)
		o.Fields = append(o.Fields, eff.fields...)
		o.Related = o.Related || eff.related
		if err != nil {
			rollback(doc, before)
			o.Fields = nil
			o.Status = report.StatusFailed
			o.Error = fmt.Sprintf("%s: %v", col.Heading, err)
			slog.Error("Column transform failed", "document", doc.ID, "column", col.Heading, "err", err)
			return o
		}
	}

	o.Changed = len(o.Fields) > 0
	if !o.Changed {
		o.Status = report.StatusUnchanged
		return o
	}

	if err := im.db.WithContext(ctx).Omit(clause.Associations).Save(doc).Error; err != nil {
		rollback(doc, before)
		o.Fields = nil
		o.Changed = false
		o.Status = report.StatusFailed
		o.Error = fmt.Sprintf("failed to save document: %v", err)
		slog.Error("Failed to save document", "document", doc.ID, "err", err)
		return o
	}
	o.Status = report.StatusUpdated
	return o
}

// rollback restores the document fields from before. Relations are kept as
// they are now since transforms persist them as they go.
func rollback(doc *models.Document, before models.Document) {
	before.Authors, before.Editors, before.URLs = doc.Authors, doc.Editors, doc.URLs
	before.Tags, before.Categories, before.FileNames = doc.Tags, doc.Categories, doc.FileNames
	*doc = before
}

// EntitiesCreated returns how many reference entities the run created
func (im *Importer) EntitiesCreated() int {
	return im.entities.Created()
}
