package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lehigh-university-libraries/docmeta/internal/entity"
	"github.com/lehigh-university-libraries/docmeta/internal/extract"
	"github.com/lehigh-university-libraries/docmeta/internal/models"
	"github.com/lehigh-university-libraries/docmeta/internal/report"
	"gorm.io/gorm/clause"
)

// Sweep re-derives metadata for every document from its source file. Only
// unset fields are filled unless overwrite is true. A document that fails is
// recorded in the report and the sweep moves on.
func (s *Service) Sweep(ctx context.Context, overwrite bool) (*report.Report, error) {
	var ids []uint
	if err := s.db.WithContext(ctx).Model(&models.Document{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	entities, err := entity.NewStore(ctx, s.db, s.matcher)
	if err != nil {
		return nil, err
	}

	rep := report.New("sweep")
	defer rep.Finish()

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		o := s.sweepDocument(ctx, entities, id, overwrite)
		if o.Failed() {
			slog.Warn("Metadata sweep failed for document", "document", id, "err", o.Error)
		} else {
			slog.Debug("Swept document", "progress", fmt.Sprintf("%d/%d", i+1, len(ids)), "document", id, "status", o.Status)
		}
		rep.Add(o)
	}

	counts := rep.Counts()
	slog.Info("Sweep complete",
		"documents", len(ids),
		"updated", counts[report.StatusUpdated],
		"failed", counts[report.StatusFailed])
	return rep, nil
}

func (s *Service) sweepDocument(ctx context.Context, entities *entity.Store, id uint, overwrite bool) (o report.Outcome) {
	o = report.Outcome{DocumentID: int64(id)}
	defer func() {
		if r := recover(); r != nil {
			o.Status = report.StatusFailed
			o.Error = fmt.Sprintf("panic: %v", r)
		}
	}()

	var doc models.Document
	if err := s.db.WithContext(ctx).Preload("Authors").First(&doc, id).Error; err != nil {
		o.Status = report.StatusFailed
		o.Error = fmt.Sprintf("failed to load document: %v", err)
		return o
	}
	o.Key = doc.SourcePath
	o.DocumentName = doc.Name

	fields, rel, err := s.UpdateFromSource(ctx, entities, &doc, overwrite)
	o.Fields = fields
	o.Related = rel
	o.Changed = len(fields) > 0
	if err != nil {
		o.Status = report.StatusFailed
		o.Error = err.Error()
		return o
	}

	if !o.Changed {
		o.Status = report.StatusUnchanged
		return o
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(&doc).Error; err != nil {
		o.Status = report.StatusFailed
		o.Error = fmt.Sprintf("failed to save document: %v", err)
		return o
	}
	o.Status = report.StatusUpdated
	return o
}

// UpdateFromSource applies extracted source file metadata to doc, derives
// year, month and day, and fills in a missing content hash. It returns the
// document fields it changed and whether a relation was written. The
// document row itself is not saved.
func (s *Service) UpdateFromSource(ctx context.Context, entities *entity.Store, doc *models.Document, overwrite bool) ([]string, bool, error) {
	md, err := s.extractors.Extract(ctx, s.blobs, doc.SourcePath)
	if err != nil {
		return nil, false, err
	}

	var fields []string
	rel := false

	if t, ok := md.Time(extract.FieldCreated); ok && (overwrite || doc.SourceFileCreated == nil) && !sameTime(doc.SourceFileCreated, t) {
		doc.SourceFileCreated = &t
		fields = append(fields, extract.FieldCreated)
	}
	if t, ok := md.Time(extract.FieldModified); ok && (overwrite || doc.SourceFileModified == nil) && !sameTime(doc.SourceFileModified, t) {
		doc.SourceFileModified = &t
		fields = append(fields, extract.FieldModified)
	}

	// a title equal to the file stem was only a placeholder from ingest
	if title, ok := md.String(extract.FieldTitle); ok && title != doc.Title &&
		(overwrite || doc.Title == "" || doc.Title == doc.SourceStem()) {
		doc.Title = title
		fields = append(fields, extract.FieldTitle)
	}

	if author, ok := md.String(extract.FieldAuthor); ok && (overwrite || len(doc.Authors) == 0) {
		added, err := s.addAuthor(ctx, entities, doc, author)
		if err != nil {
			return fields, rel, err
		}
		rel = added
	}

	fields = append(fields, deriveDate(doc, overwrite)...)

	if doc.SHA == nil {
		sha := s.hash(ctx, doc.SourcePath)
		doc.SHA = &sha
		fields = append(fields, "sha")
	}

	return fields, rel, nil
}

func (s *Service) addAuthor(ctx context.Context, entities *entity.Store, doc *models.Document, name string) (bool, error) {
	author, _, err := entities.Resolve(ctx, models.KindAuthor, name, false)
	if errors.Is(err, entity.ErrEmptyName) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	for _, existing := range doc.Authors {
		if existing.ID == author.ID {
			return false, nil
		}
	}
	if err := s.db.WithContext(ctx).Model(doc).Association("Authors").Append(author); err != nil {
		return false, fmt.Errorf("failed to add author %q: %w", author.Name, err)
	}
	return true, nil
}

// deriveDate fills year, month and day from the source file's modified
// time, else its created time, else the document's creation time.
func deriveDate(doc *models.Document, overwrite bool) []string {
	var when time.Time
	switch {
	case doc.SourceFileModified != nil:
		when = *doc.SourceFileModified
	case doc.SourceFileCreated != nil:
		when = *doc.SourceFileCreated
	case !doc.CreatedAt.IsZero():
		when = doc.CreatedAt
	default:
		return nil
	}

	var fields []string
	set := func(name string, field **int, v int) {
		if *field != nil && (!overwrite || **field == v) {
			return
		}
		*field = &v
		fields = append(fields, name)
	}
	set("year", &doc.Year, when.Year())
	set("month", &doc.Month, int(when.Month()))
	set("day", &doc.Day, when.Day())
	return fields
}

func sameTime(current *time.Time, t time.Time) bool {
	return current != nil && current.Equal(t)
}
