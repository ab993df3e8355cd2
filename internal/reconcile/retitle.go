package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/docmeta/internal/models"
	"github.com/lehigh-university-libraries/docmeta/internal/report"
	"github.com/lehigh-university-libraries/docmeta/internal/unique"
)

// Retitle makes every document title unique, suffixing " (N)" where another
// document already holds the title. Documents are visited in id order, so
// the newest holder of a shared title keeps it unchanged.
func (s *Service) Retitle(ctx context.Context) (*report.Report, error) {
	var docs []models.Document
	if err := s.db.WithContext(ctx).Order("id").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}

	rep := report.New("retitle")
	defer rep.Finish()

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		o := report.Outcome{Key: doc.Title, DocumentID: int64(doc.ID), DocumentName: doc.Name}

		col := unique.Column{DB: s.db, Model: &models.Document{}, Name: "title", ExcludeID: doc.ID}
		title, err := col.Allocate(ctx, doc.Title)
		if err != nil {
			o.Status = report.StatusFailed
			o.Error = err.Error()
			rep.Add(o)
			continue
		}
		if title == doc.Title {
			o.Status = report.StatusUnchanged
			rep.Add(o)
			continue
		}

		if err := s.db.WithContext(ctx).Model(&models.Document{}).Where("id = ?", doc.ID).Update("title", title).Error; err != nil {
			o.Status = report.StatusFailed
			o.Error = fmt.Sprintf("failed to save title: %v", err)
			rep.Add(o)
			continue
		}
		slog.Debug("Retitled document", "document", doc.ID, "from", doc.Title, "to", title)
		o.Status = report.StatusUpdated
		o.Changed = true
		o.Fields = []string{"title"}
		rep.Add(o)
	}

	return rep, nil
}
