package reconcile

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/docmeta/internal/blob"
	"github.com/lehigh-university-libraries/docmeta/internal/category"
	"github.com/lehigh-university-libraries/docmeta/internal/models"
	"github.com/lehigh-university-libraries/docmeta/internal/report"
	"gorm.io/gorm"
)

// Ingest creates a placeholder document for every stored file that no
// document references yet. The document is titled after the file stem and
// filed under the category chain named by the file's directories. Hidden
// files (empty stem) are ignored.
func (s *Service) Ingest(ctx context.Context) (*report.Report, error) {
	paths, err := s.blobs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}

	var existing []string
	if err := s.db.WithContext(ctx).Model(&models.Document{}).Pluck("source_path", &existing).Error; err != nil {
		return nil, fmt.Errorf("failed to load source paths: %w", err)
	}
	known := make(map[string]bool, len(existing))
	for _, p := range existing {
		known[p] = true
	}

	rep := report.New("ingest")
	defer rep.Finish()

	for i, p := range paths {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if known[p] {
			continue
		}
		if models.Stem(p) == "" {
			rep.Add(report.Outcome{Key: p, Status: report.StatusSkipped})
			continue
		}

		doc, err := s.ingestFile(ctx, p)
		if err != nil {
			slog.Error("Failed to ingest file", "path", p, "err", err)
			rep.Add(report.Outcome{Key: p, Status: report.StatusFailed, Error: err.Error()})
			continue
		}

		known[p] = true
		slog.Debug("Ingested file", "progress", fmt.Sprintf("%d/%d", i+1, len(paths)), "path", p, "document", doc.Name)
		rep.Add(report.Outcome{Key: p, DocumentID: int64(doc.ID), DocumentName: doc.Name, Status: report.StatusCreated})
	}

	slog.Info("Ingest complete", "files", len(paths), "created", rep.Counts()[report.StatusCreated])
	return rep, nil
}

func (s *Service) ingestFile(ctx context.Context, p string) (*models.Document, error) {
	doc := &models.Document{
		SourcePath: p,
		Title:      models.Stem(p),
		FileNames:  []models.DocumentFileName{{Name: p}},
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := AssignName(ctx, tx, doc); err != nil {
			return err
		}
		if err := tx.Create(doc).Error; err != nil {
			return fmt.Errorf("failed to create document: %w", err)
		}

		dir := path.Dir(p)
		if dir == "." || dir == "/" {
			return nil
		}
		chain, err := category.NewService(tx).VerifyPath(ctx, strings.Split(dir, "/"), true)
		if err != nil {
			return err
		}
		_, err = category.NewService(tx).Attach(ctx, doc, chain[len(chain)-1])
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Upload copies every file under source into the blob store, keyed by its
// path relative to source. Python files are skipped.
func (s *Service) Upload(ctx context.Context, source string) (*report.Report, error) {
	rep := report.New("upload")
	defer rep.Finish()

	err := filepath.WalkDir(source, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(source, p)
		if err != nil {
			return err
		}
		key := blob.Clean(filepath.ToSlash(rel))

		if strings.EqualFold(filepath.Ext(p), ".py") {
			rep.Add(report.Outcome{Key: key, Status: report.StatusSkipped})
			return nil
		}

		if err := s.uploadFile(ctx, p, key); err != nil {
			slog.Error("Failed to upload file", "path", p, "err", err)
			rep.Add(report.Outcome{Key: key, Status: report.StatusFailed, Error: err.Error()})
			return nil
		}
		slog.Info("Uploaded file", "source", p, "key", key)
		rep.Add(report.Outcome{Key: key, Status: report.StatusCreated})
		return nil
	})
	if err != nil {
		return rep, fmt.Errorf("failed to walk %s: %w", source, err)
	}
	return rep, nil
}

func (s *Service) uploadFile(ctx context.Context, p, key string) error {
	f, err := os.Open(p)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return s.blobs.Save(ctx, key, f)
}
