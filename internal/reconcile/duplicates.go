package reconcile

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/lehigh-university-libraries/docmeta/internal/models"
	"github.com/lehigh-university-libraries/docmeta/internal/report"
)

const (
	// MissingFileSHA is recorded when the source file cannot be read
	MissingFileSHA = "file missing"
	// DuplicatePrefixLength is how many hash characters two documents must
	// share to be reported as probable duplicates
	DuplicatePrefixLength = 8
)

// DuplicateGroup is a set of documents whose content hashes share a prefix
type DuplicateGroup struct {
	Prefix    string
	Documents []models.Document
}

// hash returns the SHA-1 of the blob at p, or MissingFileSHA when it cannot
// be read. The blob is closed before returning.
func (s *Service) hash(ctx context.Context, p string) string {
	rc, err := s.blobs.Open(ctx, p)
	if err != nil {
		slog.Warn("Source file unavailable for hashing", "path", p, "err", err)
		return MissingFileSHA
	}
	defer rc.Close()

	h := sha1.New()
	if _, err := io.Copy(h, rc); err != nil {
		slog.Warn("Failed to read source file for hashing", "path", p, "err", err)
		return MissingFileSHA
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Duplicates computes any missing content hashes, then groups documents by
// hash prefix. Only groups of two or more are returned. Documents whose file
// is missing are never grouped together.
func (s *Service) Duplicates(ctx context.Context) ([]DuplicateGroup, *report.Report, error) {
	var docs []models.Document
	if err := s.db.WithContext(ctx).Order("id").Find(&docs).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load documents: %w", err)
	}

	rep := report.New("duplicates")
	defer rep.Finish()

	byPrefix := make(map[string][]models.Document)
	for i := range docs {
		if err := ctx.Err(); err != nil {
			return nil, rep, err
		}
		doc := &docs[i]

		if doc.SHA == nil {
			sha := s.hash(ctx, doc.SourcePath)
			err := s.db.WithContext(ctx).Model(&models.Document{}).Where("id = ?", doc.ID).Update("sha", sha).Error
			if err != nil {
				rep.Add(report.Outcome{Key: doc.SourcePath, DocumentID: int64(doc.ID), DocumentName: doc.Name, Status: report.StatusFailed, Error: err.Error()})
				continue
			}
			doc.SHA = &sha
		}

		if *doc.SHA == MissingFileSHA || len(*doc.SHA) < DuplicatePrefixLength {
			continue
		}
		prefix := (*doc.SHA)[:DuplicatePrefixLength]
		byPrefix[prefix] = append(byPrefix[prefix], *doc)
	}

	var groups []DuplicateGroup
	for prefix, members := range byPrefix {
		if len(members) < 2 {
			continue
		}
		groups = append(groups, DuplicateGroup{Prefix: prefix, Documents: members})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Prefix < groups[j].Prefix })

	for _, g := range groups {
		for _, d := range g.Documents {
			rep.Add(report.Outcome{Key: g.Prefix, DocumentID: int64(d.ID), DocumentName: d.Name, Status: report.StatusDuplicate})
		}
	}

	slog.Info("Duplicate scan complete", "documents", len(docs), "groups", len(groups))
	return groups, rep, nil
}
