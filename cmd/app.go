package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/lehigh-university-libraries/docmeta/internal/blob"
	"github.com/lehigh-university-libraries/docmeta/internal/config"
	"github.com/lehigh-university-libraries/docmeta/internal/database"
	"github.com/lehigh-university-libraries/docmeta/internal/fuzzy"
	"github.com/lehigh-university-libraries/docmeta/internal/importer"
	"github.com/lehigh-university-libraries/docmeta/internal/reconcile"
	"github.com/lehigh-university-libraries/docmeta/internal/report"
	"gorm.io/gorm"
)

// app carries the global flags and the loaded configuration to subcommands
type app struct {
	configFile string
	verbose    bool
	logLevel   string
	logFormat  string

	cfg *config.Config
}

// openDB connects to the configured database and migrates the schema
func (a *app) openDB() (*gorm.DB, error) {
	db, err := database.Open(a.cfg.Database.Driver, a.cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		database.Close(db)
		return nil, err
	}
	return db, nil
}

// openBlobs returns the configured blob store
func (a *app) openBlobs(ctx context.Context) (blob.Store, error) {
	switch strings.ToLower(a.cfg.Blob.Driver) {
	case "s3":
		return blob.NewS3(ctx, blob.S3Config{
			Endpoint:  a.cfg.S3.Endpoint,
			AccessKey: a.cfg.S3.AccessKey,
			SecretKey: a.cfg.S3.SecretKey,
			Bucket:    a.cfg.S3.Bucket,
			UseSSL:    a.cfg.S3.UseSSL,
		})
	default:
		return blob.NewDir(a.cfg.Blob.Root), nil
	}
}

// service opens the database and blob store and builds a reconciliation
// service. The returned function closes the database.
func (a *app) service(ctx context.Context, columnsFile string) (*reconcile.Service, func(), error) {
	if columnsFile == "" {
		columnsFile = a.cfg.Import.Columns
	}
	columns, err := importer.LoadColumns(columnsFile)
	if err != nil {
		return nil, nil, err
	}

	db, err := a.openDB()
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if err := database.Close(db); err != nil {
			slog.Warn("Failed to close database", "err", err)
		}
	}

	blobs, err := a.openBlobs(ctx)
	if err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("failed to open blob store: %w", err)
	}

	svc := reconcile.NewService(db, blobs, reconcile.Options{
		Matcher: fuzzy.New(a.cfg.Fuzzy.Cutoff),
		Columns: columns,
	})
	return svc, closeDB, nil
}

// finish prints the report summary and saves it when a path is given
func finish(w io.Writer, rep *report.Report, path string) error {
	if rep == nil {
		return nil
	}
	rep.PrintSummary(w)
	if path == "" {
		return nil
	}
	if err := rep.Save(path); err != nil {
		return err
	}
	fmt.Fprintf(w, "Report saved to: %s\n", path)
	return nil
}
