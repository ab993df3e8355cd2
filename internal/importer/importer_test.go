package importer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/docmeta/internal/database"
	"github.com/lehigh-university-libraries/docmeta/internal/models"
	"github.com/lehigh-university-libraries/docmeta/internal/report"
	"github.com/lehigh-university-libraries/docmeta/internal/sheet"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := database.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	t.Cleanup(func() { database.Close(db) })
	return db
}

func createDoc(t *testing.T, db *gorm.DB, name string, filenames ...string) *models.Document {
	t.Helper()
	doc := &models.Document{Name: name, Title: name}
	for _, f := range filenames {
		doc.FileNames = append(doc.FileNames, models.DocumentFileName{Name: f})
	}
	if err := db.Create(doc).Error; err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}
	return doc
}

func reload(t *testing.T, db *gorm.DB, id uint) models.Document {
	t.Helper()
	var doc models.Document
	err := db.Preload("Authors").Preload("Tags").Preload("Categories").Preload("FileNames").
		Preload("Distribution").Preload("Receiver").
		First(&doc, id).Error
	if err != nil {
		t.Fatalf("Failed to reload document %d: %v", id, err)
	}
	return doc
}

func newImporter(t *testing.T, db *gorm.DB, columns ...Column) *Importer {
	t.Helper()
	columns = append([]Column{{Heading: KeyHeading}}, columns...)
	im, err := New(context.Background(), db, Options{Columns: columns})
	if err != nil {
		t.Fatalf("Failed to create importer: %v", err)
	}
	return im
}

// importerDoc returns the importer's shared copy of the document
func importerDoc(t *testing.T, im *Importer, filename string) *models.Document {
	t.Helper()
	docs := im.Documents(filename)
	if len(docs) != 1 {
		t.Fatalf("Expected one document for %s, got %d", filename, len(docs))
	}
	return docs[0]
}

func TestImportFanOut(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	docA := createDoc(t, db, "doc-a", "2014/reports/report.pdf")
	docB := createDoc(t, db, "doc-b", "archive/report.pdf")
	docC := createDoc(t, db, "doc-c", "other.pdf")

	im := newImporter(t, db, Column{Heading: "Document / Article Title", Transform: TransformCopy, Field: "title"})

	s := &sheet.Sheet{
		Headings: []string{"Document / Article Title", KeyHeading},
		Rows: [][]any{
			{"Shared Title", "report.pdf"},
			{"Lost", "missing.pdf"},
			{"Blank", nil},
		},
		FirstRow: 3,
	}

	rep, err := im.Import(ctx, s)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	for _, id := range []uint{docA.ID, docB.ID} {
		if got := reload(t, db, id); got.Title != "Shared Title" {
			t.Errorf("Expected document %d title Shared Title, got %q", id, got.Title)
		}
	}
	if got := reload(t, db, docC.ID); got.Title != "doc-c" {
		t.Errorf("Expected unrelated document untouched, got %q", got.Title)
	}

	counts := rep.Counts()
	if counts[report.StatusMatched] != 1 || counts[report.StatusUpdated] != 2 || counts[report.StatusSkipped] != 2 {
		t.Errorf("Unexpected outcome counts: %v", counts)
	}
	if rep.Outcomes[0].Row != 3 || rep.Outcomes[0].Key != "report.pdf" {
		t.Errorf("Expected first outcome for row 3 report.pdf, got %+v", rep.Outcomes[0])
	}
}

func TestImportMissingHeading(t *testing.T) {
	db := setupTestDB(t)
	doc := createDoc(t, db, "doc", "report.pdf")

	im := newImporter(t, db, Column{Heading: "Document / Article Title", Transform: TransformCopy, Field: "title"})
	s := &sheet.Sheet{Headings: []string{KeyHeading}, Rows: [][]any{{"report.pdf"}}}

	_, err := im.Import(context.Background(), s)
	if !errors.Is(err, sheet.ErrMissingColumn) {
		t.Errorf("Expected ErrMissingColumn, got %v", err)
	}
	if got := reload(t, db, doc.ID); got.Title != "doc" {
		t.Errorf("Expected document untouched, got %q", got.Title)
	}
}

func TestCopyInt(t *testing.T) {
	tests := []struct {
		name        string
		value       any
		wantYear    *int
		wantChanged bool
	}{
		{name: "text is ignored", value: "N/A", wantYear: nil, wantChanged: false},
		{name: "numeric string", value: " 2012 ", wantYear: intPtr(2012), wantChanged: true},
		{name: "whole float", value: float64(1999), wantYear: intPtr(1999), wantChanged: true},
		{name: "fractional float is ignored", value: 12.5, wantYear: nil, wantChanged: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDB(t)
			createDoc(t, db, "doc", "report.pdf")
			im := newImporter(t, db, Column{Heading: "Year", Transform: TransformCopyInt, Field: "year"})
			doc := importerDoc(t, im, "report.pdf")

			o := im.ApplyRow(context.Background(), doc, map[string]any{"Year": tt.value})

			if o.Changed != tt.wantChanged {
				t.Errorf("Expected changed %v, got %v", tt.wantChanged, o.Changed)
			}
			if o.Error != "" {
				t.Errorf("Expected no error, got %s", o.Error)
			}
			got := reload(t, db, doc.ID).Year
			if (got == nil) != (tt.wantYear == nil) || (got != nil && *got != *tt.wantYear) {
				t.Errorf("Expected year %v, got %v", deref(tt.wantYear), deref(got))
			}
		})
	}
}

func TestM2MIdempotence(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	createDoc(t, db, "doc", "report.pdf")
	im := newImporter(t, db, Column{Heading: "Author(s)", Transform: TransformM2M, Field: "authors"})
	doc := importerDoc(t, im, "report.pdf")

	first := im.ApplyRow(ctx, doc, map[string]any{"Author(s)": "Jane Doe"})
	second := im.ApplyRow(ctx, doc, map[string]any{"Author(s)": "  jane DOE "})

	if !first.Related || first.Changed {
		t.Errorf("Expected first application to be relational only, got %+v", first)
	}
	if second.Related {
		t.Errorf("Expected second application to add nothing, got %+v", second)
	}
	if first.Status != report.StatusUnchanged {
		t.Errorf("Expected status unchanged, got %s", first.Status)
	}

	var n int64
	db.Model(&models.NamedEntity{}).Where("kind = ?", models.KindAuthor).Count(&n)
	if n != 1 {
		t.Errorf("Expected 1 author, got %d", n)
	}

	got := reload(t, db, doc.ID)
	if len(got.Authors) != 1 || got.Authors[0].Name != "Jane Doe" {
		t.Errorf("Expected one author Jane Doe, got %v", got.Authors)
	}
}

func TestFuzzyFallbackAsymmetry(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	createDoc(t, db, "doc", "report.pdf")
	if err := db.Create(&models.User{Username: "jsmith", FirstName: "John", LastName: "Smith"}).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	public := models.NamedEntity{Kind: models.KindDistribution, Name: "Public"}
	if err := db.Create(&public).Error; err != nil {
		t.Fatalf("Failed to create distribution: %v", err)
	}

	im := newImporter(t, db,
		Column{Heading: "Received by CCCS Team Member", Transform: TransformFKReceiver, Field: "receiver"},
		Column{Heading: "Distribution", Transform: TransformFKNamed, Field: "distribution", Fuzzy: true},
	)

	t.Run("unmatched names", func(t *testing.T) {
		doc := importerDoc(t, im, "report.pdf")
		o := im.ApplyRow(ctx, doc, map[string]any{
			"Received by CCCS Team Member": "Zebediah Quartermaine",
			"Distribution":                 "Internal Only",
		})
		if o.Error != "" {
			t.Fatalf("Unexpected error: %s", o.Error)
		}

		got := reload(t, db, doc.ID)
		if got.ReceiverID != nil {
			t.Errorf("Expected receiver to stay unset, got %d", *got.ReceiverID)
		}
		if got.Distribution == nil || got.Distribution.Name != "Internal Only" {
			t.Errorf("Expected new distribution Internal Only, got %v", got.Distribution)
		}
		var users int64
		db.Model(&models.User{}).Count(&users)
		if users != 1 {
			t.Errorf("Expected no users to be created, got %d", users)
		}
	})

	t.Run("close names", func(t *testing.T) {
		doc := importerDoc(t, im, "report.pdf")
		o := im.ApplyRow(ctx, doc, map[string]any{
			"Received by CCCS Team Member": "Jon Smith",
			"Distribution":                 "publc",
		})
		if o.Status != report.StatusUpdated {
			t.Fatalf("Expected updated, got %+v", o)
		}

		got := reload(t, db, doc.ID)
		if got.Receiver == nil || got.Receiver.Username != "jsmith" {
			t.Errorf("Expected receiver jsmith, got %v", got.Receiver)
		}
		if got.DistributionID == nil || *got.DistributionID != public.ID {
			t.Errorf("Expected distribution %d, got %v", public.ID, deref(got.DistributionID))
		}

		var n int64
		db.Model(&models.NamedEntity{}).Where("kind = ?", models.KindDistribution).Count(&n)
		if n != 2 {
			t.Errorf("Expected 2 distributions, got %d", n)
		}
	})
}

func TestPublicationDate(t *testing.T) {
	tests := []struct {
		name       string
		value      any
		wantFields []string
		wantYMD    [3]int
	}{
		{name: "bare year", value: "2012", wantFields: []string{"year"}, wantYMD: [3]int{2012, 0, 0}},
		{name: "numeric year", value: float64(2008), wantFields: []string{"year"}, wantYMD: [3]int{2008, 0, 0}},
		{name: "free text date", value: "March 21, 2012", wantFields: []string{"year", "month", "day"}, wantYMD: [3]int{2012, 3, 21}},
		{name: "native timestamp", value: time.Date(2010, 7, 4, 0, 0, 0, 0, time.UTC), wantFields: []string{"year", "month", "day"}, wantYMD: [3]int{2010, 7, 4}},
		{name: "unparseable", value: "sometime last spring", wantFields: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDB(t)
			createDoc(t, db, "doc", "report.pdf")
			im := newImporter(t, db, Column{Heading: "Date Created / Published", Transform: TransformPublicationDate})
			doc := importerDoc(t, im, "report.pdf")

			o := im.ApplyRow(context.Background(), doc, map[string]any{"Date Created / Published": tt.value})

			if strings.Join(o.Fields, ",") != strings.Join(tt.wantFields, ",") {
				t.Errorf("Expected fields %v, got %v", tt.wantFields, o.Fields)
			}
			got := reload(t, db, doc.ID)
			ymd := [3]int{deref(got.Year), deref(got.Month), deref(got.Day)}
			if ymd != tt.wantYMD {
				t.Errorf("Expected %v, got %v", tt.wantYMD, ymd)
			}
		})
	}
}

func TestSubcategoriesAndTags(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	createDoc(t, db, "doc", "report.pdf")
	im := newImporter(t, db,
		Column{Heading: "short tags", Transform: TransformSubcategories, Root: "significance/short"},
		Column{Heading: "attribute tag", Transform: TransformTag},
	)
	doc := importerDoc(t, im, "report.pdf")

	row := map[string]any{"short tags": "water; land ;", "attribute tag": "alpha; beta;alpha"}
	o := im.ApplyRow(ctx, doc, row)
	if o.Changed || !o.Related {
		t.Errorf("Expected a relational-only update, got %+v", o)
	}

	again := im.ApplyRow(ctx, doc, row)
	if again.Related {
		t.Errorf("Expected reapplying the row to add nothing, got %+v", again)
	}

	got := reload(t, db, doc.ID)
	if len(got.Categories) != 2 {
		t.Errorf("Expected 2 categories, got %d", len(got.Categories))
	}
	if len(got.Tags) != 2 {
		t.Errorf("Expected 2 tags, got %d", len(got.Tags))
	}

	var categories int64
	db.Model(&models.DocumentCategory{}).Count(&categories)
	if categories != 4 {
		t.Errorf("Expected significance, short, water and land, got %d categories", categories)
	}
}

func TestDateAndFilename(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	createDoc(t, db, "doc", "report.pdf")
	im := newImporter(t, db,
		Column{Heading: "Date Received by CCCS Team", Transform: TransformDate, Field: "date_received"},
		Column{Heading: "revised file name", Transform: TransformFilename},
	)
	doc := importerDoc(t, im, "report.pdf")

	o := im.ApplyRow(ctx, doc, map[string]any{
		"Date Received by CCCS Team": "2015-06-01",
		"revised file name":          " report-final.pdf ",
	})
	if o.Status != report.StatusUpdated || !o.Related {
		t.Fatalf("Expected updated with relations, got %+v", o)
	}

	got := reload(t, db, doc.ID)
	want := time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC)
	if got.DateReceived == nil || !got.DateReceived.Equal(want) {
		t.Errorf("Expected date received %s, got %v", want, got.DateReceived)
	}
	if len(got.FileNames) != 2 || got.FileNames[1].Name != "report-final.pdf" {
		t.Errorf("Expected revised file name to be recorded, got %v", got.FileNames)
	}
}

func TestColumnTables(t *testing.T) {
	if err := Validate(DefaultColumns()); err != nil {
		t.Errorf("Expected default table to be valid, got %v", err)
	}

	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{
			name: "valid",
			yaml: "columns:\n  - heading: original file name\n  - heading: Vol\n    transform: copy\n    field: volume\n",
		},
		{
			name:    "unknown transform",
			yaml:    "columns:\n  - heading: original file name\n  - heading: Vol\n    transform: shout\n",
			wantErr: true,
		},
		{
			name:    "copy to unknown field",
			yaml:    "columns:\n  - heading: original file name\n  - heading: Vol\n    transform: copy\n    field: colour\n",
			wantErr: true,
		},
		{
			name:    "missing key column",
			yaml:    "columns:\n  - heading: Vol\n    transform: copy\n    field: volume\n",
			wantErr: true,
		},
		{
			name:    "subcategories without root",
			yaml:    "columns:\n  - heading: original file name\n  - heading: tags\n    transform: subcategories\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			columns, err := ReadColumns(strings.NewReader(tt.yaml))
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(columns) != 2 || columns[1].Field != "volume" {
				t.Errorf("Unexpected columns: %+v", columns)
			}
		})
	}
}

func TestDocumentsUsesBaseName(t *testing.T) {
	db := setupTestDB(t)
	createDoc(t, db, "doc", "2014/reports/report.pdf")
	im := newImporter(t, db)

	tests := []struct {
		name  string
		input string
		want  int
	}{
		{name: "base name", input: "report.pdf", want: 1},
		{name: "with directory", input: "elsewhere/report.pdf", want: 1},
		{name: "padded", input: "  report.pdf ", want: 1},
		{name: "unknown", input: "memo.pdf", want: 0},
		{name: "empty", input: "", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(im.Documents(tt.input)); got != tt.want {
				t.Errorf("Expected %d documents, got %d", tt.want, got)
			}
		})
	}
}

func intPtr(n int) *int { return &n }

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func TestImportNativeXLSXCells(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	doc := createDoc(t, db, "doc", "report.pdf")
	im := newImporter(t, db,
		Column{Heading: "Date Received by CCCS Team", Transform: TransformDate, Field: "date_received"},
		Column{Heading: "Year", Transform: TransformCopyInt, Field: "year"},
	)

	f := excelize.NewFile()
	defer f.Close()
	name := "Sheet1"
	rows := [][]any{
		{"INPEX document register"},
		{KeyHeading, "Date Received by CCCS Team", "Year"},
		{"report.pdf", time.Date(2012, 3, 21, 0, 0, 0, 0, time.UTC), 2012},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			t.Fatalf("Failed to write row: %v", err)
		}
	}
	dayFirst := "dd/mm/yyyy"
	for cell, style := range map[string]*excelize.Style{
		"B3": {CustomNumFmt: &dayFirst},
		"C3": {NumFmt: 3},
	} {
		id, err := f.NewStyle(style)
		if err != nil {
			t.Fatalf("Failed to create style: %v", err)
		}
		if err := f.SetCellStyle(name, cell, cell, id); err != nil {
			t.Fatalf("Failed to style %s: %v", cell, err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("Failed to write workbook: %v", err)
	}

	s, err := sheet.ReadXLSX(buf, sheet.Options{SheetName: name, HeadingRow: sheet.DefaultHeadingRow})
	if err != nil {
		t.Fatalf("ReadXLSX failed: %v", err)
	}
	rep, err := im.Import(ctx, s)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if counts := rep.Counts(); counts[report.StatusUpdated] != 1 {
		t.Errorf("Expected 1 updated document, got %v", counts)
	}

	got := reload(t, db, doc.ID)
	want := time.Date(2012, 3, 21, 0, 0, 0, 0, time.UTC)
	if got.DateReceived == nil || !got.DateReceived.Equal(want) {
		t.Errorf("Expected date received %s, got %v", want, got.DateReceived)
	}
	if got.Year == nil || *got.Year != 2012 {
		t.Errorf("Expected year 2012, got %v", deref(got.Year))
	}
}

func TestDocumentsOncePerBaseName(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	doc := createDoc(t, db, "doc", "a/report.pdf", "b/report.pdf")
	im := newImporter(t, db, Column{Heading: "Document / Article Title", Transform: TransformCopy, Field: "title"})

	if got := len(im.Documents("report.pdf")); got != 1 {
		t.Fatalf("Expected 1 document, got %d", got)
	}

	s := &sheet.Sheet{
		Headings: []string{KeyHeading, "Document / Article Title"},
		Rows:     [][]any{{"report.pdf", "Annual Report"}},
		FirstRow: 3,
	}
	rep, err := im.Import(ctx, s)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if counts := rep.Counts(); counts[report.StatusUpdated] != 1 || len(rep.Outcomes) != 2 {
		t.Errorf("Expected one matched row and one updated document, got %v", rep.Outcomes)
	}
	if got := reload(t, db, doc.ID); got.Title != "Annual Report" {
		t.Errorf("Expected title Annual Report, got %q", got.Title)
	}
}

func TestFailedRowDiscardsFieldChanges(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	doc := createDoc(t, db, "doc", "report.pdf")
	im := newImporter(t, db,
		Column{Heading: "Document / Article Title", Transform: TransformCopy, Field: "title"},
		Column{Heading: "attribute tag", Transform: TransformTag},
		Column{Heading: "Year", Transform: TransformCopyInt, Field: "year"},
	)
	shared := importerDoc(t, im, "report.pdf")

	// tag lookups fail from here on
	if err := db.Migrator().DropTable(&models.Tag{}); err != nil {
		t.Fatalf("Failed to drop tags: %v", err)
	}

	failed := im.ApplyRow(ctx, shared, map[string]any{
		"Document / Article Title": "Wrong Title",
		"attribute tag":            "alpha",
	})
	if failed.Status != report.StatusFailed {
		t.Fatalf("Expected failed outcome, got %+v", failed)
	}
	if len(failed.Fields) != 0 {
		t.Errorf("Expected no fields on failed outcome, got %v", failed.Fields)
	}
	if shared.Title != "doc" {
		t.Errorf("Expected in-memory title restored to doc, got %q", shared.Title)
	}

	next := im.ApplyRow(ctx, shared, map[string]any{"Year": 2012})
	if next.Status != report.StatusUpdated || strings.Join(next.Fields, ",") != "year" {
		t.Fatalf("Expected year-only update, got %+v", next)
	}

	got := reload(t, db, doc.ID)
	if got.Title != "doc" {
		t.Errorf("Expected title from the failed row to stay unsaved, got %q", got.Title)
	}
	if got.Year == nil || *got.Year != 2012 {
		t.Errorf("Expected year 2012, got %v", deref(got.Year))
	}
}
