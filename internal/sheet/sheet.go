// Package sheet loads tabular import sources (xlsx and csv) into rows of raw cell values.
package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultSheetName is the worksheet read when none is configured
	DefaultSheetName = "INPEX docs"
	// DefaultHeadingRow is the zero-based index of the heading row; data starts on the row after
	DefaultHeadingRow = 1
)

// ErrMissingColumn is returned when a required column heading is absent
var ErrMissingColumn = errors.New("missing column heading")

// Sheet holds the heading row and the data rows of one worksheet.
// Empty cells are nil.
type Sheet struct {
	Name     string
	Headings []string
	Rows     [][]any
	// FirstRow is the one-based spreadsheet row number of Rows[0]
	FirstRow int
}

// Options configures which worksheet and heading row are read
type Options struct {
	SheetName  string
	HeadingRow int
}

// Loader handles loading of spreadsheet import sources
type Loader struct {
	path string
	opts Options
}

// NewLoader creates a new sheet loader for the file at path
func NewLoader(path string, opts Options) *Loader {
	if opts.SheetName == "" {
		opts.SheetName = DefaultSheetName
	}
	if opts.HeadingRow < 0 {
		opts.HeadingRow = DefaultHeadingRow
	}
	return &Loader{path: path, opts: opts}
}

// Load reads the sheet, detecting the format from the file extension
func (l *Loader) Load() (*Sheet, error) {
	ext := strings.ToLower(filepath.Ext(l.path))

	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sheet file: %w", err)
	}
	defer file.Close()

	slog.Debug("Loading sheet", "path", l.path, "format", ext)

	switch ext {
	case ".xlsx", ".xlsm":
		return ReadXLSX(file, l.opts)
	case ".csv":
		return ReadCSV(file, l.opts)
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .xlsx, .xlsm, .csv)", ext)
	}
}

// ReadCSV reads comma separated rows. Ragged rows are allowed.
func ReadCSV(r io.Reader, opts Options) (*Sheet, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	return build(opts.SheetName, rows, opts.HeadingRow, textCell)
}

// cellFunc turns the raw text of the cell at zero-based (row, col) into a value
type cellFunc func(row, col int, raw string) (any, error)

func textCell(_, _ int, raw string) (any, error) {
	return raw, nil
}

func build(name string, rows [][]string, headingRow int, cell cellFunc) (*Sheet, error) {
	if headingRow >= len(rows) {
		return nil, fmt.Errorf("sheet %s has %d rows, heading row %d is missing", name, len(rows), headingRow)
	}

	s := &Sheet{Name: name, FirstRow: headingRow + 2}
	for _, h := range rows[headingRow] {
		s.Headings = append(s.Headings, strings.TrimSpace(h))
	}

	for r := headingRow + 1; r < len(rows); r++ {
		row := make([]any, len(rows[r]))
		for i, raw := range rows[r] {
			if raw == "" {
				continue
			}
			v, err := cell(r, i, raw)
			if err != nil {
				return nil, fmt.Errorf("sheet %s row %d column %d: %w", name, r+1, i+1, err)
			}
			row[i] = v
		}
		s.Rows = append(s.Rows, row)
	}

	slog.Debug("Loaded sheet", "sheet", name, "columns", len(s.Headings), "rows", len(s.Rows))
	return s, nil
}

// Index returns the position of heading, or -1
func (s *Sheet) Index(heading string) int {
	for i, h := range s.Headings {
		if h == heading {
			return i
		}
	}
	return -1
}

// Records returns one map per data row keyed by the requested headings.
// Every heading must exist; the first missing one fails the whole call.
// Cells beyond the end of a short row are nil.
func (s *Sheet) Records(headings []string) ([]map[string]any, error) {
	positions := make(map[string]int, len(headings))
	for _, h := range headings {
		idx := s.Index(h)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, h)
		}
		positions[h] = idx
	}

	records := make([]map[string]any, 0, len(s.Rows))
	for _, row := range s.Rows {
		rec := make(map[string]any, len(positions))
		for h, idx := range positions {
			if idx < len(row) {
				rec[h] = row[idx]
			} else {
				rec[h] = nil
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
