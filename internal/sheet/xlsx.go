package sheet

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/xuri/excelize/v2"
)

// ReadXLSX reads a workbook. The configured sheet is used when present,
// otherwise the first sheet in the workbook. Cells keep their stored type:
// numbers become float64, date formatted numbers time.Time, booleans bool
// and everything else string.
func ReadXLSX(r io.Reader, opts Options) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	name := opts.SheetName
	if idx, err := f.GetSheetIndex(name); err != nil || idx < 0 {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		slog.Warn("Sheet not found, using first sheet", "wanted", name, "using", sheets[0])
		name = sheets[0]
	}

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", name, err)
	}

	t := &typer{f: f, sheet: name, dateStyles: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		t.date1904 = *props.Date1904
	}

	return build(name, rows, opts.HeadingRow, t.cell)
}

// typer recovers cell types that GetRows flattens to text
type typer struct {
	f          *excelize.File
	sheet      string
	date1904   bool
	dateStyles map[int]bool
}

func (t *typer) cell(row, col int, raw string) (any, error) {
	ref, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return nil, err
	}
	typ, err := t.f.GetCellType(t.sheet, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to read type of %s: %w", ref, err)
	}

	switch typ {
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true"), nil
	case excelize.CellTypeDate:
		if ts, err := dateparse.ParseIn(raw, time.UTC); err == nil {
			return ts, nil
		}
		return raw, nil
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return raw, nil
		}
		if t.isDate(ref) {
			ts, err := excelize.ExcelDateToTime(n, t.date1904)
			if err != nil {
				return nil, fmt.Errorf("failed to convert date in %s: %w", ref, err)
			}
			return ts, nil
		}
		return n, nil
	default:
		return raw, nil
	}
}

func (t *typer) isDate(ref string) bool {
	idx, err := t.f.GetCellStyle(t.sheet, ref)
	if err != nil || idx == 0 {
		return false
	}
	if date, ok := t.dateStyles[idx]; ok {
		return date
	}

	date := false
	if style, err := t.f.GetStyle(idx); err == nil && style != nil {
		if style.CustomNumFmt != nil {
			date = isDateFormat(*style.CustomNumFmt)
		} else {
			date = isBuiltinDateFormat(style.NumFmt)
		}
	}
	t.dateStyles[idx] = date
	return date
}

func isBuiltinDateFormat(id int) bool {
	switch {
	case id >= 14 && id <= 22, id >= 27 && id <= 36, id >= 45 && id <= 47, id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDateFormat reports whether a number format code renders dates or times.
// Quoted literals, escaped characters and bracketed sections are ignored.
func isDateFormat(code string) bool {
	var b strings.Builder
	quoted, bracket, escaped := false, false, false
	for _, r := range strings.ToLower(code) {
		switch {
		case escaped:
			escaped = false
		case quoted:
			quoted = r != '"'
		case bracket:
			bracket = r != ']'
		case r == '\\':
			escaped = true
		case r == '"':
			quoted = true
		case r == '[':
			bracket = true
		default:
			b.WriteRune(r)
		}
	}
	return strings.ContainsAny(b.String(), "ymdhs")
}
