// Package report records what a batch operation did to every row, file and
// document it touched.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

// Outcome statuses
const (
	StatusMatched   = "matched"   // row resolved to one or more documents
	StatusSkipped   = "skipped"   // row or file had nothing to act on
	StatusCreated   = "created"   // document or blob created
	StatusUpdated   = "updated"   // document row persisted
	StatusUnchanged = "unchanged" // nothing to persist
	StatusFailed    = "failed"
	StatusDuplicate = "duplicate"
)

// Outcome is the result for one row, file or document
type Outcome struct {
	Row          int      `yaml:"row,omitempty" json:"row,omitempty" parquet:"row"`
	Key          string   `yaml:"key" json:"key" parquet:"key"`
	DocumentID   int64    `yaml:"document_id,omitempty" json:"document_id,omitempty" parquet:"document_id"`
	DocumentName string   `yaml:"document_name,omitempty" json:"document_name,omitempty" parquet:"document_name"`
	Status       string   `yaml:"status" json:"status" parquet:"status"`
	Changed      bool     `yaml:"changed,omitempty" json:"changed,omitempty" parquet:"changed"`
	Related      bool     `yaml:"related,omitempty" json:"related,omitempty" parquet:"related"`
	Fields       []string `yaml:"fields,omitempty" json:"fields,omitempty" parquet:"fields,list"`
	Error        string   `yaml:"error,omitempty" json:"error,omitempty" parquet:"error"`
}

// Failed reports whether the outcome records an error
func (o Outcome) Failed() bool {
	return o.Status == StatusFailed || o.Error != ""
}

// Report collects the outcomes of one run
type Report struct {
	RunID      string    `yaml:"run_id" json:"run_id"`
	Operation  string    `yaml:"operation" json:"operation"`
	StartedAt  time.Time `yaml:"started_at" json:"started_at"`
	FinishedAt time.Time `yaml:"finished_at" json:"finished_at"`
	Outcomes   []Outcome `yaml:"outcomes" json:"outcomes"`
}

// New starts a report for operation
func New(operation string) *Report {
	return &Report{
		RunID:     uuid.NewString(),
		Operation: operation,
		StartedAt: time.Now(),
		Outcomes:  []Outcome{},
	}
}

// Add appends an outcome
func (r *Report) Add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
}

// Finish stamps the completion time
func (r *Report) Finish() {
	r.FinishedAt = time.Now()
}

// Counts returns the number of outcomes per status
func (r *Report) Counts() map[string]int {
	counts := make(map[string]int)
	for _, o := range r.Outcomes {
		counts[o.Status]++
	}
	return counts
}

// Failures returns the outcomes that recorded an error
func (r *Report) Failures() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Failed() {
			failed = append(failed, o)
		}
	}
	return failed
}

// PrintSummary writes a human-readable summary of the run
func (r *Report) PrintSummary(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintf(w, "%s SUMMARY\n", strings.ToUpper(r.Operation))
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintf(w, "Run: %s\n", r.RunID)
	fmt.Fprintf(w, "Started: %s\n", r.StartedAt.Format("2006-01-02 15:04:05"))
	if !r.FinishedAt.IsZero() {
		fmt.Fprintf(w, "Duration: %s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	}
	fmt.Fprintf(w, "Outcomes: %d\n", len(r.Outcomes))

	counts := r.Counts()
	statuses := make([]string, 0, len(counts))
	for s := range counts {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)
	for _, s := range statuses {
		fmt.Fprintf(w, "  %-10s %d\n", s, counts[s])
	}

	if failed := r.Failures(); len(failed) > 0 {
		fmt.Fprintln(w, strings.Repeat("-", 70))
		fmt.Fprintln(w, "FAILURES")
		for _, o := range failed {
			fmt.Fprintf(w, "  %s: %s\n", o.Key, o.Error)
		}
	}
	fmt.Fprintln(w, strings.Repeat("=", 70))
}

// Write encodes the report in format: yaml, json or parquet. Parquet holds
// the outcomes only.
func (r *Report) Write(w io.Writer, format string) error {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode report to JSON: %w", err)
		}
		return nil
	case "parquet":
		pw := parquet.NewGenericWriter[Outcome](w)
		if _, err := pw.Write(r.Outcomes); err != nil {
			return fmt.Errorf("failed to write parquet rows: %w", err)
		}
		if err := pw.Close(); err != nil {
			return fmt.Errorf("failed to close parquet writer: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported report format: %s (supported: yaml, json, parquet)", format)
	}
}

// Save writes the report to path, choosing the format from the extension
func (r *Report) Save(path string) error {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch format {
	case "yaml", "yml", "json", "parquet":
	default:
		return fmt.Errorf("unsupported report format: %s (supported: .yaml, .json, .parquet)", filepath.Ext(path))
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	if err := r.Write(file, format); err != nil {
		return err
	}
	return file.Close()
}
