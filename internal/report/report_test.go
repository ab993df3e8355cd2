package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

func sampleReport() *Report {
	r := New("import")
	r.Add(Outcome{Row: 3, Key: "report.pdf", Status: StatusMatched})
	r.Add(Outcome{Row: 3, Key: "report.pdf", DocumentID: 7, DocumentName: "report", Status: StatusUpdated, Changed: true, Fields: []string{"title", "year"}})
	r.Add(Outcome{Row: 4, Key: "unknown.pdf", Status: StatusSkipped})
	r.Add(Outcome{Key: "broken.pdf", DocumentID: 9, Status: StatusFailed, Error: "failed to parse pdf"})
	r.Finish()
	return r
}

func TestCounts(t *testing.T) {
	r := sampleReport()
	counts := r.Counts()

	tests := []struct {
		status string
		want   int
	}{
		{StatusMatched, 1},
		{StatusUpdated, 1},
		{StatusSkipped, 1},
		{StatusFailed, 1},
		{StatusUnchanged, 0},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			if counts[tt.status] != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, counts[tt.status])
			}
		})
	}

	if failed := r.Failures(); len(failed) != 1 || failed[0].Key != "broken.pdf" {
		t.Errorf("Expected one failure for broken.pdf, got %v", failed)
	}
	if r.RunID == "" {
		t.Error("Expected a run id")
	}
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := sampleReport().Write(&buf, "yaml"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	var decoded Report
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Failed to parse YAML: %v", err)
	}
	if decoded.Operation != "import" {
		t.Errorf("Expected operation import, got %s", decoded.Operation)
	}
	if len(decoded.Outcomes) != 4 {
		t.Errorf("Expected 4 outcomes, got %d", len(decoded.Outcomes))
	}
	if !strings.Contains(buf.String(), "error: failed to parse pdf") {
		t.Errorf("Expected error to be written, got:\n%s", buf.String())
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := sampleReport().Write(&buf, "json"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	var decoded Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}
	if got := decoded.Outcomes[1].Fields; len(got) != 2 || got[0] != "title" {
		t.Errorf("Expected fields [title year], got %v", got)
	}
}

func TestSaveParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "run.parquet")
	if err := sampleReport().Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open parquet file: %v", err)
	}
	defer file.Close()

	reader := parquet.NewGenericReader[Outcome](file)
	defer reader.Close()

	rows := make([]Outcome, 10)
	n, _ := reader.Read(rows)
	if n != 4 {
		t.Fatalf("Expected 4 rows, got %d", n)
	}
	if rows[1].DocumentID != 7 || !rows[1].Changed {
		t.Errorf("Unexpected row: %+v", rows[1])
	}
}

func TestSaveUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.txt")
	if err := sampleReport().Save(path); err == nil {
		t.Error("Expected error for unsupported format, got nil")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Expected no file to be created, got %v", err)
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	sampleReport().PrintSummary(&buf)

	out := buf.String()
	for _, want := range []string{"IMPORT SUMMARY", "updated", "FAILURES", "broken.pdf: failed to parse pdf"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected summary to contain %q, got:\n%s", want, out)
		}
	}
}
