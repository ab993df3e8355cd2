package unique

import (
	"context"
	"testing"

	"github.com/lehigh-university-libraries/docmeta/internal/database"
	"github.com/lehigh-university-libraries/docmeta/internal/models"
)

func TestNext(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Report", "Report (1)"},
		{"Report (1)", "Report (2)"},
		{"Report (9)", "Report (10)"},
		{"Report(3)", "Report(4)"},
		{"Report (1) draft", "Report (1) draft (1)"},
		{"", " (1)"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Next(tt.input); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func setExists(values ...string) ExistsFunc {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return func(_ context.Context, value string) (bool, error) {
		return set[value], nil
	}
}

func TestAllocate(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		existing  []string
		expected  string
	}{
		{"free candidate unchanged", "Report", nil, "Report"},
		{"first collision", "Report", []string{"Report"}, "Report (1)"},
		{"second collision", "Report", []string{"Report", "Report (1)"}, "Report (2)"},
		{"collision on suffixed value", "Report (1)", []string{"Report (1)"}, "Report (2)"},
		{"gaps are not filled", "Title (3)", []string{"Title (3)"}, "Title (4)"},
		{"walks past runs", "Title (1)", []string{"Title (1)", "Title (2)", "Title (3)"}, "Title (4)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Allocate(context.Background(), tt.candidate, setExists(tt.existing...))
			if err != nil {
				t.Fatalf("Allocate failed: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestAllocateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Allocate(ctx, "Report", setExists("Report")); err == nil {
		t.Error("Expected error from cancelled context")
	}
}

func TestColumnAllocate(t *testing.T) {
	db, err := database.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	defer database.Close(db)
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	ctx := context.Background()
	col := Column{DB: db, Model: &models.Document{}, Name: "name"}

	for _, candidate := range []string{"Report", "Report", "Report"} {
		name, err := col.Allocate(ctx, candidate)
		if err != nil {
			t.Fatalf("Allocate failed: %v", err)
		}
		if err := db.Create(&models.Document{Name: name, Title: candidate}).Error; err != nil {
			t.Fatalf("Failed to create document %q: %v", name, err)
		}
	}

	var got []string
	if err := db.Model(&models.Document{}).Order("id").Pluck("name", &got).Error; err != nil {
		t.Fatalf("Failed to read names: %v", err)
	}
	expected := []string{"Report", "Report (1)", "Report (2)"}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Expected %v, got %v", expected, got)
			break
		}
	}

	// A record does not collide with itself
	var first models.Document
	db.Order("id").First(&first)
	self := Column{DB: db, Model: &models.Document{}, Name: "name", ExcludeID: first.ID}
	name, err := self.Allocate(ctx, first.Name)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if name != first.Name {
		t.Errorf("Expected %q to be kept, got %q", first.Name, name)
	}
}
