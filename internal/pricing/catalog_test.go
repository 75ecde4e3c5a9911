package pricing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func TestDefaultCatalog_Lookup(t *testing.T) {
	c := DefaultCatalog()

	tests := []struct {
		version string
		want    int64
	}{
		{"Actilearn 1.0", 250},
		{"Actilearn Junior", 180},
		{"Papertronics", 220},
		{"ISEE", 300},
		{"isee", 200},
		{"Unknown Kit", 200},
		{"", 200},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			got := c.Lookup(tt.version)
			if !got.Equal(decimal.NewFromInt(tt.want)) {
				t.Errorf("Lookup(%q) = %s, want %d", tt.version, got, tt.want)
			}
		})
	}
}

func TestCatalog_Entries_Sorted(t *testing.T) {
	entries := DefaultCatalog().Entries()
	if len(entries) != 4 {
		t.Fatalf("Expected 4 entries, got %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Version > entries[i].Version {
			t.Errorf("Entries not sorted: %q before %q", entries[i-1].Version, entries[i].Version)
		}
	}
}

func TestNewCatalog_RejectsNegative(t *testing.T) {
	if _, err := NewCatalog(nil, decimal.NewFromInt(-1)); err == nil {
		t.Error("Expected error for negative fallback")
	}
	if _, err := NewCatalog(map[string]decimal.Decimal{"X": decimal.NewFromInt(-5)}, DefaultFallbackPrice); err == nil {
		t.Error("Expected error for negative price")
	}
}

func TestParseCatalog(t *testing.T) {
	data := []byte(`
default_price: 150.50
prices:
  ISEE: 310
  "Actilearn 1.0": "99.99"
`)
	c, err := ParseCatalog(data)
	if err != nil {
		t.Fatalf("ParseCatalog failed: %v", err)
	}

	if got := c.Lookup("ISEE"); !got.Equal(decimal.NewFromInt(310)) {
		t.Errorf("ISEE = %s, want 310", got)
	}
	if got := c.Lookup("Actilearn 1.0"); !got.Equal(decimal.RequireFromString("99.99")) {
		t.Errorf("Actilearn 1.0 = %s, want 99.99", got)
	}
	if got := c.Lookup("other"); !got.Equal(decimal.RequireFromString("150.5")) {
		t.Errorf("fallback = %s, want 150.5", got)
	}
}

func TestParseCatalog_DefaultFallbackWhenOmitted(t *testing.T) {
	c, err := ParseCatalog([]byte("prices:\n  ISEE: 300\n"))
	if err != nil {
		t.Fatalf("ParseCatalog failed: %v", err)
	}
	if !c.Fallback().Equal(DefaultFallbackPrice) {
		t.Errorf("Fallback = %s, want %s", c.Fallback(), DefaultFallbackPrice)
	}
}

func TestParseCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad yaml", "prices: [1, 2"},
		{"bad price", "prices:\n  ISEE: abc\n"},
		{"bad default", "default_price: cheap\n"},
		{"negative", "prices:\n  ISEE: -3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseCatalog([]byte(tt.data)); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestLoadCatalog(t *testing.T) {
	c, err := LoadCatalog("")
	if err != nil {
		t.Fatalf("LoadCatalog(\"\") failed: %v", err)
	}
	if !c.Known("ISEE") {
		t.Error("Expected default catalog for empty path")
	}

	path := filepath.Join(t.TempDir(), "prices.yaml")
	if err := os.WriteFile(path, []byte("prices:\n  Robotics: 500\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err = LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}
	if !c.Lookup("Robotics").Equal(decimal.NewFromInt(500)) {
		t.Errorf("Robotics = %s, want 500", c.Lookup("Robotics"))
	}
	if c.Known("ISEE") {
		t.Error("File catalog should replace the default table")
	}

	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
