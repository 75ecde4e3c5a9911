package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(zerolog.Nop())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.SheetVendor != "AgastyaInternationalFoundation" || cfg.WorksheetVendor != "Vendorsheet" {
		t.Errorf("vendor sheet = %q/%q", cfg.SheetVendor, cfg.WorksheetVendor)
	}
	if cfg.WorksheetDonor != "Donar" || cfg.WorksheetProgram != "ProgramTeam" {
		t.Errorf("donor/program worksheets = %q/%q", cfg.WorksheetDonor, cfg.WorksheetProgram)
	}
	if cfg.AttachmentBackend != AttachmentLocal || cfg.SinkBackend != SinkSheets {
		t.Errorf("backends = %q/%q", cfg.AttachmentBackend, cfg.SinkBackend)
	}
	if cfg.SinkMaxAttempts != 1 || cfg.SinkRetryBackoff != time.Second {
		t.Errorf("retry = %d/%v", cfg.SinkMaxAttempts, cfg.SinkRetryBackoff)
	}
	if cfg.SessionTTL != 12*time.Hour {
		t.Errorf("SessionTTL = %v", cfg.SessionTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "9090")
	t.Setenv("SINK_BACKEND", "Postgres")
	t.Setenv("POSTGRES_DB_URL", "postgres://localhost/ledger")
	t.Setenv("SINK_RETRY_BACKOFF", "250ms")
	t.Setenv("SESSION_TTL", "60")
	t.Setenv("REQUIRE_PAN_IMAGE", "yes")
	t.Setenv("INVOICE_RECIPIENTS", "a@example.org, ,b@example.org")

	cfg, err := Load(zerolog.Nop())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d", cfg.Port)
	}
	if cfg.SinkBackend != SinkPostgres {
		t.Errorf("SinkBackend = %q", cfg.SinkBackend)
	}
	if cfg.SinkRetryBackoff != 250*time.Millisecond {
		t.Errorf("SinkRetryBackoff = %v", cfg.SinkRetryBackoff)
	}
	if cfg.SessionTTL != time.Minute {
		t.Errorf("SessionTTL = %v", cfg.SessionTTL)
	}
	if !cfg.RequirePANImage || cfg.RequireGSTImage {
		t.Errorf("requirements = %v/%v", cfg.RequirePANImage, cfg.RequireGSTImage)
	}
	if got := strings.Join(cfg.InvoiceRecipients, ";"); got != "a@example.org;b@example.org" {
		t.Errorf("InvoiceRecipients = %q", got)
	}
}

func TestLoadInvalidIntegerFallsBack(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "eighty")

	cfg, err := Load(zerolog.Nop())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want default", cfg.Port)
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("WORKSHEET_VENDOR=Vendors2024\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENV_FILE", path)
	// godotenv does not override variables that are already set, so make sure
	// the key is absent and restored afterwards.
	t.Setenv("WORKSHEET_VENDOR", "")
	os.Unsetenv("WORKSHEET_VENDOR")

	cfg, err := Load(zerolog.Nop())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WorksheetVendor != "Vendors2024" {
		t.Errorf("WorksheetVendor = %q", cfg.WorksheetVendor)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Port:              8080,
			AttachmentBackend: AttachmentLocal,
			UploadDir:         "uploads",
			SinkBackend:       SinkSheets,
			SheetVendor:       "Book",
			WorksheetVendor:   "Vendorsheet",
			SinkMaxAttempts:   1,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "gcs without bucket", mutate: func(c *Config) { c.AttachmentBackend = AttachmentGCS }, wantErr: "GCS_BUCKET"},
		{name: "gcs with bucket", mutate: func(c *Config) { c.AttachmentBackend = AttachmentGCS; c.GCSBucket = "b" }},
		{name: "drive without folder", mutate: func(c *Config) { c.AttachmentBackend = AttachmentDrive }},
		{name: "unknown attachment backend", mutate: func(c *Config) { c.AttachmentBackend = "s3" }, wantErr: "ATTACHMENT_BACKEND"},
		{name: "bigquery without project", mutate: func(c *Config) { c.SinkBackend = SinkBigQuery; c.BigQueryDataset = "d" }, wantErr: "BIGQUERY_PROJECT"},
		{name: "notion without token", mutate: func(c *Config) { c.SinkBackend = SinkNotion; c.NotionDatabaseID = "db" }, wantErr: "NOTION_TOKEN"},
		{name: "postgres without url", mutate: func(c *Config) { c.SinkBackend = SinkPostgres }, wantErr: "POSTGRES_DB_URL"},
		{name: "xlsx without path", mutate: func(c *Config) { c.SinkBackend = SinkXLSX }, wantErr: "XLSX_PATH"},
		{name: "unknown sink", mutate: func(c *Config) { c.SinkBackend = "kafka" }, wantErr: "SINK_BACKEND"},
		{name: "zero attempts", mutate: func(c *Config) { c.SinkMaxAttempts = 0 }, wantErr: "SINK_MAX_ATTEMPTS"},
		{name: "bad port", mutate: func(c *Config) { c.Port = 70000 }, wantErr: "PORT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}
