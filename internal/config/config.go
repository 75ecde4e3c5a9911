// Package config loads service configuration from the environment, with an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Attachment backends.
const (
	AttachmentLocal = "local"
	AttachmentGCS   = "gcs"
	AttachmentDrive = "drive"
)

// Sink backends.
const (
	SinkSheets   = "sheets"
	SinkBigQuery = "bigquery"
	SinkNotion   = "notion"
	SinkPostgres = "postgres"
	SinkXLSX     = "xlsx"
)

// Config holds all application configuration.
type Config struct {
	// Server
	Port              int
	DashboardPassword string
	MaxUploadBytes    int64
	SessionTTL        time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// Pricing
	PriceCatalogFile string

	// Google credentials
	ServiceAccountJSON string
	ServiceAccountFile string

	// Spreadsheets
	SheetDonor       string
	WorksheetDonor   string
	SheetProgramURL  string
	WorksheetProgram string
	SheetVendor      string
	WorksheetVendor  string

	// Attachments
	AttachmentBackend string
	UploadDir         string
	GCSBucket         string
	DriveFolderID     string
	RequirePANImage   bool
	RequireGSTImage   bool

	// Submission sink
	SinkBackend      string
	SinkMaxAttempts  int
	SinkRetryBackoff time.Duration
	BigQueryProject  string
	BigQueryDataset  string
	BigQueryTable    string
	NotionToken      string
	NotionDatabaseID string
	PostgresDBURL    string
	XLSXPath         string

	// Invoice delivery
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
	SMTPFrom          string
	SMTPTimeout       time.Duration
	InvoiceRecipients []string
}

// Load reads the .env file named by ENV_FILE (default ".env") if present,
// then builds a Config from the environment. Malformed numeric values fall
// back to their defaults with a warning.
func Load(log zerolog.Logger) (*Config, error) {
	envFile := getEnvString("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("Load: read %s: %w", envFile, err)
		}
		log.Debug().Str("file", envFile).Msg("No .env file found, using environment variables")
	} else {
		log.Info().Str("file", envFile).Msg("Loaded environment variables from .env file")
	}

	e := envReader{log: log}
	cfg := &Config{
		Port:              e.int("PORT", 8080),
		DashboardPassword: os.Getenv("DASHBOARD_PASSWORD"),
		MaxUploadBytes:    int64(e.int("MAX_UPLOAD_BYTES", 10<<20)),
		SessionTTL:        e.duration("SESSION_TTL", 12*time.Hour),

		LogLevel:  getEnvString("LOG_LEVEL", "info"),
		LogFormat: getEnvString("LOG_FORMAT", "console"),

		PriceCatalogFile: os.Getenv("PRICE_CATALOG_FILE"),

		ServiceAccountJSON: os.Getenv("SERVICE_ACCOUNT_JSON"),
		ServiceAccountFile: os.Getenv("SERVICE_ACCOUNT_FILE"),

		SheetDonor:       getEnvString("SHEET_DONOR", "AgastyaInternationalFoundation"),
		WorksheetDonor:   getEnvString("WORKSHEET_DONOR", "Donar"),
		SheetProgramURL:  os.Getenv("SHEET_PROGRAM_URL"),
		WorksheetProgram: getEnvString("WORKSHEET_PROGRAM", "ProgramTeam"),
		SheetVendor:      getEnvString("SHEET_VENDOR", "AgastyaInternationalFoundation"),
		WorksheetVendor:  getEnvString("WORKSHEET_VENDOR", "Vendorsheet"),

		AttachmentBackend: strings.ToLower(getEnvString("ATTACHMENT_BACKEND", AttachmentLocal)),
		UploadDir:         getEnvString("UPLOAD_DIR", "uploaded_vendor_images"),
		GCSBucket:         os.Getenv("GCS_BUCKET"),
		DriveFolderID:     os.Getenv("DRIVE_FOLDER_ID"),
		RequirePANImage:   getEnvBool("REQUIRE_PAN_IMAGE", false),
		RequireGSTImage:   getEnvBool("REQUIRE_GST_IMAGE", false),

		SinkBackend:      strings.ToLower(getEnvString("SINK_BACKEND", SinkSheets)),
		SinkMaxAttempts:  e.int("SINK_MAX_ATTEMPTS", 1),
		SinkRetryBackoff: e.duration("SINK_RETRY_BACKOFF", time.Second),
		BigQueryProject:  os.Getenv("BIGQUERY_PROJECT"),
		BigQueryDataset:  getEnvString("BIGQUERY_DATASET", "finance"),
		BigQueryTable:    getEnvString("BIGQUERY_TABLE", "vendor_invoice_lines"),
		NotionToken:      os.Getenv("NOTION_TOKEN"),
		NotionDatabaseID: os.Getenv("NOTION_DATABASE_ID"),
		PostgresDBURL:    os.Getenv("POSTGRES_DB_URL"),
		XLSXPath:         getEnvString("XLSX_PATH", "vendor_lines.xlsx"),

		SMTPHost:          os.Getenv("SMTP_HOST"),
		SMTPPort:          e.int("SMTP_PORT", 587),
		SMTPUsername:      os.Getenv("SMTP_USERNAME"),
		SMTPPassword:      os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:          os.Getenv("SMTP_FROM"),
		SMTPTimeout:       e.duration("SMTP_TIMEOUT", 30*time.Second),
		InvoiceRecipients: getEnvStringSlice("INVOICE_RECIPIENTS", nil),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.warn(log)

	return cfg, nil
}

// Validate rejects combinations the service cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.AttachmentBackend {
	case AttachmentLocal:
		if c.UploadDir == "" {
			errs = append(errs, errors.New("UPLOAD_DIR is required for local attachments"))
		}
	case AttachmentGCS:
		if c.GCSBucket == "" {
			errs = append(errs, errors.New("GCS_BUCKET is required when ATTACHMENT_BACKEND=gcs"))
		}
	case AttachmentDrive:
	default:
		errs = append(errs, fmt.Errorf("unknown ATTACHMENT_BACKEND %q", c.AttachmentBackend))
	}

	switch c.SinkBackend {
	case SinkSheets:
		if c.SheetVendor == "" || c.WorksheetVendor == "" {
			errs = append(errs, errors.New("SHEET_VENDOR and WORKSHEET_VENDOR are required for the sheets sink"))
		}
	case SinkBigQuery:
		if c.BigQueryProject == "" || c.BigQueryDataset == "" {
			errs = append(errs, errors.New("BIGQUERY_PROJECT and BIGQUERY_DATASET are required for the bigquery sink"))
		}
	case SinkNotion:
		if c.NotionToken == "" || c.NotionDatabaseID == "" {
			errs = append(errs, errors.New("NOTION_TOKEN and NOTION_DATABASE_ID are required for the notion sink"))
		}
	case SinkPostgres:
		if c.PostgresDBURL == "" {
			errs = append(errs, errors.New("POSTGRES_DB_URL is required for the postgres sink"))
		}
	case SinkXLSX:
		if c.XLSXPath == "" {
			errs = append(errs, errors.New("XLSX_PATH is required for the xlsx sink"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SINK_BACKEND %q", c.SinkBackend))
	}

	if c.SinkMaxAttempts < 1 {
		errs = append(errs, errors.New("SINK_MAX_ATTEMPTS must be at least 1"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) warn(log zerolog.Logger) {
	if c.DashboardPassword == "" {
		log.Warn().Msg("DASHBOARD_PASSWORD not set, API is unauthenticated")
	}
	if c.ServiceAccountJSON == "" && c.ServiceAccountFile == "" {
		log.Warn().Msg("No service account configured, falling back to application default credentials")
	}
	if c.SMTPHost == "" {
		log.Warn().Msg("SMTP_HOST not set, invoices will not be emailed")
	} else if len(c.InvoiceRecipients) == 0 {
		log.Warn().Msg("INVOICE_RECIPIENTS empty, invoices will not be emailed")
	}
}

// envReader parses typed values and logs the ones it has to ignore.
type envReader struct {
	log zerolog.Logger
}

// int gets an integer from an environment variable with a default value.
func (e envReader) int(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		e.log.Warn().Str("key", key).Str("value", valueStr).Int("default", defaultValue).Msg("Invalid integer, using default")
		return defaultValue
	}

	return value
}

// duration accepts Go duration syntax ("90s") or a bare number of seconds.
func (e envReader) duration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}

	e.log.Warn().Str("key", key).Str("value", valueStr).Dur("default", defaultValue).Msg("Invalid duration, using default")
	return defaultValue
}

// getEnvBool gets a boolean from an environment variable with a default value.
func getEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	valueStr = strings.ToLower(valueStr)
	return valueStr == "true" || valueStr == "1" || valueStr == "yes"
}

// getEnvString gets a string from an environment variable with a default value.
func getEnvString(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvStringSlice splits a comma-separated variable, dropping blanks.
func getEnvStringSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
