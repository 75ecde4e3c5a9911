// Command migrate applies the BigQuery migrations under migrations/bigquery
// to the dataset used by the BigQuery line sink.
package main

import (
	"context"
	"crypto/sha256"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/vendor-ledger/internal/config"
	"github.com/dvloznov/vendor-ledger/internal/logger"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
)

// Migration represents a single migration file
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration represents a migration that has already been applied
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

// Pattern to match migration files: 0001_name.sql
var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

func main() {
	log := logger.New()

	// Defaults come from the same environment the server reads
	cfg, err := config.Load(log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	var (
		projectID     = flag.String("project", cfg.BigQueryProject, "GCP project ID (or set BIGQUERY_PROJECT)")
		datasetID     = flag.String("dataset", cfg.BigQueryDataset, "BigQuery dataset ID")
		appliedBy     = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
		migrationsDir = flag.String("migrations", "migrations/bigquery", "Path to migrations directory")
		dryRun        = flag.Bool("dry-run", false, "List pending migrations without applying them")
	)
	flag.Parse()

	if *projectID == "" {
		log.Fatal().Msg("-project flag or BIGQUERY_PROJECT is required")
	}

	ctx := logger.WithContext(context.Background(), log)

	migrations, err := readMigrations(findMigrationsDir(*migrationsDir), *projectID, *datasetID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read migrations")
	}
	log.Info().Int("count", len(migrations)).Msg("Found migration files")

	client, err := bigquery.NewClient(ctx, *projectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer client.Close()

	r := &runner{client: client, project: *projectID, dataset: *datasetID, appliedBy: *appliedBy, log: log}
	n, err := r.run(ctx, migrations, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}

	switch {
	case *dryRun:
		log.Info().Int("pending", n).Msg("Dry run complete")
	case n == 0:
		log.Info().Msg("No new migrations to apply. Dataset is up to date.")
	default:
		log.Info().Int("applied", n).Msg("Migrations applied")
	}
}

// runner applies migrations to one dataset.
type runner struct {
	client    *bigquery.Client
	project   string
	dataset   string
	appliedBy string
	log       zerolog.Logger
}

func (r *runner) run(ctx context.Context, migrations []Migration, dryRun bool) (int, error) {
	if err := r.exec(ctx, r.schemaMigrationsDDL(), nil); err != nil {
		return 0, fmt.Errorf("ensuring schema_migrations table: %w", err)
	}

	applied, err := r.appliedMigrations(ctx)
	if err != nil {
		return 0, err
	}
	r.log.Info().Int("count", len(applied)).Msg("Found already applied migrations")

	for _, m := range checksumDrift(migrations, applied) {
		r.log.Warn().Int("version", m.Version).Str("name", m.Name).Msg("Applied migration file has changed since it ran")
	}

	todo := pending(migrations, applied)
	for _, m := range todo {
		if dryRun {
			r.log.Info().Str("migration", m.Filename).Msg("[PENDING]")
			continue
		}

		r.log.Info().Str("migration", m.Filename).Msg("[RUN]")
		if err := r.exec(ctx, m.SQL, nil); err != nil {
			return 0, fmt.Errorf("executing %s: %w", m.Filename, err)
		}
		if err := r.record(ctx, m); err != nil {
			return 0, fmt.Errorf("recording %s: %w", m.Filename, err)
		}
		r.log.Info().Str("migration", m.Filename).Msg("[OK]")
	}

	return len(todo), nil
}

func (r *runner) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", r.project, r.dataset, name)
}

func (r *runner) schemaMigrationsDDL() string {
	return `
		CREATE TABLE IF NOT EXISTS ` + r.table("schema_migrations") + ` (
			version       INT64 NOT NULL,
			name          STRING NOT NULL,
			applied_at    TIMESTAMP NOT NULL,
			checksum      STRING,
			applied_by    STRING
		)
	`
}

// exec runs a statement and waits for its job to finish.
func (r *runner) exec(ctx context.Context, sql string, params []bigquery.QueryParameter) error {
	query := r.client.Query(sql)
	query.Parameters = params

	job, err := query.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}

	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}

	return nil
}

// appliedMigrations retrieves the list of already applied migrations
func (r *runner) appliedMigrations(ctx context.Context) ([]AppliedMigration, error) {
	query := r.client.Query(`
		SELECT version, name, applied_at, checksum, applied_by
		FROM ` + r.table("schema_migrations") + `
		ORDER BY version ASC
	`)
	it, err := query.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	var applied []AppliedMigration
	for {
		var row struct {
			Version   int64
			Name      string
			AppliedAt time.Time
			Checksum  bigquery.NullString
			AppliedBy bigquery.NullString
		}

		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating results: %w", err)
		}

		applied = append(applied, AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
			Checksum:  row.Checksum.StringVal,
			AppliedBy: row.AppliedBy.StringVal,
		})
	}

	return applied, nil
}

// record stores a successfully applied migration in schema_migrations
func (r *runner) record(ctx context.Context, m Migration) error {
	sql := `
		INSERT INTO ` + r.table("schema_migrations") + `
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`
	return r.exec(ctx, sql, []bigquery.QueryParameter{
		{Name: "version", Value: m.Version},
		{Name: "name", Value: m.Name},
		{Name: "checksum", Value: m.Checksum},
		{Name: "applied_by", Value: r.appliedBy},
	})
}

// findMigrationsDir falls back to the repository root when run from cmd/migrate.
func findMigrationsDir(dir string) string {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if alt := filepath.Join("..", "..", dir); dirExists(alt) {
			return alt
		}
	}
	return dir
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// parseMigrationFilename splits "0002_vendor_invoice_lines.sql" into its
// version and name.
func parseMigrationFilename(filename string) (int, string, bool) {
	matches := migrationPattern.FindStringSubmatch(filename)
	if matches == nil {
		return 0, "", false
	}
	version, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, "", false
	}
	return version, matches[2], true
}

// readMigrations reads all migration files in dir, substituting the
// {{PROJECT_ID}} and {{DATASET_ID}} placeholders. The checksum covers the
// file as written, so it is the same for every target dataset.
func readMigrations(dir, project, dataset string) ([]Migration, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	seen := make(map[int]string)
	var migrations []Migration
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		version, name, ok := parseMigrationFilename(file.Name())
		if !ok {
			continue
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("duplicate migration version %04d: %s and %s", version, prev, file.Name())
		}
		seen[version] = file.Name()

		content, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading file %s: %w", file.Name(), err)
		}

		sql := strings.ReplaceAll(string(content), "{{PROJECT_ID}}", project)
		sql = strings.ReplaceAll(sql, "{{DATASET_ID}}", dataset)

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     name,
			Filename: file.Name(),
			SQL:      sql,
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// pending returns the migrations whose version has not been applied.
func pending(migrations []Migration, applied []AppliedMigration) []Migration {
	done := make(map[int]bool, len(applied))
	for _, am := range applied {
		done[am.Version] = true
	}

	var out []Migration
	for _, m := range migrations {
		if !done[m.Version] {
			out = append(out, m)
		}
	}
	return out
}

// checksumDrift returns applied migrations whose file no longer matches the
// recorded checksum.
func checksumDrift(migrations []Migration, applied []AppliedMigration) []Migration {
	recorded := make(map[int]string, len(applied))
	for _, am := range applied {
		recorded[am.Version] = am.Checksum
	}

	var out []Migration
	for _, m := range migrations {
		if sum, ok := recorded[m.Version]; ok && sum != "" && sum != m.Checksum {
			out = append(out, m)
		}
	}
	return out
}
