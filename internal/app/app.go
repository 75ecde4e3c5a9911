// Package app assembles the ledger components selected by configuration.
// Both the HTTP server and the CLI build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/storage"
	"github.com/dvloznov/vendor-ledger/internal/attachments"
	"github.com/dvloznov/vendor-ledger/internal/config"
	"github.com/dvloznov/vendor-ledger/internal/delivery"
	"github.com/dvloznov/vendor-ledger/internal/export"
	"github.com/dvloznov/vendor-ledger/internal/gcp"
	infraBQ "github.com/dvloznov/vendor-ledger/internal/infra/bigquery"
	"github.com/dvloznov/vendor-ledger/internal/infra/postgres"
	"github.com/dvloznov/vendor-ledger/internal/intake"
	"github.com/dvloznov/vendor-ledger/internal/invoice"
	"github.com/dvloznov/vendor-ledger/internal/jobs"
	"github.com/dvloznov/vendor-ledger/internal/logger"
	"github.com/dvloznov/vendor-ledger/internal/mailer"
	"github.com/dvloznov/vendor-ledger/internal/notionsync"
	"github.com/dvloznov/vendor-ledger/internal/pricing"
	"github.com/dvloznov/vendor-ledger/internal/records"
	"github.com/dvloznov/vendor-ledger/internal/sheets"
	"github.com/dvloznov/vendor-ledger/internal/submission"
	"google.golang.org/api/option"
)

// App holds the wired components. Close releases every client it opened.
type App struct {
	Config    *config.Config
	Catalog   *pricing.Catalog
	Factory   *invoice.Factory
	Store     attachments.Store
	Sink      submission.Sink
	Submitter *submission.Submitter
	Mail      mailer.Sender

	skipSink bool
	mu       sync.Mutex
	google   *gcp.Services
	closers  []func() error
}

// Option adjusts what New opens.
type Option func(*App)

// WithoutSink skips opening the submission sink, for callers that only need
// the catalog or the attachment store.
func WithoutSink() Option {
	return func(a *App) { a.skipSink = true }
}

// New builds the catalog, attachment store, sink and submitter for cfg.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{Config: cfg}
	for _, opt := range opts {
		opt(a)
	}

	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	log := logger.FromContext(ctx)
	cfg := a.Config

	catalog, err := a.loadCatalog()
	if err != nil {
		return err
	}
	a.Catalog = catalog
	a.Factory = invoice.NewFactory(catalog)

	if a.Store, err = a.openStore(ctx); err != nil {
		return err
	}
	if !a.skipSink {
		if a.Sink, err = a.openSink(ctx); err != nil {
			return err
		}
	}

	a.Submitter = submission.NewSubmitter(submission.RetryPolicy{
		MaxAttempts: cfg.SinkMaxAttempts,
		Backoff:     cfg.SinkRetryBackoff,
	})

	mail, err := mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		Timeout:  cfg.SMTPTimeout,
	})
	switch {
	case err == nil:
		a.Mail = mail
	case errors.Is(err, mailer.ErrNotConfigured):
		log.Debug().Err(err).Msg("Invoice email disabled")
	default:
		return fmt.Errorf("app: mailer: %w", err)
	}

	log.Info().
		Str("attachments", cfg.AttachmentBackend).
		Str("sink", cfg.SinkBackend).
		Bool("sink_open", a.Sink != nil).
		Int("prices", len(catalog.Entries())).
		Bool("email", a.Mail != nil).
		Msg("Ledger components ready")
	return nil
}

func (a *App) loadCatalog() (*pricing.Catalog, error) {
	if a.Config.PriceCatalogFile == "" {
		return pricing.DefaultCatalog(), nil
	}
	catalog, err := pricing.LoadCatalog(a.Config.PriceCatalogFile)
	if err != nil {
		return nil, fmt.Errorf("app: price catalog: %w", err)
	}
	return catalog, nil
}

// Intake returns a line intake service honouring the configured upload
// requirements.
func (a *App) Intake() *intake.Service {
	return intake.NewService(a.Factory, a.Store, intake.Requirements{
		Primary:   a.Config.RequirePANImage,
		Secondary: a.Config.RequireGSTImage,
	})
}

// DeliveryHandler renders and archives invoices into the attachment store
// and emails them when SMTP is configured.
func (a *App) DeliveryHandler() *delivery.Handler {
	return &delivery.Handler{Archive: a.Store, Mail: a.Mail}
}

// EnableDelivery queues a delivery job on pub after every submitted batch.
func (a *App) EnableDelivery(pub jobs.Publisher) {
	a.Submitter.AfterSubmit(delivery.Hook(pub, a.Config.InvoiceRecipients))
}

// Records opens the donor and program books. Either is nil when its sheet is
// not configured or cannot be opened; the failure is logged, not returned.
func (a *App) Records(ctx context.Context) (*records.DonorBook, *records.ProgramBook) {
	log := logger.FromContext(ctx)
	cfg := a.Config
	if cfg.SheetDonor == "" && cfg.SheetProgramURL == "" {
		return nil, nil
	}

	svcs, err := a.googleServices(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Donor and program sheets disabled")
		return nil, nil
	}
	client := sheets.NewClient(svcs.Sheets, svcs.Drive)

	var donors *records.DonorBook
	if cfg.SheetDonor != "" {
		ws, err := client.OpenWorksheet(ctx, cfg.SheetDonor, cfg.WorksheetDonor)
		if err != nil {
			log.Warn().Err(err).Str("sheet", cfg.SheetDonor).Msg("Donor sheet unavailable")
		} else {
			donors = records.NewDonorBook(ws)
		}
	}

	programSheet := cfg.SheetProgramURL
	if programSheet == "" {
		programSheet = cfg.SheetDonor
	}
	var program *records.ProgramBook
	ws, err := client.OpenWorksheet(ctx, programSheet, cfg.WorksheetProgram)
	if err != nil {
		log.Warn().Err(err).Str("sheet", programSheet).Msg("Program sheet unavailable")
	} else {
		program = records.NewProgramBook(ws)
	}

	return donors, program
}

func (a *App) openStore(ctx context.Context) (attachments.Store, error) {
	cfg := a.Config
	switch cfg.AttachmentBackend {
	case config.AttachmentGCS:
		opts, err := a.clientOptions(ctx, storage.ScopeReadWrite)
		if err != nil {
			return nil, err
		}
		client, err := storage.NewClient(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("app: storage client: %w", err)
		}
		a.onClose(client.Close)
		return attachments.NewGCSStore(client, cfg.GCSBucket), nil

	case config.AttachmentDrive:
		svcs, err := a.googleServices(ctx)
		if err != nil {
			return nil, err
		}
		return attachments.NewDriveStore(svcs.Drive, cfg.DriveFolderID), nil

	default:
		store, err := attachments.NewLocalStore(cfg.UploadDir)
		if err != nil {
			return nil, fmt.Errorf("app: upload dir: %w", err)
		}
		return store, nil
	}
}

func (a *App) openSink(ctx context.Context) (submission.Sink, error) {
	cfg := a.Config
	switch cfg.SinkBackend {
	case config.SinkBigQuery:
		opts, err := a.clientOptions(ctx, bigquery.Scope)
		if err != nil {
			return nil, err
		}
		sink, err := infraBQ.NewLineSink(ctx, cfg.BigQueryProject, cfg.BigQueryDataset, cfg.BigQueryTable, opts...)
		if err != nil {
			return nil, fmt.Errorf("app: bigquery sink: %w", err)
		}
		a.onClose(sink.Close)
		return sink, nil

	case config.SinkNotion:
		return notionsync.NewLineSink(notionsync.NewNotionClient(cfg.NotionToken), cfg.NotionDatabaseID), nil

	case config.SinkPostgres:
		pool, err := postgres.Connect(ctx, cfg.PostgresDBURL)
		if err != nil {
			return nil, fmt.Errorf("app: postgres sink: %w", err)
		}
		a.onClose(func() error { pool.Close(); return nil })
		sink := postgres.NewLineSink(pool)
		if err := sink.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("app: postgres sink: %w", err)
		}
		return sink, nil

	case config.SinkXLSX:
		return export.NewWorkbookSink(cfg.XLSXPath, cfg.WorksheetVendor), nil

	default:
		svcs, err := a.googleServices(ctx)
		if err != nil {
			return nil, err
		}
		ws, err := sheets.NewClient(svcs.Sheets, svcs.Drive).OpenWorksheet(ctx, cfg.SheetVendor, cfg.WorksheetVendor)
		if err != nil {
			return nil, fmt.Errorf("app: vendor sheet: %w", err)
		}
		return sheets.NewVendorSink(ws), nil
	}
}

func (a *App) clientOptions(ctx context.Context, scopes ...string) ([]option.ClientOption, error) {
	opts, err := gcp.ClientOptions(ctx, gcp.CredentialSource{
		JSON: a.Config.ServiceAccountJSON,
		File: a.Config.ServiceAccountFile,
	}, scopes...)
	if err != nil {
		return nil, fmt.Errorf("app: google credentials: %w", err)
	}
	return opts, nil
}

// googleServices creates the Sheets and Drive clients once.
func (a *App) googleServices(ctx context.Context) (*gcp.Services, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.google != nil {
		return a.google, nil
	}

	opts, err := a.clientOptions(ctx, gcp.Scopes...)
	if err != nil {
		return nil, err
	}
	svcs, err := gcp.NewServices(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	a.google = svcs
	return svcs, nil
}

func (a *App) onClose(fn func() error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closers = append(a.closers, fn)
}

// Close releases clients in reverse order of creation.
func (a *App) Close() error {
	a.mu.Lock()
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
