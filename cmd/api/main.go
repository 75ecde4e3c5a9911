package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dvloznov/vendor-ledger/internal/api/handlers"
	"github.com/dvloznov/vendor-ledger/internal/api/middleware"
	"github.com/dvloznov/vendor-ledger/internal/app"
	"github.com/dvloznov/vendor-ledger/internal/config"
	"github.com/dvloznov/vendor-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/vendor-ledger/internal/logger"
	"github.com/dvloznov/vendor-ledger/internal/session"
)

func main() {
	// Bootstrap logger until the configured one is known
	log := logger.New()

	cfg, err := config.Load(log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log = logger.NewFromConfig(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	ledgerApp, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize ledger")
	}
	defer ledgerApp.Close()

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore, inmemory.Options{})

	log.Info().Msg("Starting delivery worker")
	if err := jobQueue.Start(ctx, ledgerApp.DeliveryHandler().Handle); err != nil {
		log.Fatal().Err(err).Msg("Failed to start delivery worker")
	}
	ledgerApp.EnableDelivery(jobQueue)

	// Expire idle ledgers in the background
	sessions := session.NewManager(cfg.SessionTTL)
	go sessions.Run(ctx, time.Minute)

	donors, program := ledgerApp.Records(ctx)

	mux := handlers.NewRouter(handlers.Handlers{
		Lines:   handlers.NewLinesHandler(sessions, ledgerApp.Intake(), ledgerApp.Submitter, ledgerApp.Sink, cfg.MaxUploadBytes, log),
		Prices:  handlers.NewPricesHandler(ledgerApp.Catalog),
		Records: handlers.NewRecordsHandler(donors, program, log),
		Uploads: handlers.NewUploadsHandler(ledgerApp.Store, log),
		Jobs:    handlers.NewJobsHandler(jobStore, log),
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(
					middleware.Auth(cfg.DashboardPassword, "/health")(mux),
				),
			),
		),
	)

	port := strconv.Itoa(cfg.Port)
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Wait for in-flight deliveries
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}
	cancel()

	log.Info().Msg("Server exited")
}
