package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rpattn/evservice/internal/config"
	"github.com/rpattn/evservice/internal/db"
	"github.com/rpattn/evservice/internal/domain"
	"github.com/rpattn/evservice/internal/evcustomer"
	"github.com/rpattn/evservice/internal/export"
	"github.com/rpattn/evservice/internal/ingestion"
	"github.com/rpattn/evservice/internal/repository"
	schemavalidator "github.com/rpattn/evservice/internal/schema/validator"
	"github.com/rpattn/evservice/internal/server"
)

func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml")
	flag.Parse()

	cfg, fileLoaded, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := cfg.Log.NewLogger(os.Stdout)
	logger.Info().Bool("config_file", fileLoaded).Str("addr", cfg.Server.Addr).Msg("configuration loaded")

	// Reject ambiguous alias tables at startup.
	if err := schemavalidator.ValidateAliases(domain.CanonicalFields); err != nil {
		logger.Fatal().Err(err).Msg("invalid canonical field declarations")
	}

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup database connection
	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer conn.Close()

	// Run migrations
	if err := db.RunMigrations(cfg.Database, logger); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Create repositories
	customerRepo := repository.NewEVCustomerRepository(conn.Pool)
	importLogRepo := repository.NewImportLogRepository(conn.Pool)

	router := server.NewRouter(server.Deps{
		Logger:       logger,
		DB:           conn,
		CustomerRepo: customerRepo,
		Ingestion: ingestion.NewService(customerRepo, importLogRepo, ingestion.Options{
			MaxRows: cfg.Import.MaxRows,
			Logger:  logger.With().Str("component", "ingestion").Logger(),
		}),
		Export:         export.NewService(customerRepo),
		Customers:      evcustomer.NewService(customerRepo, logger.With().Str("component", "evcustomer").Logger()),
		CORSOrigins:    cfg.Server.CORSOrigins,
		MaxUploadBytes: cfg.Import.MaxUploadBytes(),
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Msg("starting EV service API")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	logger.Info().Msg("server exited")
}
