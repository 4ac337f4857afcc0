package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"

	"invoiceparser/internal/common"
	"invoiceparser/internal/export"
	"invoiceparser/internal/extract"
	"invoiceparser/internal/processor"
	"invoiceparser/internal/repository"
	"invoiceparser/internal/server"
	"invoiceparser/internal/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, repository.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		DialTimeout:     cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := repository.EnsureSchema(ctx, db); err != nil {
		logger.Error("failed to ensure schema", "err", err)
		os.Exit(1)
	}

	var store storage.Storage
	switch cfg.Storage.Backend {
	case "minio":
		store, err = storage.NewMinIO(storage.MinIOConfig{
			Endpoint:  cfg.Storage.MinIOEndpoint,
			AccessKey: cfg.Storage.MinIOAccessKey,
			SecretKey: cfg.Storage.MinIOSecretKey,
			Bucket:    cfg.Storage.MinIOBucket,
			UseSSL:    cfg.Storage.MinIOUseSSL,
		})
	default:
		store, err = storage.NewLocal(cfg.Storage.LocalDir)
	}
	if err != nil {
		logger.Error("failed to initialize storage", "backend", cfg.Storage.Backend, "err", err)
		os.Exit(1)
	}
	logger.Info("storage ready", "backend", cfg.Storage.Backend)

	registry := prometheus.NewRegistry()
	metrics, err := processor.NewMetrics(registry)
	if err != nil {
		logger.Error("failed to register metrics", "err", err)
		os.Exit(1)
	}

	docs := repository.NewSQLDocumentRepository(db, logger)
	records := repository.NewSQLRecordRepository(db, logger)

	extractor := extract.New(extract.Config{
		UseMock:     cfg.Extraction.UseMock,
		APIKey:      cfg.Extraction.APIKey,
		BaseURL:     cfg.Extraction.BaseURL,
		Model:       cfg.Extraction.Model,
		Temperature: cfg.Extraction.Temperature,
		Timeout:     cfg.Extraction.Timeout,
		MaxAttempts: cfg.Extraction.MaxAttempts,
		BaseDelay:   cfg.Extraction.BaseDelay,
		MaxDelay:    cfg.Extraction.MaxDelay,
	}, logger)

	proc := processor.New(logger, docs, records, store, extractor, metrics)
	exporter := export.NewService(records, logger)

	app, err := server.New(server.Deps{
		Logger:    logger,
		DB:        db,
		Documents: docs,
		Records:   records,
		Store:     store,
		Processor: proc,
		Exporter:  exporter,
		Registry:  registry,
	})
	if err != nil {
		logger.Error("failed to build server", "err", err)
		os.Exit(1)
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.Server.Addr)
		if err := app.Listen(cfg.Server.Addr); err != nil {
			logger.Error("http server stopped", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("shutdown error", "err", err)
	}
	logger.Info("bye")
}
