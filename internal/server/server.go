package server

import (
	"database/sql"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"invoiceparser/internal/export"
	"invoiceparser/internal/processor"
	"invoiceparser/internal/repository"
	"invoiceparser/internal/server/middleware"
	"invoiceparser/internal/storage"
)

// Deps carries everything the HTTP layer needs. DB may be nil when running
// against the in-memory repositories; health then skips the ping.
type Deps struct {
	Logger    *slog.Logger
	DB        *sql.DB
	Documents repository.DocumentRepository
	Records   repository.RecordRepository
	Store     storage.Storage
	Processor *processor.Processor
	Exporter  *export.Service
	Registry  *prometheus.Registry
}

// New builds the fiber app with middleware and all routes registered.
func New(d Deps) (*fiber.App, error) {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	app := fiber.New(fiber.Config{
		AppName:      "invoiceparser",
		ErrorHandler: ErrorHandler,
		BodyLimit:    32 * 1024 * 1024,
	})

	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(d.Logger))

	if d.Registry != nil {
		pm, err := middleware.NewPrometheusMiddleware(d.Registry)
		if err != nil {
			return nil, err
		}
		app.Use(pm.Handler())
		app.Get("/metrics", adaptor.HTTPHandler(
			promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}),
		))
	}

	h := &handler{
		logger:    d.Logger,
		db:        d.DB,
		documents: d.Documents,
		records:   d.Records,
		store:     d.Store,
		processor: d.Processor,
		exporter:  d.Exporter,
	}
	h.register(app)

	return app, nil
}
