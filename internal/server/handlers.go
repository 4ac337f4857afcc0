package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"invoiceparser/constants"
	"invoiceparser/internal/entity"
	"invoiceparser/internal/export"
	"invoiceparser/internal/processor"
	"invoiceparser/internal/repository"
	"invoiceparser/internal/storage"
)

type handler struct {
	logger    *slog.Logger
	db        *sql.DB
	documents repository.DocumentRepository
	records   repository.RecordRepository
	store     storage.Storage
	processor *processor.Processor
	exporter  *export.Service
}

func (h *handler) register(app *fiber.App) {
	app.Get("/healthz", h.healthz)
	app.Get("/health", h.health)

	app.Post("/documents", h.upload)
	app.Get("/documents/:id", h.getDocument)
	app.Get("/documents/:id/status", h.getStatus)
	app.Post("/documents/:id/process", h.process)
	app.Post("/documents/:id/reprocess", h.reprocess)

	app.Get("/exports/invoices.xlsx", h.exportInvoices)
}

// healthz is liveness only: the process is up.
func (h *handler) healthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// health additionally pings the database when one is configured.
func (h *handler) health(c *fiber.Ctx) error {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "DB_UNAVAILABLE", "database ping failed")
		}
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// upload accepts a multipart document, persists the bytes and creates the
// PENDING processing record. Extraction is not started here; the caller
// triggers it via POST /documents/:id/process.
func (h *handler) upload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_INPUT", "multipart field 'file' is required")
	}
	if fileHeader.Size <= 0 {
		return writeError(c, fiber.StatusBadRequest, "INVALID_INPUT", "uploaded file is empty")
	}

	contentType := constants.NormalizeContentType(fileHeader.Header.Get("Content-Type"))
	if !constants.IsSupportedContentType(contentType) {
		// Browsers often send application/octet-stream; fall back to the extension.
		contentType = constants.ContentTypeForExt(filepath.Ext(fileHeader.Filename))
	}
	if !constants.IsSupportedContentType(contentType) {
		return writeError(c, fiber.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE",
			"only PDF, JPEG, PNG and WEBP documents are accepted")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_INPUT", "cannot read uploaded file")
	}
	defer src.Close()

	id := uuid.New()
	key := fmt.Sprintf("documents/%s%s", id, filepath.Ext(fileHeader.Filename))

	ctx := c.Context()
	if err := h.store.Put(ctx, key, src, fileHeader.Size, contentType); err != nil {
		h.logger.Error("upload.store_failed", "err", err)
		return writeError(c, fiber.StatusInternalServerError, "STORAGE_ERROR", "failed to store document")
	}

	doc := &entity.Document{
		ID:          id,
		Filename:    fileHeader.Filename,
		StorageKey:  key,
		ContentType: contentType,
		Size:        fileHeader.Size,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.documents.Create(ctx, doc); err != nil {
		_ = h.store.Delete(ctx, key)
		h.logger.Error("upload.create_document_failed", "err", err)
		return writeError(c, fiber.StatusInternalServerError, "DB_ERROR", "failed to record document")
	}

	rec := entity.NewProcessingRecord(id)
	if err := h.records.Create(ctx, rec); err != nil {
		_ = h.store.Delete(ctx, key)
		h.logger.Error("upload.create_record_failed", "err", err)
		return writeError(c, fiber.StatusInternalServerError, "DB_ERROR", "failed to create processing record")
	}

	h.logger.Info("upload.ok", "document_id", id, "content_type", contentType, "size", fileHeader.Size)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"document": doc,
		"record":   rec,
	})
}

func (h *handler) getDocument(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_INPUT", "document id must be a UUID")
	}
	doc, err := h.documents.GetByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
		}
		return writeError(c, fiber.StatusInternalServerError, "DB_ERROR", "failed to load document")
	}
	return c.JSON(doc)
}

// getStatus is the read-only poll endpoint. Re-polling a terminal record
// returns the identical payload every time.
func (h *handler) getStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_INPUT", "document id must be a UUID")
	}
	rec, err := h.processor.GetStatus(c.Context(), id)
	if err != nil {
		return processingError(c, err)
	}
	return c.JSON(rec)
}

// process is the idempotent trigger: a document already PROCESSING or
// COMPLETED comes back 200 with its current record, untouched.
func (h *handler) process(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_INPUT", "document id must be a UUID")
	}
	rec, err := h.processor.RequestProcessing(c.Context(), id)
	if err != nil {
		return processingError(c, err)
	}
	return c.JSON(rec)
}

// reprocess is the strict trigger: it insists on starting a run now, so a
// PROCESSING or COMPLETED record is a 409 instead of a no-op.
func (h *handler) reprocess(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_INPUT", "document id must be a UUID")
	}
	rec, err := h.processor.Process(c.Context(), id)
	if err != nil {
		return processingError(c, err)
	}
	return c.JSON(rec)
}

func (h *handler) exportInvoices(c *fiber.Ctx) error {
	from, err := parseTimeParam(c.Query("from"))
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_INPUT", "from must be RFC3339 or YYYY-MM-DD")
	}
	to, err := parseTimeParam(c.Query("to"))
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_INPUT", "to must be RFC3339 or YYYY-MM-DD")
	}

	data, err := h.exporter.ExportInvoicesXLSX(c.Context(), from, to)
	if err != nil {
		h.logger.Error("export.failed", "err", err)
		return writeError(c, fiber.StatusInternalServerError, "EXPORT_ERROR", "failed to build export")
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="invoices-%s.xlsx"`, time.Now().UTC().Format("20060102-150405")))
	return c.Send(data)
}

func parseTimeParam(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}
