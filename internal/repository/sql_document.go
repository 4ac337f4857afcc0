package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"invoiceparser/internal/entity"
)

// SQLDocumentRepository is the database/sql implementation of DocumentRepository.
type SQLDocumentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLDocumentRepository(db *sql.DB, logger *slog.Logger) *SQLDocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLDocumentRepository{db: db, logger: logger}
}

var _ DocumentRepository = (*SQLDocumentRepository)(nil)

func (r *SQLDocumentRepository) Create(ctx context.Context, doc *entity.Document) error {
	const q = `
		INSERT INTO documents (id, filename, storage_key, content_type, size, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, q,
		doc.ID.String(),
		doc.Filename,
		doc.StorageKey,
		doc.ContentType,
		doc.Size,
		formatTime(doc.CreatedAt),
	)
	if err != nil {
		r.logger.Error("document create failed", "id", doc.ID, "err", err)
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *SQLDocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	const q = `
		SELECT id, filename, storage_key, content_type, size, created_at
		FROM documents
		WHERE id = $1
	`
	var (
		idStr, createdAt string
		doc              entity.Document
	)
	err := r.db.QueryRowContext(ctx, q, id.String()).Scan(
		&idStr, &doc.Filename, &doc.StorageKey, &doc.ContentType, &doc.Size, &createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select document: %w", err)
	}
	if doc.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("parse document id: %w", err)
	}
	if doc.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &doc, nil
}
