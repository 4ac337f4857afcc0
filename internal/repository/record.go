package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"invoiceparser/constants"
	"invoiceparser/internal/entity"
)

var (
	// ErrNotFound is returned when no row matches.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a conditional save's expected prior status
	// no longer matches: another writer got there first.
	ErrConflict = errors.New("status conflict")
)

// RecordRepository persists ProcessingRecords. Save is conditional on the
// record's prior status; that compare-and-set is what makes the status column
// usable as a per-document lock.
type RecordRepository interface {
	// Create inserts a fresh record. The document_id column is unique, so a
	// second create for the same document fails.
	Create(ctx context.Context, rec *entity.ProcessingRecord) error

	// GetByDocumentID returns the record for a document, or ErrNotFound.
	GetByDocumentID(ctx context.Context, documentID uuid.UUID) (*entity.ProcessingRecord, error)

	// Save writes the full record iff the stored status still equals
	// expectedPrior. Returns ErrConflict when it does not, ErrNotFound when
	// the row is missing. UpdatedAt is refreshed on every successful save.
	Save(ctx context.Context, rec *entity.ProcessingRecord, expectedPrior constants.ProcessingStatus) error

	// ListByStatus returns records in the given status, optionally bounded by
	// an updated_at window (inclusive). Ordered by updated_at ascending.
	ListByStatus(ctx context.Context, status constants.ProcessingStatus, from, to *time.Time) ([]entity.ProcessingRecord, error)
}

// DocumentRepository persists uploaded document metadata. The pipeline treats
// documents as read-only; only the upload path writes them.
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error)
}
