package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"invoiceparser/constants"
	"invoiceparser/internal/entity"
)

// MemoryRecordRepository is an in-memory RecordRepository with the same
// compare-and-set semantics as the SQL one. Used by the one-shot CLI and by
// tests that exercise the status-as-lock behavior for real.
type MemoryRecordRepository struct {
	mu      sync.Mutex
	records map[uuid.UUID]*entity.ProcessingRecord
}

func NewMemoryRecordRepository() *MemoryRecordRepository {
	return &MemoryRecordRepository{records: make(map[uuid.UUID]*entity.ProcessingRecord)}
}

var _ RecordRepository = (*MemoryRecordRepository)(nil)

func (r *MemoryRecordRepository) Create(ctx context.Context, rec *entity.ProcessingRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[rec.DocumentID]; ok {
		return fmt.Errorf("record for document %s already exists", rec.DocumentID)
	}
	r.records[rec.DocumentID] = copyRecord(rec)
	return nil
}

func (r *MemoryRecordRepository) GetByDocumentID(ctx context.Context, documentID uuid.UUID) (*entity.ProcessingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[documentID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRecord(rec), nil
}

func (r *MemoryRecordRepository) Save(ctx context.Context, rec *entity.ProcessingRecord, expectedPrior constants.ProcessingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.records[rec.DocumentID]
	if !ok {
		return ErrNotFound
	}
	if stored.Status != expectedPrior {
		return ErrConflict
	}
	rec.UpdatedAt = time.Now().UTC()
	r.records[rec.DocumentID] = copyRecord(rec)
	return nil
}

func (r *MemoryRecordRepository) ListByStatus(ctx context.Context, status constants.ProcessingStatus, from, to *time.Time) ([]entity.ProcessingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.ProcessingRecord
	for _, rec := range r.records {
		if rec.Status != status {
			continue
		}
		if from != nil && rec.UpdatedAt.Before(*from) {
			continue
		}
		if to != nil && rec.UpdatedAt.After(*to) {
			continue
		}
		out = append(out, *copyRecord(rec))
	}
	return out, nil
}

// copyRecord deep-copies so callers never alias the stored record.
func copyRecord(rec *entity.ProcessingRecord) *entity.ProcessingRecord {
	out := *rec
	if rec.ExtractedData != nil {
		out.ExtractedData = append([]byte(nil), rec.ExtractedData...)
	}
	if rec.Warnings != nil {
		out.Warnings = append([]string(nil), rec.Warnings...)
	}
	if rec.ErrorDetail != nil {
		v := *rec.ErrorDetail
		out.ErrorDetail = &v
	}
	if rec.ModelName != nil {
		v := *rec.ModelName
		out.ModelName = &v
	}
	return &out
}

// MemoryDocumentRepository is the in-memory counterpart of DocumentRepository.
type MemoryDocumentRepository struct {
	mu   sync.Mutex
	docs map[uuid.UUID]entity.Document
}

func NewMemoryDocumentRepository() *MemoryDocumentRepository {
	return &MemoryDocumentRepository{docs: make(map[uuid.UUID]entity.Document)}
}

var _ DocumentRepository = (*MemoryDocumentRepository)(nil)

func (r *MemoryDocumentRepository) Create(ctx context.Context, doc *entity.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[doc.ID]; ok {
		return fmt.Errorf("document %s already exists", doc.ID)
	}
	r.docs[doc.ID] = *doc
	return nil
}

func (r *MemoryDocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &doc, nil
}
