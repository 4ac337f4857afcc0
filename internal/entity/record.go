package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"invoiceparser/constants"
)

// ProcessingRecord tracks the extraction lifecycle of a single document.
// There is exactly one record per document; the status column doubles as the
// per-document lock (a record in PROCESSING refuses a second extraction).
type ProcessingRecord struct {
	DocumentID    uuid.UUID                  `json:"document_id"`
	Status        constants.ProcessingStatus `json:"status"`
	ExtractedData json.RawMessage            `json:"extracted_data,omitempty"` // present only when COMPLETED
	Warnings      []string                   `json:"warnings,omitempty"`
	ErrorDetail   *string                    `json:"error_detail,omitempty"` // present only when FAILED
	AttemptCount  int                        `json:"attempt_count"`
	ModelName     *string                    `json:"model_name,omitempty"`
	CreatedAt     time.Time                  `json:"created_at"`
	UpdatedAt     time.Time                  `json:"updated_at"`
}

// NewProcessingRecord returns a fresh PENDING record for documentID.
func NewProcessingRecord(documentID uuid.UUID) *ProcessingRecord {
	now := time.Now().UTC()
	return &ProcessingRecord{
		DocumentID: documentID,
		Status:     constants.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
