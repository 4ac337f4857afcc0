package entity

import (
	"time"

	"github.com/google/uuid"
)

// Document is the uploaded artifact. Rows are created on upload and are
// read-only to the processing pipeline.
type Document struct {
	ID          uuid.UUID `json:"id"`
	Filename    string    `json:"filename"`
	StorageKey  string    `json:"storage_key"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}
