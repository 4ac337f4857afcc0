package storage

import (
	"context"
	"io"
)

// Storage provides access to uploaded document bytes. The processing pipeline
// only reads; the upload path writes. Failures to read a stored document are
// not retryable by the extraction layer.
type Storage interface {
	// Put stores an object under key. Size is the exact byte count if known,
	// or -1 to let the backend buffer/chunk.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Get returns the full object contents.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes an object; used to roll back a failed upload.
	Delete(ctx context.Context, key string) error
}
