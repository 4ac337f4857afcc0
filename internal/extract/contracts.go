package extract

import (
	"context"
	"encoding/json"
)

// Result is what a variant returns on success. RawJSON has already been
// checked against the invoice schema; normalization happens in the processor.
type Result struct {
	RawJSON   json.RawMessage
	ModelName string
	// Attempts is the number of extraction calls made, including retries.
	// It is populated on failure too.
	Attempts int
}

// Extractor converts document bytes into a structured invoice payload.
// Implementations: the deterministic mock, the live Gemini-backed variant,
// and the retry decorator that wraps the live one.
type Extractor interface {
	Extract(ctx context.Context, data []byte, contentType string) (Result, error)
}
