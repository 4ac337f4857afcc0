package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"invoiceparser/constants"
	"invoiceparser/internal/extract/gemini"
	"invoiceparser/internal/invoice"
)

// GeminiExtractor adapts the low-level gemini client to the Extractor
// contract: it classifies failures into the transient/permanent taxonomy and
// validates the model's payload against the invoice schema.
type GeminiExtractor struct {
	client *gemini.Client
	logger *slog.Logger
}

func NewGeminiExtractor(client *gemini.Client, logger *slog.Logger) *GeminiExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiExtractor{client: client, logger: logger}
}

func (g *GeminiExtractor) Extract(ctx context.Context, data []byte, contentType string) (Result, error) {
	res := Result{ModelName: g.client.Model(), Attempts: 1}

	if len(data) == 0 {
		return res, Permanent(errors.New("empty document"))
	}
	if !constants.IsSupportedContentType(contentType) {
		return res, Permanent(fmt.Errorf("unsupported content type %q", contentType))
	}

	raw, err := g.client.GenerateInvoice(ctx, data, constants.NormalizeContentType(contentType))
	if err != nil {
		return res, classify(err)
	}

	// Sanitize non-conforming optionals first so one hopeless field cannot
	// sink an otherwise usable extraction; malformed-but-typed values (odd
	// dates, non-numeric amounts) pass through for normalization to flag.
	clean, dropped, err := invoice.SanitizeOptionalFields(raw)
	if err != nil {
		g.logger.Warn("extract.gemini.not_an_object", "err", err)
		return res, Transient(fmt.Errorf("model output is not a JSON object: %w", err))
	}
	if len(dropped) > 0 {
		g.logger.Warn("extract.gemini.sanitized", "dropped", dropped)
	}

	// A payload that still fails the schema is structurally wrong; retryable,
	// since a fresh sample from the model often parses where the last did not.
	if err := invoice.ValidateJSONAgainstSchema(invoice.BuildInvoiceJSONSchema(), clean); err != nil {
		g.logger.Warn("extract.gemini.schema_invalid", "err", err)
		return res, Transient(fmt.Errorf("model output failed schema validation: %w", err))
	}

	res.RawJSON = clean
	return res, nil
}

// classify maps client errors onto the retry taxonomy: rate limits and server
// errors are transient, other HTTP statuses (bad key, bad request,
// unsupported media) are permanent, and anything non-HTTP (timeouts, DNS,
// connection resets, decode failures) is presumed transient.
func classify(err error) error {
	var apiErr *gemini.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return Transient(err)
		case apiErr.StatusCode >= 500:
			return Transient(err)
		default:
			return Permanent(err)
		}
	}
	return Transient(err)
}
