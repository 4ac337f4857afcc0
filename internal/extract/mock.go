package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"invoiceparser/constants"
	"invoiceparser/internal/invoice"
)

// MockExtractor returns a fixed, realistic invoice without any network call.
// It is selected when no API credential is configured or when the mock
// override is set, and it never fails except on malformed input.
type MockExtractor struct {
	logger *slog.Logger
}

func NewMockExtractor(logger *slog.Logger) *MockExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &MockExtractor{logger: logger}
}

func (m *MockExtractor) Extract(ctx context.Context, data []byte, contentType string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{Attempts: 1}, Transient(err)
	}
	if len(data) == 0 {
		return Result{Attempts: 1}, Permanent(errors.New("empty document"))
	}
	if !constants.IsSupportedContentType(contentType) {
		return Result{Attempts: 1}, Permanent(fmt.Errorf("unsupported content type %q", contentType))
	}

	raw, err := json.Marshal(MockInvoice())
	if err != nil {
		return Result{Attempts: 1}, Permanent(fmt.Errorf("encode mock invoice: %w", err))
	}
	m.logger.Debug("extract.mock.ok", "bytes", len(data), "content_type", contentType)
	return Result{RawJSON: raw, ModelName: "mock", Attempts: 1}, nil
}

// MockInvoice is the canonical mock fixture: three line items, 10% tax, USD.
// Tests assert on these exact values.
func MockInvoice() *invoice.ExtractedInvoice {
	today := time.Now().UTC().Format("2006-01-02")
	items := []invoice.LineItem{
		{Description: "Professional Services - Consulting", Quantity: f64(10), UnitPrice: f64(150.00), Total: f64(1500.00)},
		{Description: "Software License - Annual", Quantity: f64(1), UnitPrice: f64(999.00), Total: f64(999.00)},
		{Description: "Training Workshop - 2 days", Quantity: f64(2), UnitPrice: f64(500.00), Total: f64(1000.00)},
	}
	subtotal := 0.0
	for _, it := range items {
		subtotal += *it.Total
	}
	taxRate := 10.0
	taxAmount := subtotal * taxRate / 100

	return &invoice.ExtractedInvoice{
		InvoiceNumber:   str("INV-10042"),
		InvoiceDate:     str(today),
		DueDate:         str(today),
		VendorName:      str("Mock Vendor Corp"),
		VendorAddress:   str("123 Mock Street, Test City, TC 12345"),
		VendorTaxID:     str("XX-1234567"),
		CustomerName:    str("Test Customer Inc"),
		CustomerAddress: str("456 Test Avenue, Demo City, DC 67890"),
		CustomerTaxID:   str("YY-7654321"),
		Items:           items,
		Subtotal:        f64(subtotal),
		TaxRate:         f64(taxRate),
		TaxAmount:       f64(taxAmount),
		Total:           f64(subtotal + taxAmount),
		Currency:        str("USD"),
		PaymentTerms:    str("Net 30"),
		Notes:           str("This is mock data for testing purposes"),
	}
}

func f64(v float64) *float64 { return &v }
func str(s string) *string   { return &s }
