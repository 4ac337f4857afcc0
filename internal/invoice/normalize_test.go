package invoice

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAcceptsPartialInvoice(t *testing.T) {
	inv, warnings, err := Normalize([]byte(`{"vendor_name": "Acme Corp"}`))
	require.NoError(t, err)
	require.NotNil(t, inv)
	require.NotNil(t, inv.VendorName)
	assert.Equal(t, "Acme Corp", *inv.VendorName)
	assert.Empty(t, warnings)
	assert.Equal(t, 1, inv.FieldCount())
}

func TestNormalizeEmptyExtractionFails(t *testing.T) {
	inv, _, err := Normalize([]byte(`{}`))
	assert.ErrorIs(t, err, ErrEmptyExtraction)
	assert.Nil(t, inv)

	// Whitespace-only strings count as empty too.
	inv, _, err = Normalize([]byte(`{"vendor_name": "  ", "notes": ""}`))
	assert.ErrorIs(t, err, ErrEmptyExtraction)
	assert.Nil(t, inv)
}

func TestNormalizeRejectsNonJSON(t *testing.T) {
	inv, _, err := Normalize([]byte(`sorry, I cannot process this document`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptyExtraction)
	assert.Nil(t, inv)
}

func TestNormalizeCoercesMoneyStrings(t *testing.T) {
	inv, warnings, err := Normalize([]byte(`{
		"vendor_name": "Acme",
		"subtotal": "$1,234.56",
		"tax_amount": "€45.00",
		"total_amount": 1279.56
	}`))
	require.NoError(t, err)
	require.NotNil(t, inv.Subtotal)
	assert.InDelta(t, 1234.56, *inv.Subtotal, 0.001)
	require.NotNil(t, inv.TaxAmount)
	assert.InDelta(t, 45.0, *inv.TaxAmount, 0.001)
	require.NotNil(t, inv.Total)
	assert.InDelta(t, 1279.56, *inv.Total, 0.001)
	assert.Empty(t, warnings)
}

func TestNormalizeUnparseableAmountBecomesNilWithWarning(t *testing.T) {
	inv, warnings, err := Normalize([]byte(`{
		"vendor_name": "Acme",
		"subtotal": "about twelve dollars"
	}`))
	require.NoError(t, err)
	assert.Nil(t, inv.Subtotal)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "subtotal")
	assert.Contains(t, warnings[0], "unparseable")
}

func TestNormalizeLineItemMismatchWarnings(t *testing.T) {
	t.Run("exact product is silent", func(t *testing.T) {
		_, warnings, err := Normalize([]byte(`{
			"items": [{"description": "widget", "quantity": 3, "unit_price": 9.99, "total": 29.97}]
		}`))
		require.NoError(t, err)
		assert.Empty(t, warnings)
	})

	t.Run("sub-cent rounding noise is silent", func(t *testing.T) {
		// expected 3.9999, reported 4.00: off by a hundredth of a cent.
		_, warnings, err := Normalize([]byte(`{
			"items": [{"description": "widget", "quantity": 3, "unit_price": 1.3333, "total": 4.00}]
		}`))
		require.NoError(t, err)
		assert.Empty(t, warnings)
	})

	t.Run("slight mismatch still gets a warning", func(t *testing.T) {
		// expected 200.00, reported 201.00: 0.5% off.
		_, warnings, err := Normalize([]byte(`{
			"items": [{"description": "widget", "quantity": 10, "unit_price": 20, "total": 201}]
		}`))
		require.NoError(t, err)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], "slightly off")
	})

	t.Run("small mismatch gets a plain warning", func(t *testing.T) {
		// expected 100.00, reported 103.00: 3% off.
		_, warnings, err := Normalize([]byte(`{
			"items": [{"description": "widget", "quantity": 10, "unit_price": 10, "total": 103}]
		}`))
		require.NoError(t, err)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], "does not match")
		assert.NotContains(t, warnings[0], "far from")
	})

	t.Run("large mismatch gets the stronger wording", func(t *testing.T) {
		// expected 100.00, reported 150.00: 33% off.
		_, warnings, err := Normalize([]byte(`{
			"items": [{"description": "widget", "quantity": 10, "unit_price": 10, "total": 150}]
		}`))
		require.NoError(t, err)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], "far from")
	})

	t.Run("missing components are skipped", func(t *testing.T) {
		_, warnings, err := Normalize([]byte(`{
			"items": [{"description": "widget", "total": 150}]
		}`))
		require.NoError(t, err)
		assert.Empty(t, warnings)
	})
}

func TestNormalizeTotalsReconciliation(t *testing.T) {
	t.Run("subtotal mismatch is flagged", func(t *testing.T) {
		_, warnings, err := Normalize([]byte(`{
			"items": [{"total": 100}, {"total": 50}],
			"subtotal": 200
		}`))
		require.NoError(t, err)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], "subtotal")
	})

	t.Run("no subtotal compares items plus tax against total", func(t *testing.T) {
		_, warnings, err := Normalize([]byte(`{
			"items": [{"total": 100}, {"total": 50}],
			"tax_amount": 15,
			"total_amount": 400
		}`))
		require.NoError(t, err)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], "total_amount")
	})

	t.Run("consistent totals are silent", func(t *testing.T) {
		_, warnings, err := Normalize([]byte(`{
			"items": [{"total": 100}, {"total": 50}],
			"subtotal": 150,
			"tax_amount": 15,
			"total_amount": 165
		}`))
		require.NoError(t, err)
		assert.Empty(t, warnings)
	})
}

func TestNormalizeDates(t *testing.T) {
	inv, warnings, err := Normalize([]byte(`{
		"invoice_date": "2026-03-15",
		"due_date": "March 15th 2026"
	}`))
	require.NoError(t, err)
	require.NotNil(t, inv.InvoiceDate)
	assert.Equal(t, "2026-03-15", *inv.InvoiceDate)
	// Malformed dates are kept but flagged.
	require.NotNil(t, inv.DueDate)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "due_date")
}

func TestNormalizeCurrency(t *testing.T) {
	inv, warnings, err := Normalize([]byte(`{"vendor_name": "Acme", "currency": "usd"}`))
	require.NoError(t, err)
	require.NotNil(t, inv.Currency)
	assert.Equal(t, "USD", *inv.Currency)
	assert.Empty(t, warnings)

	inv, warnings, err = Normalize([]byte(`{"vendor_name": "Acme", "currency": "dollars"}`))
	require.NoError(t, err)
	assert.Nil(t, inv.Currency)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "ISO 4217")
}

func TestNormalizeNumericInvoiceNumber(t *testing.T) {
	inv, _, err := Normalize([]byte(`{"invoice_number": 10042}`))
	require.NoError(t, err)
	require.NotNil(t, inv.InvoiceNumber)
	assert.Equal(t, "10042", *inv.InvoiceNumber)
}

func TestNormalizeWarningsAreReturnedOnHardFailure(t *testing.T) {
	// The only populated field is an unparseable amount: the record fails
	// with zero fields, but the warning explaining why still comes back.
	inv, warnings, err := Normalize([]byte(`{"subtotal": "n/a-ish"}`))
	assert.ErrorIs(t, err, ErrEmptyExtraction)
	assert.Nil(t, inv)
	require.Len(t, warnings, 1)
	assert.True(t, strings.Contains(warnings[0], "subtotal"))
}
