package invoice

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeKeepsMalformedStringsForNormalization(t *testing.T) {
	clean, dropped, err := SanitizeOptionalFields([]byte(`{
		"vendor_name": "Acme Corp",
		"invoice_date": "March 15, 2026",
		"subtotal": "about twelve"
	}`))
	require.NoError(t, err)
	assert.Empty(t, dropped, "strings are normalization's problem, not sanitization's")

	var m map[string]any
	require.NoError(t, json.Unmarshal(clean, &m))
	assert.Equal(t, "March 15, 2026", m["invoice_date"])
	assert.Equal(t, "about twelve", m["subtotal"])
}

func TestSanitizeRendersNumericStringsAndDropsHopelessValues(t *testing.T) {
	clean, dropped, err := SanitizeOptionalFields([]byte(`{
		"invoice_number": 10042,
		"vendor_name": {"name": "Acme"},
		"subtotal": true,
		"tax_amount": null,
		"total_amount": 99.5
	}`))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"vendor_name", "subtotal", "tax_amount"}, dropped)

	var m map[string]any
	require.NoError(t, json.Unmarshal(clean, &m))
	assert.Equal(t, "10042", m["invoice_number"])
	assert.NotContains(t, m, "vendor_name")
	assert.NotContains(t, m, "subtotal")
	assert.NotContains(t, m, "tax_amount")
	assert.Equal(t, 99.5, m["total_amount"])
}

func TestSanitizeWalksLineItems(t *testing.T) {
	clean, dropped, err := SanitizeOptionalFields([]byte(`{
		"items": [
			{"description": 7, "quantity": 2, "total": true},
			{"description": "widget", "unit_price": "9.99"}
		]
	}`))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"items[0].total"}, dropped)

	var m struct {
		Items []map[string]any `json:"items"`
	}
	require.NoError(t, json.Unmarshal(clean, &m))
	require.Len(t, m.Items, 2)
	assert.Equal(t, "7", m.Items[0]["description"])
	assert.NotContains(t, m.Items[0], "total")
	assert.Equal(t, "9.99", m.Items[1]["unit_price"])
}

func TestSanitizedOutputValidatesAgainstSchema(t *testing.T) {
	// Every field carries a value the raw schema would reject or that the old
	// strict formats used to reject; after sanitization the document must pass.
	clean, _, err := SanitizeOptionalFields([]byte(`{
		"invoice_number": 10042,
		"invoice_date": "next Tuesday",
		"vendor_name": "Acme",
		"customer_name": false,
		"currency": "dollars",
		"subtotal": {"amount": 12},
		"items": [{"description": "widget", "quantity": "two"}]
	}`))
	require.NoError(t, err)
	assert.NoError(t, ValidateJSONAgainstSchema(BuildInvoiceJSONSchema(), clean))
}

func TestSanitizeRejectsNonObjectDocuments(t *testing.T) {
	_, _, err := SanitizeOptionalFields([]byte(`[{"vendor_name": "Acme"}]`))
	assert.Error(t, err)

	_, _, err = SanitizeOptionalFields([]byte(`not json at all`))
	assert.Error(t, err)
}
