package invoice

import (
	"encoding/json"
	"strconv"
)

var (
	sanitizeStringFields = []string{
		"invoice_number", "invoice_date", "due_date",
		"vendor_name", "vendor_address", "vendor_tax_id",
		"customer_name", "customer_address", "customer_tax_id",
		"currency", "payment_terms", "notes",
	}
	sanitizeAmountFields = []string{"subtotal", "tax_rate", "tax_amount", "total_amount"}

	itemStringFields = []string{"description"}
	itemAmountFields = []string{"quantity", "unit_price", "total"}
)

// SanitizeOptionalFields removes or rewrites optional fields whose values
// would not fit the invoice schema, so the overall document can still
// validate. Every field here is optional, so dropping a hopeless value loses
// nothing the contract guarantees; strings are always kept as-is because
// normalization is the layer that judges (and warns about) their content.
// Structural defects (a non-object document, a non-array items) are left for
// validation to reject. Returns the sanitized document and the names of
// dropped fields.
func SanitizeOptionalFields(doc []byte) (json.RawMessage, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, nil, err
	}

	var dropped []string
	for _, k := range sanitizeStringFields {
		sanitizeStringField(m, k, k, &dropped)
	}
	for _, k := range sanitizeAmountFields {
		sanitizeAmountField(m, k, k, &dropped)
	}

	if items, ok := m["items"].([]any); ok {
		for i, it := range items {
			obj, ok := it.(map[string]any)
			if !ok {
				continue // validation rejects non-object items
			}
			for _, k := range itemStringFields {
				sanitizeStringField(obj, k, itemFieldName(i, k), &dropped)
			}
			for _, k := range itemAmountFields {
				sanitizeAmountField(obj, k, itemFieldName(i, k), &dropped)
			}
		}
	}

	b, err := json.Marshal(m)
	if err != nil {
		return nil, nil, err
	}
	return b, dropped, nil
}

// sanitizeStringField keeps strings untouched, renders numbers as strings
// (invoice numbers often come back numeric) and drops everything else.
func sanitizeStringField(m map[string]any, key, name string, dropped *[]string) {
	v, ok := m[key]
	if !ok {
		return
	}
	switch t := v.(type) {
	case string:
	case float64:
		m[key] = strconv.FormatFloat(t, 'f', -1, 64)
	default:
		delete(m, key)
		*dropped = append(*dropped, name)
	}
}

// sanitizeAmountField keeps numbers and strings (normalization parses or
// warns about strings) and drops nulls, booleans and nested values.
func sanitizeAmountField(m map[string]any, key, name string, dropped *[]string) {
	v, ok := m[key]
	if !ok {
		return
	}
	switch v.(type) {
	case float64, string:
	default:
		delete(m, key)
		*dropped = append(*dropped, name)
	}
}

func itemFieldName(i int, k string) string {
	return "items[" + strconv.Itoa(i) + "]." + k
}
