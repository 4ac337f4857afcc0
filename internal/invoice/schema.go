package invoice

// BuildInvoiceJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. We send it to the model as an output-format constraint and
// also use it locally to validate whatever comes back.
//
// The schema is deliberately lenient: nothing is required, money-like fields
// accept numbers or strings (normalization coerces them later), and unknown
// keys are allowed rather than rejected. Field formats (date layout, ISO
// currency codes) are described, not enforced: validation only gates the
// structural shape, and normalization warns about malformed values on an
// otherwise accepted invoice.
func BuildInvoiceJSONSchema() map[string]any {
	props := map[string]any{
		"invoice_number": map[string]any{"type": "string"},
		"invoice_date":   dateProp(),
		"due_date":       dateProp(),

		"vendor_name":    map[string]any{"type": "string"},
		"vendor_address": map[string]any{"type": "string"},
		"vendor_tax_id":  map[string]any{"type": "string"},

		"customer_name":    map[string]any{"type": "string"},
		"customer_address": map[string]any{"type": "string"},
		"customer_tax_id":  map[string]any{"type": "string"},

		"items": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"description": map[string]any{"type": "string"},
					"quantity":    amountProp(),
					"unit_price":  amountProp(),
					"total":       amountProp(),
				},
			},
		},

		"subtotal":     amountProp(),
		"tax_rate":     amountProp(),
		"tax_amount":   amountProp(),
		"total_amount": amountProp(),

		"currency":      map[string]any{"type": "string", "description": "ISO 4217 alphabetic code, e.g. USD"},
		"payment_terms": map[string]any{"type": "string"},
		"notes":         map[string]any{"type": "string"},
	}

	return map[string]any{
		"type":       "object",
		"properties": props,
	}
}

// dateProp describes the wanted layout without a validation pattern: a model
// that returns "March 15, 2026" produced a worse date, not an invalid invoice.
func dateProp() map[string]any {
	return map[string]any{"type": "string", "description": "Date in YYYY-MM-DD format"}
}

// amountProp accepts a number or a numeric-looking string ("$1,234.56");
// string values are coerced during normalization.
func amountProp() map[string]any {
	return map[string]any{"type": []string{"number", "string"}}
}
