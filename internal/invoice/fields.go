package invoice

// LineItem is a single invoice line. Quantity, UnitPrice and Total are
// pointers because the model may return any subset of them.
type LineItem struct {
	Description string   `json:"description,omitempty"`
	Quantity    *float64 `json:"quantity,omitempty"`
	UnitPrice   *float64 `json:"unit_price,omitempty"`
	Total       *float64 `json:"total,omitempty"`
}

// ExtractedInvoice is the structured shape we want from the model. Every
// field is optional: partial extraction is expected and valid, not an error.
type ExtractedInvoice struct {
	InvoiceNumber *string `json:"invoice_number,omitempty"`
	InvoiceDate   *string `json:"invoice_date,omitempty"` // YYYY-MM-DD
	DueDate       *string `json:"due_date,omitempty"`     // YYYY-MM-DD

	VendorName    *string `json:"vendor_name,omitempty"`
	VendorAddress *string `json:"vendor_address,omitempty"`
	VendorTaxID   *string `json:"vendor_tax_id,omitempty"`

	CustomerName    *string `json:"customer_name,omitempty"`
	CustomerAddress *string `json:"customer_address,omitempty"`
	CustomerTaxID   *string `json:"customer_tax_id,omitempty"`

	Items []LineItem `json:"items,omitempty"`

	Subtotal  *float64 `json:"subtotal,omitempty"`
	TaxRate   *float64 `json:"tax_rate,omitempty"` // percentage
	TaxAmount *float64 `json:"tax_amount,omitempty"`
	Total     *float64 `json:"total_amount,omitempty"`

	Currency     *string `json:"currency,omitempty"` // ISO 4217
	PaymentTerms *string `json:"payment_terms,omitempty"`
	Notes        *string `json:"notes,omitempty"`
}

// FieldCount returns the number of populated top-level fields. A count of
// zero is the only extraction outcome treated as a hard failure.
func (inv *ExtractedInvoice) FieldCount() int {
	n := 0
	for _, s := range []*string{
		inv.InvoiceNumber, inv.InvoiceDate, inv.DueDate,
		inv.VendorName, inv.VendorAddress, inv.VendorTaxID,
		inv.CustomerName, inv.CustomerAddress, inv.CustomerTaxID,
		inv.Currency, inv.PaymentTerms, inv.Notes,
	} {
		if s != nil && *s != "" {
			n++
		}
	}
	for _, f := range []*float64{inv.Subtotal, inv.TaxRate, inv.TaxAmount, inv.Total} {
		if f != nil {
			n++
		}
	}
	if len(inv.Items) > 0 {
		n++
	}
	return n
}
