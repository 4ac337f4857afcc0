package invoice

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrEmptyExtraction is returned when the payload parsed but carried no
// usable fields at all. It is one of the two hard-fail conditions; every
// other defect is reported as a warning on an accepted invoice.
var ErrEmptyExtraction = errors.New("no fields extracted")

const (
	// centTolerance is the absolute floor below which a difference is
	// rounding noise (half a cent), not a mismatch worth flagging.
	centTolerance = 0.005
	// lineItemTolerance upgrades a slight line-item mismatch to a plain one.
	lineItemTolerance = 0.01
	// strongMismatchTolerance upgrades the warning wording past this point.
	strongMismatchTolerance = 0.10
	// totalTolerance is the relative tolerance for sum(items) vs document totals.
	totalTolerance = 0.01
)

var (
	reDate     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	reCurrency = regexp.MustCompile(`^[A-Z]{3}$`)
	// characters stripped before numeric parsing: currency symbols,
	// thousands separators, whitespace.
	amountCleaner = strings.NewReplacer("$", "", "€", "", "£", "", "¥", "", ",", "", " ", "", " ", "")
)

// rawInvoice mirrors ExtractedInvoice with loosely typed numeric fields so a
// model that returns "$1,234.56" where we wanted a number still decodes.
type rawInvoice struct {
	InvoiceNumber any `json:"invoice_number"`
	InvoiceDate   any `json:"invoice_date"`
	DueDate       any `json:"due_date"`

	VendorName    any `json:"vendor_name"`
	VendorAddress any `json:"vendor_address"`
	VendorTaxID   any `json:"vendor_tax_id"`

	CustomerName    any `json:"customer_name"`
	CustomerAddress any `json:"customer_address"`
	CustomerTaxID   any `json:"customer_tax_id"`

	Items []rawLineItem `json:"items"`

	Subtotal  any `json:"subtotal"`
	TaxRate   any `json:"tax_rate"`
	TaxAmount any `json:"tax_amount"`
	Total     any `json:"total_amount"`

	Currency     any `json:"currency"`
	PaymentTerms any `json:"payment_terms"`
	Notes        any `json:"notes"`
}

type rawLineItem struct {
	Description any `json:"description"`
	Quantity    any `json:"quantity"`
	UnitPrice   any `json:"unit_price"`
	Total       any `json:"total"`
}

// Normalize coerces a raw extraction payload into an ExtractedInvoice and
// runs the arithmetic reconciliation checks.
//
// Policy: accept partial, warn liberally, fail rarely. Unparseable numerics
// become nil with a warning; line-item and total mismatches are flagged but
// the data is kept. Normalize errors only when the payload is not JSON or
// when zero fields were extracted (ErrEmptyExtraction).
func Normalize(raw []byte) (*ExtractedInvoice, []string, error) {
	var in rawInvoice
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, nil, fmt.Errorf("decode extraction payload: %w", err)
	}

	var warnings []string
	warnf := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	out := &ExtractedInvoice{
		InvoiceNumber:   coerceString(in.InvoiceNumber),
		VendorName:      coerceString(in.VendorName),
		VendorAddress:   coerceString(in.VendorAddress),
		VendorTaxID:     coerceString(in.VendorTaxID),
		CustomerName:    coerceString(in.CustomerName),
		CustomerAddress: coerceString(in.CustomerAddress),
		CustomerTaxID:   coerceString(in.CustomerTaxID),
		PaymentTerms:    coerceString(in.PaymentTerms),
		Notes:           coerceString(in.Notes),
	}

	out.InvoiceDate = normalizeDate("invoice_date", in.InvoiceDate, warnf)
	out.DueDate = normalizeDate("due_date", in.DueDate, warnf)
	out.Currency = normalizeCurrency(in.Currency, warnf)

	out.Subtotal = normalizeAmount("subtotal", in.Subtotal, warnf)
	out.TaxRate = normalizeAmount("tax_rate", in.TaxRate, warnf)
	out.TaxAmount = normalizeAmount("tax_amount", in.TaxAmount, warnf)
	out.Total = normalizeAmount("total_amount", in.Total, warnf)

	for i, it := range in.Items {
		item := LineItem{}
		if d := coerceString(it.Description); d != nil {
			item.Description = *d
		}
		item.Quantity = normalizeAmount(fmt.Sprintf("items[%d].quantity", i), it.Quantity, warnf)
		item.UnitPrice = normalizeAmount(fmt.Sprintf("items[%d].unit_price", i), it.UnitPrice, warnf)
		item.Total = normalizeAmount(fmt.Sprintf("items[%d].total", i), it.Total, warnf)
		out.Items = append(out.Items, item)
	}

	reconcileLineItems(out, warnf)
	reconcileTotals(out, warnf)

	if out.FieldCount() == 0 {
		return nil, warnings, ErrEmptyExtraction
	}
	return out, warnings, nil
}

// reconcileLineItems checks total ≈ quantity × unit_price per line. Any
// difference beyond rounding noise is flagged, with wording graded by how far
// off it is. Mismatches are recorded, never rejected: extraction quality is a
// signal, not a gate.
func reconcileLineItems(inv *ExtractedInvoice, warnf func(string, ...any)) {
	for i, it := range inv.Items {
		if it.Quantity == nil || it.UnitPrice == nil || it.Total == nil {
			continue
		}
		expected := *it.Quantity * *it.UnitPrice
		if math.Abs(expected-*it.Total) < centTolerance {
			continue
		}
		diff := relDiff(expected, *it.Total)
		switch {
		case diff > strongMismatchTolerance:
			warnf("items[%d]: total %.2f is far from quantity*unit_price %.2f (%.0f%% off)", i, *it.Total, expected, diff*100)
		case diff > lineItemTolerance:
			warnf("items[%d]: total %.2f does not match quantity*unit_price %.2f", i, *it.Total, expected)
		default:
			warnf("items[%d]: total %.2f is slightly off quantity*unit_price %.2f", i, *it.Total, expected)
		}
	}
}

// reconcileTotals compares the sum of line-item totals against the
// document-level subtotal and total, when both sides are present.
func reconcileTotals(inv *ExtractedInvoice, warnf func(string, ...any)) {
	var sum float64
	var n int
	for _, it := range inv.Items {
		if it.Total != nil {
			sum += *it.Total
			n++
		}
	}
	if n == 0 {
		return
	}
	if inv.Subtotal != nil && relDiff(sum, *inv.Subtotal) > totalTolerance {
		warnf("subtotal %.2f does not match sum of line items %.2f", *inv.Subtotal, sum)
	}
	if inv.Subtotal == nil && inv.Total != nil {
		expected := sum
		if inv.TaxAmount != nil {
			expected += *inv.TaxAmount
		}
		if relDiff(expected, *inv.Total) > totalTolerance {
			warnf("total_amount %.2f does not match sum of line items %.2f", *inv.Total, expected)
		}
	}
}

func normalizeAmount(field string, v any, warnf func(string, ...any)) *float64 {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		return &t
	case string:
		s := amountCleaner.Replace(strings.TrimSpace(t))
		if s == "" {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			warnf("%s: unparseable amount %q", field, t)
			return nil
		}
		return &f
	default:
		warnf("%s: unexpected type %T", field, v)
		return nil
	}
}

func normalizeDate(field string, v any, warnf func(string, ...any)) *string {
	s := coerceString(v)
	if s == nil {
		return nil
	}
	if !reDate.MatchString(*s) {
		warnf("%s: %q is not in YYYY-MM-DD format", field, *s)
	}
	return s
}

func normalizeCurrency(v any, warnf func(string, ...any)) *string {
	s := coerceString(v)
	if s == nil {
		return nil
	}
	c := strings.ToUpper(strings.TrimSpace(*s))
	if !reCurrency.MatchString(c) {
		warnf("currency: %q is not an ISO 4217 code", *s)
		return nil
	}
	return &c
}

func coerceString(v any) *string {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		return &s
	case float64:
		s := strconv.FormatFloat(t, 'f', -1, 64)
		return &s
	default:
		return nil
	}
}

// relDiff is the relative difference between a and b, floored at 1 so
// near-zero amounts do not blow up the ratio.
func relDiff(a, b float64) float64 {
	return math.Abs(a-b) / math.Max(math.Max(math.Abs(a), math.Abs(b)), 1)
}
