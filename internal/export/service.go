package export

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"invoiceparser/constants"
	"invoiceparser/internal/common"
	"invoiceparser/internal/invoice"
	"invoiceparser/internal/repository"
)

// Service is a tiny façade over the record repository that produces XLSX
// bytes for completed extractions.
type Service struct {
	records repository.RecordRepository
	logger  *slog.Logger
}

func NewService(records repository.RecordRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{records: records, logger: logger}
}

// ExportInvoicesXLSX returns an XLSX workbook of completed extractions within
// the given updated_at window. If only from is provided -> from..now.
// If neither is provided -> all completed records.
func (s *Service) ExportInvoicesXLSX(ctx context.Context, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	if from != nil && to == nil {
		now := time.Now().UTC()
		to = &now
	}

	recs, err := s.records.ListByStatus(ctx, constants.StatusCompleted, from, to)
	if err != nil {
		return nil, common.WrapError(err, "query completed records")
	}

	f := excelize.NewFile()
	const sheet = "Invoices"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Document ID",
		"Invoice Number",
		"Invoice Date",
		"Vendor",
		"Customer",
		"Currency",
		"Subtotal",
		"Tax",
		"Total",
		"Warnings",
		"Processed At",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, rec := range recs {
		var inv invoice.ExtractedInvoice
		if err := json.Unmarshal(rec.ExtractedData, &inv); err != nil {
			s.logger.Warn("export skipping record with bad payload", "document_id", rec.DocumentID, "err", err)
			continue
		}

		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, rec.DocumentID.String())
		write(2, strOr(inv.InvoiceNumber))
		write(3, strOr(inv.InvoiceDate))
		write(4, strOr(inv.VendorName))
		write(5, strOr(inv.CustomerName))
		write(6, strOr(inv.Currency))
		writeAmount(write, 7, inv.Subtotal)
		writeAmount(write, 8, inv.TaxAmount)
		writeAmount(write, 9, inv.Total)
		write(10, len(rec.Warnings))
		write(11, rec.UpdatedAt.UTC().Format("2006-01-02 15:04:05"))
		row++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, common.WrapError(err, "write workbook")
	}

	s.logger.Info("export.invoices.ok",
		"rows", row-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func strOr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func writeAmount(write func(int, any), col int, v *float64) {
	if v == nil {
		write(col, "")
		return
	}
	write(col, *v)
}
