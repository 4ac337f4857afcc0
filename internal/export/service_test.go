package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"invoiceparser/constants"
	"invoiceparser/internal/entity"
	"invoiceparser/internal/invoice"
	"invoiceparser/internal/repository"
)

func seedCompleted(t *testing.T, repo *repository.MemoryRecordRepository, inv invoice.ExtractedInvoice, warnings []string) uuid.UUID {
	t.Helper()
	payload, err := json.Marshal(inv)
	require.NoError(t, err)

	rec := entity.NewProcessingRecord(uuid.New())
	require.NoError(t, repo.Create(context.Background(), rec))

	rec.Status = constants.StatusCompleted
	rec.ExtractedData = payload
	rec.Warnings = warnings
	require.NoError(t, repo.Save(context.Background(), rec, constants.StatusPending))
	return rec.DocumentID
}

func sptr(s string) *string   { return &s }
func fptr(f float64) *float64 { return &f }

func TestExportInvoicesXLSX(t *testing.T) {
	records := repository.NewMemoryRecordRepository()
	docID := seedCompleted(t, records, invoice.ExtractedInvoice{
		InvoiceNumber: sptr("INV-7"),
		InvoiceDate:   sptr("2026-02-01"),
		VendorName:    sptr("Acme Corp"),
		CustomerName:  sptr("Globex"),
		Currency:      sptr("USD"),
		Subtotal:      fptr(100),
		TaxAmount:     fptr(10),
		Total:         fptr(110),
	}, []string{"subtotal mismatch"})

	// A FAILED record must not appear in the export.
	failed := entity.NewProcessingRecord(uuid.New())
	require.NoError(t, records.Create(context.Background(), failed))
	failed.Status = constants.StatusFailed
	require.NoError(t, records.Save(context.Background(), failed, constants.StatusPending))

	svc := NewService(records, nil)
	data, err := svc.ExportInvoicesXLSX(context.Background(), nil, nil)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Invoices")
	require.NoError(t, err)
	require.Len(t, rows, 2, "header plus one completed record")

	assert.Equal(t, "Document ID", rows[0][0])
	assert.Equal(t, "Invoice Number", rows[0][1])

	assert.Equal(t, docID.String(), rows[1][0])
	assert.Equal(t, "INV-7", rows[1][1])
	assert.Equal(t, "Acme Corp", rows[1][3])
	assert.Equal(t, "USD", rows[1][5])
	assert.Equal(t, "110", rows[1][8])
	assert.Equal(t, "1", rows[1][9], "warning count column")
}

func TestExportEmptyWindowYieldsHeaderOnly(t *testing.T) {
	records := repository.NewMemoryRecordRepository()
	seedCompleted(t, records, invoice.ExtractedInvoice{VendorName: sptr("Acme")}, nil)

	from := time.Now().UTC().Add(-48 * time.Hour)
	to := time.Now().UTC().Add(-24 * time.Hour)

	svc := NewService(records, nil)
	data, err := svc.ExportInvoicesXLSX(context.Background(), &from, &to)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Invoices")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

type failingRecords struct {
	repository.RecordRepository
	err error
}

func (f *failingRecords) ListByStatus(context.Context, constants.ProcessingStatus, *time.Time, *time.Time) ([]entity.ProcessingRecord, error) {
	return nil, f.err
}

func TestExportSurfacesQueryErrors(t *testing.T) {
	dbErr := errors.New("connection refused")
	svc := NewService(&failingRecords{err: dbErr}, nil)

	_, err := svc.ExportInvoicesXLSX(context.Background(), nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, dbErr)
	assert.Contains(t, err.Error(), "query completed records")
}

func TestExportSkipsCorruptPayload(t *testing.T) {
	records := repository.NewMemoryRecordRepository()
	seedCompleted(t, records, invoice.ExtractedInvoice{VendorName: sptr("Acme")}, nil)

	broken := entity.NewProcessingRecord(uuid.New())
	require.NoError(t, records.Create(context.Background(), broken))
	broken.Status = constants.StatusCompleted
	broken.ExtractedData = []byte(`not json`)
	require.NoError(t, records.Save(context.Background(), broken, constants.StatusPending))

	svc := NewService(records, nil)
	data, err := svc.ExportInvoicesXLSX(context.Background(), nil, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Invoices")
	require.NoError(t, err)
	assert.Len(t, rows, 2, "the corrupt row is skipped, not fatal")
}
