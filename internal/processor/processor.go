package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"invoiceparser/constants"
	"invoiceparser/internal/entity"
	"invoiceparser/internal/extract"
	"invoiceparser/internal/invoice"
	"invoiceparser/internal/repository"
	"invoiceparser/internal/storage"
)

var (
	// ErrRecordNotFound: no ProcessingRecord exists for the document.
	ErrRecordNotFound = errors.New("processing record not found")
	// ErrAlreadyInProgress: the record is PROCESSING, or another writer won
	// the transition race. Reported to the caller, never stored on the record.
	ErrAlreadyInProgress = errors.New("processing already in progress")
	// ErrAlreadyCompleted: re-processing a COMPLETED document requires an
	// explicit reset, which this pipeline does not offer.
	ErrAlreadyCompleted = errors.New("document already completed")
)

// Processor owns the per-document status lifecycle:
//
//	PENDING → PROCESSING → {COMPLETED, FAILED}
//
// with FAILED → PROCESSING as the only re-entrant transition. The PROCESSING
// status is the lock: the transition into it is committed (compare-and-set)
// before the extraction call, so two concurrent runs for one document cannot
// both proceed. A crash mid-extraction leaves the record visibly stuck in
// PROCESSING; recovery is the explicit reprocess path, there is no
// background sweep.
type Processor struct {
	logger    *slog.Logger
	docs      repository.DocumentRepository
	records   repository.RecordRepository
	store     storage.Storage
	extractor extract.Extractor
	metrics   *Metrics
}

func New(
	logger *slog.Logger,
	docs repository.DocumentRepository,
	records repository.RecordRepository,
	store storage.Storage,
	extractor extract.Extractor,
	metrics *Metrics,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		logger:    logger,
		docs:      docs,
		records:   records,
		store:     store,
		extractor: extractor,
		metrics:   metrics,
	}
}

// GetStatus is the read-only poll. It never mutates the record.
func (p *Processor) GetStatus(ctx context.Context, documentID uuid.UUID) (*entity.ProcessingRecord, error) {
	rec, err := p.records.GetByDocumentID(ctx, documentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return rec, nil
}

// RequestProcessing is the idempotent trigger: for a record already
// PROCESSING or COMPLETED it returns the current record unchanged; for
// PENDING or FAILED it runs the pipeline to a terminal state.
func (p *Processor) RequestProcessing(ctx context.Context, documentID uuid.UUID) (*entity.ProcessingRecord, error) {
	rec, err := p.GetStatus(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if rec.Status == constants.StatusProcessing || rec.Status == constants.StatusCompleted {
		p.logger.Debug("processor.request.noop", "document_id", documentID, "status", rec.Status)
		return rec, nil
	}
	return p.Process(ctx, documentID)
}

// Process runs the full pipeline for one document. Preconditions: a record
// exists in PENDING or FAILED. Exactly one terminal state is reached per
// successful invocation; document-level failures land in the record's
// error_detail, and the only errors crossing this boundary are precondition
// violations (not found, already in progress, already completed).
func (p *Processor) Process(ctx context.Context, documentID uuid.UUID) (*entity.ProcessingRecord, error) {
	rec, err := p.GetStatus(ctx, documentID)
	if err != nil {
		return nil, err
	}
	switch rec.Status {
	case constants.StatusProcessing:
		return nil, ErrAlreadyInProgress
	case constants.StatusCompleted:
		return nil, ErrAlreadyCompleted
	}

	// Commit the PROCESSING transition before calling the extraction
	// service. The compare-and-set on the prior status is the concurrency
	// control: losing the race means someone else is processing.
	prior := rec.Status
	rec.Status = constants.StatusProcessing
	rec.ErrorDetail = nil
	if err := p.records.Save(ctx, rec, prior); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return nil, ErrAlreadyInProgress
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrRecordNotFound
		default:
			return nil, fmt.Errorf("commit processing transition: %w", err)
		}
	}
	p.logger.Info("processor.start", "document_id", documentID, "prior_status", prior)

	start := time.Now()
	attemptsBefore := rec.AttemptCount
	p.run(ctx, rec)
	p.metrics.observe(string(rec.Status), rec.AttemptCount-attemptsBefore, time.Since(start))

	// Terminal write, still conditional on holding the PROCESSING status.
	// A conflict here means another writer hijacked the record; refuse to
	// overwrite, never retry the whole operation.
	if err := p.records.Save(ctx, rec, constants.StatusProcessing); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			p.logger.Error("processor.save.conflict", "document_id", documentID, "status", rec.Status)
			return nil, fmt.Errorf("terminal save lost the record: %w", ErrAlreadyInProgress)
		}
		return nil, fmt.Errorf("save terminal state: %w", err)
	}

	if rec.Status == constants.StatusCompleted {
		p.logger.Info("processor.completed",
			"document_id", documentID,
			"attempts", rec.AttemptCount,
			"warnings", len(rec.Warnings),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	} else {
		p.logger.Warn("processor.failed",
			"document_id", documentID,
			"attempts", rec.AttemptCount,
			"error", derefOr(rec.ErrorDetail, ""),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
	return rec, nil
}

// run executes extraction and validation, mutating rec to a terminal state.
// It never returns an error: every failure becomes FAILED + error_detail.
func (p *Processor) run(ctx context.Context, rec *entity.ProcessingRecord) {
	doc, err := p.docs.GetByID(ctx, rec.DocumentID)
	if err != nil {
		fail(rec, fmt.Sprintf("load document: %v", err))
		return
	}
	data, err := p.store.Get(ctx, doc.StorageKey)
	if err != nil {
		// Storage failures are permanent for the extraction layer: retrying
		// the model call cannot make the bytes appear.
		fail(rec, fmt.Sprintf("read document bytes: %v", err))
		return
	}

	res, xerr := p.extractor.Extract(ctx, data, doc.ContentType)
	if res.Attempts > 0 {
		rec.AttemptCount += res.Attempts
	} else {
		rec.AttemptCount++
	}
	if res.ModelName != "" {
		rec.ModelName = &res.ModelName
	}
	if xerr != nil {
		if extract.IsTransient(xerr) {
			fail(rec, fmt.Sprintf("extraction failed after %d attempts: %v", res.Attempts, xerr))
		} else {
			fail(rec, fmt.Sprintf("extraction failed: %v", xerr))
		}
		return
	}

	inv, warnings, err := invoice.Normalize(res.RawJSON)
	if err != nil {
		// The narrow hard-fail conditions: unparseable payload or zero
		// fields extracted. Everything else is warnings on an accepted record.
		rec.Warnings = warnings
		fail(rec, fmt.Sprintf("validation failed: %v", err))
		return
	}

	payload, err := json.Marshal(inv)
	if err != nil {
		fail(rec, fmt.Sprintf("encode normalized invoice: %v", err))
		return
	}

	rec.Status = constants.StatusCompleted
	rec.ExtractedData = payload
	rec.Warnings = warnings
	rec.ErrorDetail = nil
}

func fail(rec *entity.ProcessingRecord, detail string) {
	rec.Status = constants.StatusFailed
	rec.ErrorDetail = &detail
	rec.ExtractedData = nil
}

func derefOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}
