package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"invoiceparser/constants"
	"invoiceparser/internal/entity"
)

// SQLRecordRepository is the database/sql implementation of RecordRepository.
// It uses parameterized queries only and contains no business logic.
type SQLRecordRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLRecordRepository(db *sql.DB, logger *slog.Logger) *SQLRecordRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLRecordRepository{db: db, logger: logger}
}

var _ RecordRepository = (*SQLRecordRepository)(nil)

const recordColumns = `document_id, status, extracted_data, warnings, error_detail, attempt_count, model_name, created_at, updated_at`

func (r *SQLRecordRepository) Create(ctx context.Context, rec *entity.ProcessingRecord) error {
	const q = `
		INSERT INTO processing_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, q,
		rec.DocumentID.String(),
		string(rec.Status),
		nullableJSON(rec.ExtractedData),
		nullableWarnings(rec.Warnings),
		nullableString(rec.ErrorDetail),
		rec.AttemptCount,
		nullableString(rec.ModelName),
		formatTime(rec.CreatedAt),
		formatTime(rec.UpdatedAt),
	)
	if err != nil {
		r.logger.Error("record create failed", "document_id", rec.DocumentID, "err", err)
		return fmt.Errorf("insert processing record: %w", err)
	}
	r.logger.Info("record created", "document_id", rec.DocumentID, "status", rec.Status)
	return nil
}

func (r *SQLRecordRepository) GetByDocumentID(ctx context.Context, documentID uuid.UUID) (*entity.ProcessingRecord, error) {
	const q = `
		SELECT ` + recordColumns + `
		FROM processing_records
		WHERE document_id = $1
	`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, q, documentID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select processing record: %w", err)
	}
	return rec, nil
}

// Save is the optimistic-concurrency write: the row is updated only when its
// stored status still equals expectedPrior. Zero rows affected means another
// writer changed the status in between.
func (r *SQLRecordRepository) Save(ctx context.Context, rec *entity.ProcessingRecord, expectedPrior constants.ProcessingStatus) error {
	const q = `
		UPDATE processing_records
		SET status = $1, extracted_data = $2, warnings = $3, error_detail = $4,
		    attempt_count = $5, model_name = $6, updated_at = $7
		WHERE document_id = $8 AND status = $9
	`
	rec.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, q,
		string(rec.Status),
		nullableJSON(rec.ExtractedData),
		nullableWarnings(rec.Warnings),
		nullableString(rec.ErrorDetail),
		rec.AttemptCount,
		nullableString(rec.ModelName),
		formatTime(rec.UpdatedAt),
		rec.DocumentID.String(),
		string(expectedPrior),
	)
	if err != nil {
		r.logger.Error("record save failed", "document_id", rec.DocumentID, "err", err)
		return fmt.Errorf("update processing record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		// Distinguish a vanished row from a lost race.
		if _, gerr := r.GetByDocumentID(ctx, rec.DocumentID); errors.Is(gerr, ErrNotFound) {
			return ErrNotFound
		}
		r.logger.Warn("record save conflict",
			"document_id", rec.DocumentID, "expected_status", expectedPrior, "new_status", rec.Status)
		return ErrConflict
	}
	r.logger.Info("record saved",
		"document_id", rec.DocumentID, "status", rec.Status, "attempts", rec.AttemptCount)
	return nil
}

func (r *SQLRecordRepository) ListByStatus(ctx context.Context, status constants.ProcessingStatus, from, to *time.Time) ([]entity.ProcessingRecord, error) {
	q := `
		SELECT ` + recordColumns + `
		FROM processing_records
		WHERE status = $1
	`
	args := []any{string(status)}
	if from != nil {
		args = append(args, formatTime(*from))
		q += fmt.Sprintf(" AND updated_at >= $%d", len(args))
	}
	if to != nil {
		args = append(args, formatTime(*to))
		q += fmt.Sprintf(" AND updated_at <= $%d", len(args))
	}
	q += " ORDER BY updated_at ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list processing records: %w", err)
	}
	defer rows.Close()

	var out []entity.ProcessingRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan processing record: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*entity.ProcessingRecord, error) {
	var (
		id, status, createdAt, updatedAt string
		extracted, warnings, errDetail   sql.NullString
		modelName                        sql.NullString
		attempts                         int
	)
	if err := row.Scan(&id, &status, &extracted, &warnings, &errDetail, &attempts, &modelName, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	docID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse document_id: %w", err)
	}
	created, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	updated, err := parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	rec := &entity.ProcessingRecord{
		DocumentID:   docID,
		Status:       constants.ProcessingStatus(status),
		AttemptCount: attempts,
		CreatedAt:    created,
		UpdatedAt:    updated,
	}
	if extracted.Valid {
		rec.ExtractedData = json.RawMessage(extracted.String)
	}
	if warnings.Valid {
		if err := json.Unmarshal([]byte(warnings.String), &rec.Warnings); err != nil {
			return nil, fmt.Errorf("parse warnings: %w", err)
		}
	}
	if errDetail.Valid {
		rec.ErrorDetail = &errDetail.String
	}
	if modelName.Valid {
		rec.ModelName = &modelName.String
	}
	return rec, nil
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableJSON(b json.RawMessage) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func nullableWarnings(ws []string) any {
	if len(ws) == 0 {
		return nil
	}
	b, _ := json.Marshal(ws)
	return string(b)
}
