package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/edu-analytics/student-portal-api/internal/models"
)

// RecordRepository manages persistence for the single student_records
// table. The access pattern is deliberately key-value: point get, full
// scan, and full-record upsert keyed by student_id.
type RecordRepository struct {
	db *sqlx.DB
}

// NewRecordRepository constructs a RecordRepository.
func NewRecordRepository(db *sqlx.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

const recordColumns = `student_id, name, password, marks, attendance, status,
        file_name, file_path, type, upload_date, last_updated, last_predicted, risk_status`

// Get fetches a record by student ID. Absence surfaces as sql.ErrNoRows,
// which callers treat as a normal outcome rather than a fault.
func (r *RecordRepository) Get(ctx context.Context, studentID string) (*models.StudentRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM student_records WHERE student_id = $1", recordColumns)
	var record models.StudentRecord
	if err := r.db.GetContext(ctx, &record, query, studentID); err != nil {
		return nil, err
	}
	return &record, nil
}

// Upsert writes the full record, overwriting whatever existed for the key.
// Last writer wins; merge semantics live in the service layer, which reads
// the prior record first.
func (r *RecordRepository) Upsert(ctx context.Context, record *models.StudentRecord) error {
	const query = `INSERT INTO student_records
        (student_id, name, password, marks, attendance, status, file_name, file_path, type, upload_date, last_updated, last_predicted, risk_status)
        VALUES (:student_id, :name, :password, :marks, :attendance, :status, :file_name, :file_path, :type, :upload_date, :last_updated, :last_predicted, :risk_status)
        ON CONFLICT (student_id) DO UPDATE SET
        name = EXCLUDED.name, password = EXCLUDED.password, marks = EXCLUDED.marks,
        attendance = EXCLUDED.attendance, status = EXCLUDED.status,
        file_name = EXCLUDED.file_name, file_path = EXCLUDED.file_path, type = EXCLUDED.type,
        upload_date = EXCLUDED.upload_date, last_updated = EXCLUDED.last_updated,
        last_predicted = EXCLUDED.last_predicted, risk_status = EXCLUDED.risk_status`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("upsert record %s: %w", record.StudentID, err)
	}
	return nil
}

// Scan returns every record ordered by student ID, for the teacher's
// full-roster view.
func (r *RecordRepository) Scan(ctx context.Context) ([]models.StudentRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM student_records ORDER BY student_id", recordColumns)
	records := []models.StudentRecord{}
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("scan records: %w", err)
	}
	return records, nil
}

// FindByStudent filters at the store boundary instead of scanning the
// whole table and filtering in the caller. With one row per student this
// returns zero or one record.
func (r *RecordRepository) FindByStudent(ctx context.Context, studentID string) ([]models.StudentRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM student_records WHERE student_id = $1", recordColumns)
	records := []models.StudentRecord{}
	if err := r.db.SelectContext(ctx, &records, query, studentID); err != nil {
		return nil, fmt.Errorf("find records for %s: %w", studentID, err)
	}
	return records, nil
}
