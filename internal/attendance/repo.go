package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// TokenStore is the durable token mapping. Implemented by Repository; tests
// substitute fakes.
type TokenStore interface {
	InsertToken(ctx context.Context, tok Token) error
	GetToken(ctx context.Context, tokenID string) (*Token, error)
	DeactivateToken(ctx context.Context, tokenID string) error
	ActiveTokenForBatch(ctx context.Context, batchID string, date time.Time) (*Token, error)
}

// RecordStore is the durable attendance mapping keyed by (student, date).
// CreateRecord must be atomic insert-if-absent: it reports inserted=false
// when a record for the key already exists, without touching that record.
type RecordStore interface {
	CreateRecord(ctx context.Context, rec Record) (inserted bool, err error)
	ListByStudent(ctx context.Context, studentID string) ([]Record, error)
	ListByDate(ctx context.Context, date time.Time) ([]Record, error)
}

// Repository persists tokens and attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InsertToken writes a freshly issued token.
func (r *Repository) InsertToken(ctx context.Context, tok Token) error {
	if tok.ID == "" {
		return errors.New("token id required")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_tokens (id, batch_id, payload, valid_date, issued_at, expires_at, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, tok.ID, tok.BatchID, tok.Payload, tok.ValidDate, tok.IssuedAt, tok.ExpiresAt, tok.Active)
	return err
}

// GetToken returns a token by id, or nil when absent.
func (r *Repository) GetToken(ctx context.Context, tokenID string) (*Token, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, batch_id, payload, valid_date, issued_at, expires_at, active
		FROM attendance_tokens WHERE id = $1
	`, tokenID)
	var tok Token
	if err := row.Scan(&tok.ID, &tok.BatchID, &tok.Payload, &tok.ValidDate, &tok.IssuedAt, &tok.ExpiresAt, &tok.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &tok, nil
}

// DeactivateToken marks a token inactive. The scheduled issuer never calls
// this; it exists for explicit admin revocation.
func (r *Repository) DeactivateToken(ctx context.Context, tokenID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE attendance_tokens SET active = FALSE WHERE id = $1
	`, tokenID)
	return err
}

// ActiveTokenForBatch returns the most recently issued active token for a
// batch and date, or nil when none exists.
func (r *Repository) ActiveTokenForBatch(ctx context.Context, batchID string, date time.Time) (*Token, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, batch_id, payload, valid_date, issued_at, expires_at, active
		FROM attendance_tokens
		WHERE batch_id = $1 AND valid_date = $2 AND active = TRUE
		ORDER BY issued_at DESC
		LIMIT 1
	`, batchID, date)
	var tok Token
	if err := row.Scan(&tok.ID, &tok.BatchID, &tok.Payload, &tok.ValidDate, &tok.IssuedAt, &tok.ExpiresAt, &tok.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &tok, nil
}

// CreateRecord inserts an attendance record if none exists for the student's
// date. The UNIQUE (student_id, attendance_date) constraint plus ON CONFLICT
// DO NOTHING makes check-and-insert a single atomic step; concurrent callers
// for the same key see exactly one inserted=true.
func (r *Repository) CreateRecord(ctx context.Context, rec Record) (bool, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_records (id, student_id, batch_id, attendance_date, status, marked_at, source_token_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (student_id, attendance_date) DO NOTHING
	`, rec.ID, rec.StudentID, rec.BatchID, rec.Date, rec.Status, rec.MarkedAt, rec.SourceTokenID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListByStudent returns a student's attendance history, newest first.
func (r *Repository) ListByStudent(ctx context.Context, studentID string) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, student_id, batch_id, attendance_date, status, marked_at, source_token_id
		FROM attendance_records
		WHERE student_id = $1
		ORDER BY attendance_date DESC
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ListByDate returns all records for a calendar date.
func (r *Repository) ListByDate(ctx context.Context, date time.Time) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, student_id, batch_id, attendance_date, status, marked_at, source_token_id
		FROM attendance_records
		WHERE attendance_date = $1
		ORDER BY marked_at
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var res []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.BatchID, &rec.Date, &rec.Status, &rec.MarkedAt, &rec.SourceTokenID); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}
