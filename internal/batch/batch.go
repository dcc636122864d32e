// Package batch exposes the slice of the batch/student directory this service
// consumes. The directory itself is owned by the academy CRUD backend; only
// reads happen here.
package batch

import (
	"context"
	"database/sql"
	"errors"

	"academy/internal/apperr"
)

// Batch identifies an active cohort.
type Batch struct {
	ID   string
	Name string
}

// Directory answers the two lookups the token lifecycle needs.
type Directory interface {
	// ListActive returns batches currently marked active.
	ListActive(ctx context.Context) ([]Batch, error)
	// StudentBatch returns the batch a student is currently assigned to.
	StudentBatch(ctx context.Context, studentID string) (Batch, error)
}

// PGDirectory reads batch assignments from Postgres.
type PGDirectory struct {
	db *sql.DB
}

// NewPGDirectory creates a directory over the shared database.
func NewPGDirectory(db *sql.DB) *PGDirectory {
	return &PGDirectory{db: db}
}

// ListActive returns batches with active = TRUE.
func (d *PGDirectory) ListActive(ctx context.Context) ([]Batch, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, name FROM batches WHERE active = TRUE ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Batch
	for rows.Next() {
		var b Batch
		if err := rows.Scan(&b.ID, &b.Name); err != nil {
			return nil, err
		}
		res = append(res, b)
	}
	return res, rows.Err()
}

// StudentBatch returns the student's current batch assignment.
func (d *PGDirectory) StudentBatch(ctx context.Context, studentID string) (Batch, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT b.id, b.name
		FROM students s
		JOIN batches b ON b.id = s.batch_id
		WHERE s.id = $1
	`, studentID)
	var b Batch
	if err := row.Scan(&b.ID, &b.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Batch{}, apperr.New(apperr.NotFound, "student not found")
		}
		return Batch{}, err
	}
	return b, nil
}
