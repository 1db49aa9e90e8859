package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	attendance "rollcall/internal/attendance/domain"
)

const defaultTable = "attendance_records"

// DBTX abstracts *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository mirrors created attendance records into Postgres. The
// remote store stays the source of truth; this table exists for local
// reporting and exports.
type Repository struct {
	db    DBTX
	table string
}

// Option configures the repository.
type Option func(*Repository)

// WithTable overrides the default table name.
func WithTable(table string) Option {
	return func(repo *Repository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewRepository constructs a repository.
func NewRepository(db DBTX, opts ...Option) *Repository {
	repo := &Repository{db: db, table: defaultTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// EnsureSchema creates the mirror table when missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return errors.New("attendance repo: nil db")
	}
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	student_id  TEXT NOT NULL,
	group_id    TEXT NOT NULL,
	schedule_id TEXT NOT NULL,
	date        DATE NOT NULL,
	marked_at   TIMESTAMPTZ NOT NULL,
	present     BOOLEAN NOT NULL DEFAULT TRUE,
	marked_by   TEXT NOT NULL,
	PRIMARY KEY (student_id, schedule_id, date)
)`, r.table)
	_, err := r.db.ExecContext(ctx, query)
	return err
}

// Insert stores one record. Re-inserting the same (student, schedule,
// date) is a no-op so a remote AlreadyExists replay never fails here.
func (r *Repository) Insert(ctx context.Context, record attendance.Record) error {
	if r == nil || r.db == nil {
		return errors.New("attendance repo: nil db")
	}
	if err := record.Validate(); err != nil {
		return err
	}
	query := fmt.Sprintf(`
INSERT INTO %s (student_id, group_id, schedule_id, date, marked_at, present, marked_by)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (student_id, schedule_id, date) DO NOTHING`, r.table)
	_, err := r.db.ExecContext(ctx, query,
		record.StudentID,
		record.GroupID,
		record.ScheduleID,
		record.Date,
		record.Timestamp,
		record.Present,
		record.MarkedBy,
	)
	return err
}

// ListByDate returns the mirrored records for one calendar date,
// oldest first.
func (r *Repository) ListByDate(ctx context.Context, date string) ([]attendance.Record, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("attendance repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT student_id, group_id, schedule_id, to_char(date, 'YYYY-MM-DD'), marked_at, present, marked_by
FROM %s
WHERE date = $1
ORDER BY marked_at`, r.table)

	rows, err := r.db.QueryContext(ctx, query, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []attendance.Record
	for rows.Next() {
		var record attendance.Record
		if err := rows.Scan(
			&record.StudentID,
			&record.GroupID,
			&record.ScheduleID,
			&record.Date,
			&record.Timestamp,
			&record.Present,
			&record.MarkedBy,
		); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
