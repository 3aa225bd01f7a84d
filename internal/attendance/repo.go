package attendance

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a record does not exist for the user.
	ErrNotFound = errors.New("attendance record not found")
	// ErrCourseNotFound is returned when marking against a course the user does not own.
	ErrCourseNotFound = errors.New("course not found")
)

// Repository persists attendance data in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const recordColumns = `r.id, r.course_id, c.code, c.name, c.color, r.class_date, r.status, r.created_at, r.updated_at`

// Mark upserts the status for (user, course, date). A second mark for the
// same day replaces the status of the existing row.
func (r *Repository) Mark(ctx context.Context, userID, courseID string, day time.Time, status Status) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		WITH upserted AS (
			INSERT INTO attendance_records (id, user_id, course_id, class_date, status)
			SELECT $1, $2, c.id, $4, $5 FROM courses c WHERE c.id = $3 AND c.user_id = $2
			ON CONFLICT (user_id, course_id, class_date) DO UPDATE SET
				status = EXCLUDED.status,
				updated_at = NOW()
			RETURNING *
		)
		SELECT `+recordColumns+`
		FROM upserted r JOIN courses c ON c.id = r.course_id
	`, uuid.NewString(), userID, courseID, day, string(status))
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrCourseNotFound
	}
	return rec, err
}

// List returns the user's records joined with course display data, newest first.
func (r *Repository) List(ctx context.Context, userID string, f Filter) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM attendance_records r JOIN courses c ON c.id = r.course_id`
	args := []any{userID}
	clauses := []string{"r.user_id = $1"}
	if f.CourseID != "" {
		args = append(args, f.CourseID)
		clauses = append(clauses, "r.course_id = $"+strconv.Itoa(len(args)))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		clauses = append(clauses, "r.class_date >= $"+strconv.Itoa(len(args)))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		clauses = append(clauses, "r.class_date <= $"+strconv.Itoa(len(args)))
	}
	query += " WHERE " + strings.Join(clauses, " AND ") + " ORDER BY r.class_date DESC, c.code"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// Delete removes one record owned by the user.
func (r *Repository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendance_records WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveRiskAlert records that a course was under threshold on a day. One alert
// per user, course and day is kept; a later evaluation overwrites the numbers.
func (r *Repository) SaveRiskAlert(ctx context.Context, userID string, s CourseSummary, threshold int, day time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_alerts (id, user_id, course_id, alert_date, percentage, threshold)
		SELECT $1, $2, c.id, $4, $5, $6 FROM courses c WHERE c.user_id = $2 AND c.code = $3
		ON CONFLICT (user_id, course_id, alert_date) DO UPDATE SET
			percentage = EXCLUDED.percentage,
			threshold = EXCLUDED.threshold
	`, uuid.NewString(), userID, s.CourseCode, day, s.AttendancePercentage, threshold)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (Record, error) {
	var (
		rec    Record
		status string
	)
	if err := s.Scan(&rec.ID, &rec.CourseID, &rec.CourseCode, &rec.CourseName, &rec.Color, &rec.ClassDate, &status, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return Record{}, err
	}
	rec.Status = Status(status)
	return rec, nil
}
