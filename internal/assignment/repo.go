package assignment

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"anchor/internal/store"
)

// Repository persists assignments in Postgres.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

const columns = `id, user_id, course_id, title, description, due_at, status, priority, completed_at, created_at, updated_at`

// List returns the user's assignments, soonest due first, undated last.
func (r *Repository) List(ctx context.Context, userID string, f Filter) ([]Assignment, error) {
	args := []any{userID}
	clauses := []string{"user_id = $1"}
	if f.Status != "" {
		args = append(args, string(f.Status))
		clauses = append(clauses, "status = $"+strconv.Itoa(len(args)))
	}
	if f.CourseID != "" {
		args = append(args, f.CourseID)
		clauses = append(clauses, "course_id = $"+strconv.Itoa(len(args)))
	}
	query := `SELECT ` + columns + ` FROM assignments WHERE ` + strings.Join(clauses, " AND ") +
		` ORDER BY due_at ASC NULLS LAST, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Assignment
	for rows.Next() {
		a, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Get returns one assignment.
func (r *Repository) Get(ctx context.Context, userID, id string) (Assignment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM assignments WHERE id = $1 AND user_id = $2`, id, userID)
	a, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Assignment{}, ErrNotFound
	}
	return a, err
}

// Create inserts an assignment.
func (r *Repository) Create(ctx context.Context, a Assignment) (Assignment, error) {
	if err := a.Prepare(r.now()); err != nil {
		return Assignment{}, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO assignments (id, user_id, course_id, title, description, due_at, status, priority, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, a.ID, a.UserID, a.CourseID, a.Title, a.Description, a.DueAt, string(a.Status), string(a.Priority), a.CompletedAt)
	if err := row.Scan(&a.CreatedAt, &a.UpdatedAt); err != nil {
		if store.IsForeignKeyViolation(err) {
			return Assignment{}, ErrCourseNotFound
		}
		return Assignment{}, err
	}
	return a, nil
}

// Update replaces the editable fields of an assignment.
func (r *Repository) Update(ctx context.Context, a Assignment) (Assignment, error) {
	if err := a.Prepare(r.now()); err != nil {
		return Assignment{}, err
	}
	row := r.db.QueryRowContext(ctx, `
		UPDATE assignments
		SET course_id = $3, title = $4, description = $5, due_at = $6, status = $7, priority = $8,
			completed_at = CASE WHEN $7 = 'completed' THEN COALESCE(completed_at, $9) END,
			updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING completed_at, created_at, updated_at
	`, a.ID, a.UserID, a.CourseID, a.Title, a.Description, a.DueAt, string(a.Status), string(a.Priority), a.CompletedAt)
	if err := row.Scan(&a.CompletedAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return Assignment{}, ErrNotFound
		case store.IsForeignKeyViolation(err):
			return Assignment{}, ErrCourseNotFound
		}
		return Assignment{}, err
	}
	return a, nil
}

// Delete removes an assignment.
func (r *Repository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM assignments WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Upcoming returns up to limit unfinished assignments due at or after now.
func (r *Repository) Upcoming(ctx context.Context, userID string, now time.Time, limit int) ([]Assignment, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+columns+` FROM assignments
		WHERE user_id = $1 AND status <> 'completed' AND due_at >= $2
		ORDER BY due_at ASC
		LIMIT $3
	`, userID, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Assignment
	for rows.Next() {
		a, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CountOpen returns the number of unfinished assignments and how many of them are overdue.
func (r *Repository) CountOpen(ctx context.Context, userID string, now time.Time) (open, overdue int, err error) {
	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE due_at < $2)
		FROM assignments WHERE user_id = $1 AND status <> 'completed'
	`, userID, now).Scan(&open, &overdue)
	return open, overdue, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (Assignment, error) {
	var (
		out              Assignment
		courseID         sql.NullString
		due, completedAt sql.NullTime
		status, priority string
	)
	if err := s.Scan(&out.ID, &out.UserID, &courseID, &out.Title, &out.Description, &due, &status, &priority, &completedAt, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return Assignment{}, err
	}
	if courseID.Valid {
		out.CourseID = &courseID.String
	}
	if due.Valid {
		out.DueAt = &due.Time
	}
	if completedAt.Valid {
		out.CompletedAt = &completedAt.Time
	}
	out.Status = Status(status)
	out.Priority = Priority(priority)
	return out, nil
}
