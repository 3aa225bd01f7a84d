package course

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"anchor/internal/store"
)

var (
	// ErrNotFound is returned when the course does not exist for the user.
	ErrNotFound = errors.New("course not found")
	// ErrDuplicateCode is returned when the user already has a course with the code.
	ErrDuplicateCode = errors.New("course code already exists")
	// ErrInvalid wraps input validation failures.
	ErrInvalid = errors.New("invalid course")
	// ErrInvalidColor is returned for colors that are not #rgb or #rrggbb.
	ErrInvalidColor = fmt.Errorf("%w: color must be a hex value like #3b82f6", ErrInvalid)
)

var hexColor = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// DefaultColor is used when a course is created without one.
const DefaultColor = "#3b82f6"

// Course is a class the student is enrolled in.
type Course struct {
	ID         string    `json:"id"`
	UserID     string    `json:"-"`
	Code       string    `json:"course_code"`
	Name       string    `json:"course_name"`
	Color      string    `json:"color"`
	Instructor string    `json:"instructor"`
	Credits    int       `json:"credits"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Normalize trims fields, upper-cases the code and fills in a default color.
func (c *Course) Normalize() error {
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	c.Name = strings.TrimSpace(c.Name)
	c.Instructor = strings.TrimSpace(c.Instructor)
	if c.Color == "" {
		c.Color = DefaultColor
	}
	if !hexColor.MatchString(c.Color) {
		return ErrInvalidColor
	}
	if c.Code == "" || c.Name == "" {
		return fmt.Errorf("%w: code and name required", ErrInvalid)
	}
	if c.Credits < 0 {
		return fmt.Errorf("%w: credits cannot be negative", ErrInvalid)
	}
	return nil
}

// Repository persists courses in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const columns = `id, user_id, code, name, color, instructor, credits, created_at, updated_at`

// List returns the user's courses ordered by code.
func (r *Repository) List(ctx context.Context, userID string) ([]Course, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+columns+` FROM courses WHERE user_id = $1 ORDER BY code`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Course
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.ID, &c.UserID, &c.Code, &c.Name, &c.Color, &c.Instructor, &c.Credits, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Create inserts a course.
func (r *Repository) Create(ctx context.Context, c Course) (Course, error) {
	if err := c.Normalize(); err != nil {
		return Course{}, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO courses (id, user_id, code, name, color, instructor, credits)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, c.ID, c.UserID, c.Code, c.Name, c.Color, c.Instructor, c.Credits)
	if err := row.Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		if store.IsUniqueViolation(err) {
			return Course{}, ErrDuplicateCode
		}
		return Course{}, err
	}
	return c, nil
}

// Update replaces the editable fields of a course.
func (r *Repository) Update(ctx context.Context, c Course) (Course, error) {
	if err := c.Normalize(); err != nil {
		return Course{}, err
	}
	row := r.db.QueryRowContext(ctx, `
		UPDATE courses
		SET code = $3, name = $4, color = $5, instructor = $6, credits = $7, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING created_at, updated_at
	`, c.ID, c.UserID, c.Code, c.Name, c.Color, c.Instructor, c.Credits)
	if err := row.Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return Course{}, ErrNotFound
		case store.IsUniqueViolation(err):
			return Course{}, ErrDuplicateCode
		}
		return Course{}, err
	}
	return c, nil
}

// Delete removes a course; its attendance records cascade.
func (r *Repository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
