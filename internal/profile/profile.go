package profile

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when the user has not completed onboarding.
	ErrNotFound = errors.New("profile not found")
	// ErrInvalid wraps input validation failures.
	ErrInvalid = errors.New("invalid profile")
)

// Profile holds a student's settings.
type Profile struct {
	UserID              string    `json:"user_id"`
	FullName            string    `json:"full_name"`
	University          string    `json:"university"`
	Major               string    `json:"major"`
	Semester            string    `json:"semester"`
	AttendanceThreshold *int      `json:"attendance_threshold"`
	Timezone            string    `json:"timezone"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Repository persists profiles in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Get loads a profile by user id.
func (r *Repository) Get(ctx context.Context, userID string) (Profile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, full_name, university, major, semester, attendance_threshold, timezone, updated_at
		FROM profiles WHERE user_id = $1
	`, userID)
	var (
		p         Profile
		threshold sql.NullInt32
	)
	if err := row.Scan(&p.UserID, &p.FullName, &p.University, &p.Major, &p.Semester, &threshold, &p.Timezone, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	if threshold.Valid {
		v := int(threshold.Int32)
		p.AttendanceThreshold = &v
	}
	return p, nil
}

// Upsert creates or replaces the profile row.
func (r *Repository) Upsert(ctx context.Context, p Profile) (Profile, error) {
	var threshold any
	if p.AttendanceThreshold != nil {
		threshold = *p.AttendanceThreshold
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO profiles (user_id, full_name, university, major, semester, attendance_threshold, timezone)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			university = EXCLUDED.university,
			major = EXCLUDED.major,
			semester = EXCLUDED.semester,
			attendance_threshold = EXCLUDED.attendance_threshold,
			timezone = EXCLUDED.timezone,
			updated_at = NOW()
		RETURNING updated_at
	`, p.UserID, p.FullName, p.University, p.Major, p.Semester, threshold, p.Timezone)
	if err := row.Scan(&p.UpdatedAt); err != nil {
		return Profile{}, err
	}
	return p, nil
}
