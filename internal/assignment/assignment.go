package assignment

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// Status of an assignment.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Priority of an assignment.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var (
	// ErrNotFound is returned when the assignment does not exist for the user.
	ErrNotFound = errors.New("assignment not found")
	// ErrCourseNotFound is returned when linking to a course the user does not own.
	ErrCourseNotFound = errors.New("course not found")
	// ErrInvalid wraps input validation failures.
	ErrInvalid = errors.New("invalid assignment")
)

var (
	plain = bluemonday.StrictPolicy()
	rich  = bluemonday.UGCPolicy()
)

// Assignment is a piece of coursework with an optional due date.
type Assignment struct {
	ID          string     `json:"id"`
	UserID      string     `json:"-"`
	CourseID    *string    `json:"course_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueAt       *time.Time `json:"due_at"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Filter narrows listings. Zero values mean no filter.
type Filter struct {
	Status   Status
	CourseID string
}

// Prepare sanitizes user text, applies defaults and validates enums. The
// title is stripped of all markup; the description keeps safe formatting.
func (a *Assignment) Prepare(now time.Time) error {
	a.Title = strings.TrimSpace(plain.Sanitize(a.Title))
	a.Description = strings.TrimSpace(rich.Sanitize(a.Description))
	if a.Title == "" {
		return fmt.Errorf("%w: title required", ErrInvalid)
	}
	if a.Status == "" {
		a.Status = StatusPending
	}
	if a.Priority == "" {
		a.Priority = PriorityMedium
	}
	switch a.Status {
	case StatusPending, StatusInProgress, StatusCompleted:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalid, a.Status)
	}
	switch a.Priority {
	case PriorityLow, PriorityMedium, PriorityHigh:
	default:
		return fmt.Errorf("%w: unknown priority %q", ErrInvalid, a.Priority)
	}
	if a.CourseID != nil && *a.CourseID == "" {
		a.CourseID = nil
	}
	if a.Status == StatusCompleted {
		if a.CompletedAt == nil {
			t := now.UTC()
			a.CompletedAt = &t
		}
	} else {
		a.CompletedAt = nil
	}
	return nil
}

// Overdue reports whether an unfinished assignment is past its due date.
func (a Assignment) Overdue(now time.Time) bool {
	return a.Status != StatusCompleted && a.DueAt != nil && a.DueAt.Before(now)
}
