package attendance

import (
	"errors"
	"strings"
	"time"
)

// DefaultThreshold is the target attendance percentage used when a user has
// not configured one.
const DefaultThreshold = 75

// Status is the outcome of a single class.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
	StatusExcused Status = "excused"
)

var (
	// ErrInvalidStatus is returned by ParseStatus for unknown values.
	ErrInvalidStatus = errors.New("invalid attendance status")
	// ErrInvalid wraps other input validation failures.
	ErrInvalid = errors.New("invalid attendance")
)

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate, StatusExcused:
		return true
	default:
		return false
	}
}

// Attended reports whether the class counts toward attendance.
func (s Status) Attended() bool {
	return s == StatusPresent || s == StatusLate
}

// ParseStatus validates a raw status at the ingestion boundary.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", ErrInvalidStatus
	}
	return s, nil
}

// Record is one class taken or missed, joined with its course's display data.
type Record struct {
	ID         string    `json:"id"`
	CourseID   string    `json:"course_id"`
	CourseCode string    `json:"course_code"`
	CourseName string    `json:"course_name"`
	Color      string    `json:"color"`
	ClassDate  time.Time `json:"class_date"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CourseSummary is the per-course rollup. It is derived on every request and
// never persisted.
type CourseSummary struct {
	CourseCode           string `json:"course_code"`
	CourseName           string `json:"course_name"`
	Color                string `json:"color"`
	TotalClasses         int    `json:"total_classes"`
	Present              int    `json:"present"`
	Absent               int    `json:"absent"`
	Late                 int    `json:"late"`
	Excused              int    `json:"excused"`
	AttendancePercentage int    `json:"attendance_percentage"`
}

// Attended is present plus late.
func (s CourseSummary) Attended() int {
	return s.Present + s.Late
}

// OverallStats are the cross-course metrics shown on the attendance page.
type OverallStats struct {
	OverallAttendance int `json:"overallAttendance"`
	TotalClasses      int `json:"totalClasses"`
	AttendedClasses   int `json:"attendedClasses"`
	SubjectsAtRisk    int `json:"subjectsAtRisk"`
	SafeAbsences      int `json:"safeAbsences"`
}

// Report bundles what the summary endpoint returns.
type Report struct {
	Courses   []CourseSummary `json:"courses"`
	Stats     OverallStats    `json:"stats"`
	Threshold int             `json:"threshold"`
}

// Filter narrows record listings. Zero values mean no filter.
type Filter struct {
	CourseID string
	From     time.Time
	To       time.Time
}
