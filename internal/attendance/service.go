package attendance

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"anchor/internal/queue"
)

// Store is the persistence the service needs; *Repository implements it.
type Store interface {
	Mark(ctx context.Context, userID, courseID string, day time.Time, status Status) (Record, error)
	List(ctx context.Context, userID string, f Filter) ([]Record, error)
	Delete(ctx context.Context, userID, id string) error
	SaveRiskAlert(ctx context.Context, userID string, s CourseSummary, threshold int, day time.Time) error
}

// publishTimeout bounds how long Mark waits on a full queue. The record is
// already stored by then, so a dropped message only delays the risk check.
const publishTimeout = 2 * time.Second

// Service coordinates marking attendance and building summaries.
type Service struct {
	store          Store
	pub            queue.Publisher
	log            *zap.Logger
	now            func() time.Time
	publishTimeout time.Duration
}

// NewService creates a service. pub may be nil, in which case no
// attendance.marked messages are published.
func NewService(store Store, pub queue.Publisher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, pub: pub, log: log, now: time.Now, publishTimeout: publishTimeout}
}

// Mark records the status of one class. The date is truncated to a calendar
// day and may not be later than today in loc, the student's timezone. A nil
// loc means UTC.
func (s *Service) Mark(ctx context.Context, userID, courseID string, day time.Time, rawStatus string, loc *time.Location) (Record, error) {
	if userID == "" || courseID == "" {
		return Record{}, fmt.Errorf("%w: user and course required", ErrInvalid)
	}
	status, err := ParseStatus(rawStatus)
	if err != nil {
		return Record{}, err
	}
	day = truncateDay(day)
	if day.IsZero() {
		return Record{}, fmt.Errorf("%w: class date required", ErrInvalid)
	}
	if day.After(localDay(s.now(), loc)) {
		return Record{}, fmt.Errorf("%w: class date is in the future", ErrInvalid)
	}

	rec, err := s.store.Mark(ctx, userID, courseID, day, status)
	if err != nil {
		return Record{}, err
	}
	if s.pub != nil {
		msg := queue.Message{Type: queue.TypeAttendanceMarked, UserID: userID, Body: []byte(courseID)}
		pctx, cancel := context.WithTimeout(ctx, s.publishTimeout)
		err := s.pub.Publish(pctx, msg)
		cancel()
		if err != nil {
			s.log.Warn("queue publish failed, message dropped", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return rec, nil
}

// Records lists the user's records.
func (s *Service) Records(ctx context.Context, userID string, f Filter) ([]Record, error) {
	return s.store.List(ctx, userID, f)
}

// Delete removes a record.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.store.Delete(ctx, userID, id)
}

// Summary computes per-course rollups and overall stats fresh from storage.
func (s *Service) Summary(ctx context.Context, userID string, threshold int) (Report, error) {
	records, err := s.store.List(ctx, userID, Filter{})
	if err != nil {
		return Report{}, err
	}
	threshold = EffectiveThreshold(threshold)
	courses := Summarize(records)
	return Report{
		Courses:   courses,
		Stats:     Overall(courses, threshold),
		Threshold: threshold,
	}, nil
}

// FlagAtRisk stores an alert for every course under threshold and returns
// those courses.
func (s *Service) FlagAtRisk(ctx context.Context, userID string, threshold int) ([]CourseSummary, error) {
	report, err := s.Summary(ctx, userID, threshold)
	if err != nil {
		return nil, err
	}
	today := truncateDay(s.now())
	var atRisk []CourseSummary
	for _, c := range report.Courses {
		if c.AttendancePercentage >= report.Threshold {
			continue
		}
		if err := s.store.SaveRiskAlert(ctx, userID, c, report.Threshold, today); err != nil {
			return atRisk, err
		}
		atRisk = append(atRisk, c)
	}
	return atRisk, nil
}

// localDay is the calendar day of t in loc, stamped at midnight UTC like
// stored class dates.
func localDay(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	return truncateDay(t)
}

func truncateDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
