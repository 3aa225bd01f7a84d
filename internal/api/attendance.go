package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"anchor/internal/assignment"
	"anchor/internal/attendance"
	"anchor/internal/auth"
)

const upcomingLimit = 5

// MarkAttendance records the status of one class.
func (h *Handler) MarkAttendance(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	day, err := time.Parse(time.DateOnly, req.ClassDate)
	if err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	userID := auth.UserID(c)
	loc, err := h.profiles.Location(ctx, userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	rec, err := h.attendance.Mark(ctx, userID, req.CourseID, day, req.Status, loc)
	if err != nil {
		h.fail(c, err)
		return
	}
	if h.marks != nil {
		h.marks.WithLabelValues(string(rec.Status)).Inc()
	}
	c.JSON(http.StatusCreated, rec)
}

// ListAttendance returns records, optionally filtered by course_id and a
// from/to date range (YYYY-MM-DD, inclusive).
func (h *Handler) ListAttendance(c *gin.Context) {
	var f attendance.Filter
	if v := c.Query("course_id"); v != "" {
		if _, err := uuid.Parse(v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "course_id must be a uuid"})
			return
		}
		f.CourseID = v
	}
	for _, q := range []struct {
		name string
		dst  *time.Time
	}{{"from", &f.From}, {"to", &f.To}} {
		v := c.Query(q.name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": q.name + " must be YYYY-MM-DD"})
			return
		}
		*q.dst = t
	}
	records, err := h.attendance.Records(c.Request.Context(), auth.UserID(c), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	if records == nil {
		records = []attendance.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// DeleteAttendance removes a record.
func (h *Handler) DeleteAttendance(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.attendance.Delete(c.Request.Context(), auth.UserID(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AttendanceSummary returns per-course rollups and overall stats computed
// against the caller's threshold.
func (h *Handler) AttendanceSummary(c *gin.Context) {
	ctx := c.Request.Context()
	userID := auth.UserID(c)
	threshold, err := h.profiles.Threshold(ctx, userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	report, err := h.attendance.Summary(ctx, userID, threshold)
	if err != nil {
		h.fail(c, err)
		return
	}
	if report.Courses == nil {
		report.Courses = []attendance.CourseSummary{}
	}
	c.JSON(http.StatusOK, report)
}

type dashboardResponse struct {
	AttendancePercentage int                     `json:"attendance_percentage"`
	Courses              int                     `json:"courses"`
	SubjectsAtRisk       int                     `json:"subjects_at_risk"`
	Threshold            int                     `json:"threshold"`
	OpenAssignments      int                     `json:"open_assignments"`
	OverdueAssignments   int                     `json:"overdue_assignments"`
	Upcoming             []assignment.Assignment `json:"upcoming"`
}

// Dashboard combines the attendance headline with assignment counts.
func (h *Handler) Dashboard(c *gin.Context) {
	userID := auth.UserID(c)
	now := h.now()

	var (
		resp    dashboardResponse
		records []attendance.Record
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() (err error) {
		resp.Threshold, err = h.profiles.Threshold(ctx, userID)
		return err
	})
	g.Go(func() (err error) {
		records, err = h.attendance.Records(ctx, userID, attendance.Filter{})
		return err
	})
	g.Go(func() (err error) {
		resp.OpenAssignments, resp.OverdueAssignments, err = h.assignments.CountOpen(ctx, userID, now)
		return err
	})
	g.Go(func() (err error) {
		resp.Upcoming, err = h.assignments.Upcoming(ctx, userID, now, upcomingLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		h.fail(c, err)
		return
	}

	summaries := attendance.Summarize(records)
	resp.AttendancePercentage = attendance.DashboardAttendance(records)
	resp.Courses = len(summaries)
	resp.SubjectsAtRisk = attendance.Overall(summaries, resp.Threshold).SubjectsAtRisk
	if resp.Upcoming == nil {
		resp.Upcoming = []assignment.Assignment{}
	}
	c.JSON(http.StatusOK, resp)
}
