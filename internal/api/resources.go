package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"anchor/internal/assignment"
	"anchor/internal/auth"
	"anchor/internal/course"
	"anchor/internal/profile"
	"anchor/internal/timetable"
)

// ---------- Profile ----------

// GetProfile returns the caller's profile and whether it was served from cache.
func (h *Handler) GetProfile(c *gin.Context) {
	res, err := h.profiles.Get(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// UpdateProfile creates or replaces the caller's profile.
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.profiles.Update(c.Request.Context(), profile.Profile{
		UserID:              auth.UserID(c),
		FullName:            strings.TrimSpace(req.FullName),
		University:          strings.TrimSpace(req.University),
		Major:               strings.TrimSpace(req.Major),
		Semester:            strings.TrimSpace(req.Semester),
		AttendanceThreshold: req.AttendanceThreshold,
		Timezone:            req.Timezone,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ---------- Courses ----------

// ListCourses returns the caller's courses.
func (h *Handler) ListCourses(c *gin.Context) {
	courses, err := h.courses.List(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	if courses == nil {
		courses = []course.Course{}
	}
	c.JSON(http.StatusOK, gin.H{"courses": courses})
}

// CreateCourse adds a course.
func (h *Handler) CreateCourse(c *gin.Context) {
	var req courseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	created, err := h.courses.Create(c.Request.Context(), req.course(auth.UserID(c), ""))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateCourse replaces a course's editable fields.
func (h *Handler) UpdateCourse(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req courseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	updated, err := h.courses.Update(c.Request.Context(), req.course(auth.UserID(c), id))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteCourse removes a course and, by cascade, its attendance.
func (h *Handler) DeleteCourse(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.courses.Delete(c.Request.Context(), auth.UserID(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r courseRequest) course(userID, id string) course.Course {
	return course.Course{
		ID:         id,
		UserID:     userID,
		Code:       r.Code,
		Name:       r.Name,
		Color:      r.Color,
		Instructor: r.Instructor,
		Credits:    r.Credits,
	}
}

// ---------- Assignments ----------

// ListAssignments returns the caller's assignments, optionally filtered by
// status and course.
func (h *Handler) ListAssignments(c *gin.Context) {
	f := assignment.Filter{
		Status:   assignment.Status(c.Query("status")),
		CourseID: c.Query("course_id"),
	}
	if f.CourseID != "" {
		if _, err := uuid.Parse(f.CourseID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "course_id must be a uuid"})
			return
		}
	}
	items, err := h.assignments.List(c.Request.Context(), auth.UserID(c), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	if items == nil {
		items = []assignment.Assignment{}
	}
	c.JSON(http.StatusOK, gin.H{"assignments": items})
}

// GetAssignment returns one assignment.
func (h *Handler) GetAssignment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	a, err := h.assignments.Get(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// CreateAssignment adds an assignment.
func (h *Handler) CreateAssignment(c *gin.Context) {
	a, ok := bindAssignment(c, "")
	if !ok {
		return
	}
	created, err := h.assignments.Create(c.Request.Context(), a)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateAssignment replaces an assignment's editable fields.
func (h *Handler) UpdateAssignment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	a, ok := bindAssignment(c, id)
	if !ok {
		return
	}
	updated, err := h.assignments.Update(c.Request.Context(), a)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteAssignment removes an assignment.
func (h *Handler) DeleteAssignment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.assignments.Delete(c.Request.Context(), auth.UserID(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func bindAssignment(c *gin.Context, id string) (assignment.Assignment, bool) {
	var req assignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return assignment.Assignment{}, false
	}
	if req.CourseID != nil && *req.CourseID != "" {
		if _, err := uuid.Parse(*req.CourseID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "course_id must be a uuid"})
			return assignment.Assignment{}, false
		}
	}
	return assignment.Assignment{
		ID:          id,
		UserID:      auth.UserID(c),
		CourseID:    req.CourseID,
		Title:       req.Title,
		Description: req.Description,
		DueAt:       req.DueAt,
		Status:      assignment.Status(req.Status),
		Priority:    assignment.Priority(req.Priority),
	}, true
}

// ---------- Timetable ----------

// UploadTimetable accepts either a multipart "file" field or a JSON body
// {"data": "<base64 data URL>"}.
func (h *Handler) UploadTimetable(c *gin.Context) {
	ctx := c.Request.Context()
	userID := auth.UserID(c)

	var (
		t   timetable.Timetable
		err error
	)
	if strings.Contains(c.ContentType(), "multipart/form-data") {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, timetable.MaxUploadBytes+1<<20)
		file, header, ferr := c.Request.FormFile("file")
		if ferr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
			return
		}
		defer file.Close()
		data, rerr := io.ReadAll(io.LimitReader(file, timetable.MaxUploadBytes+1))
		if rerr != nil {
			h.fail(c, rerr)
			return
		}
		t, err = h.timetables.UploadFile(ctx, userID, data, header.Filename)
	} else {
		var req timetableRequest
		if berr := c.ShouldBindJSON(&req); berr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": `provide {"data": "<base64 data URL>"}`})
			return
		}
		t, err = h.timetables.UploadDataURL(ctx, userID, req.Data)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// LatestTimetable returns the most recent upload.
func (h *Handler) LatestTimetable(c *gin.Context) {
	t, err := h.timetables.Latest(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func pathID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a uuid"})
		return "", false
	}
	return id, true
}
