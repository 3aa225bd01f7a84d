package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"anchor/internal/assignment"
	"anchor/internal/attendance"
	"anchor/internal/auth"
	"anchor/internal/course"
	"anchor/internal/httpmiddleware"
	"anchor/internal/profile"
	"anchor/internal/timetable"
)

// CourseStore is the course persistence the handlers need.
type CourseStore interface {
	List(ctx context.Context, userID string) ([]course.Course, error)
	Create(ctx context.Context, c course.Course) (course.Course, error)
	Update(ctx context.Context, c course.Course) (course.Course, error)
	Delete(ctx context.Context, userID, id string) error
}

// AssignmentStore is the assignment persistence the handlers need.
type AssignmentStore interface {
	List(ctx context.Context, userID string, f assignment.Filter) ([]assignment.Assignment, error)
	Get(ctx context.Context, userID, id string) (assignment.Assignment, error)
	Create(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error)
	Update(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error)
	Delete(ctx context.Context, userID, id string) error
	Upcoming(ctx context.Context, userID string, now time.Time, limit int) ([]assignment.Assignment, error)
	CountOpen(ctx context.Context, userID string, now time.Time) (open, overdue int, err error)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// Config holds router settings.
type Config struct {
	SigningKey      string
	Issuer          string
	RateLimitPerMin int
	AllowedOrigins  []string
	Health          map[string]HealthCheck
	Registry        *prometheus.Registry
}

// Handler serves the HTTP API.
type Handler struct {
	log         *zap.Logger
	attendance  *attendance.Service
	profiles    *profile.Service
	courses     CourseStore
	assignments AssignmentStore
	timetables  *timetable.Service
	marks       *prometheus.CounterVec
	now         func() time.Time
}

// New creates a handler. The logger may be nil.
func New(log *zap.Logger, att *attendance.Service, profiles *profile.Service, courses CourseStore, assignments AssignmentStore, timetables *timetable.Service) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		log:         log,
		attendance:  att,
		profiles:    profiles,
		courses:     courses,
		assignments: assignments,
		timetables:  timetables,
		now:         time.Now,
	}
}

// Router builds the gin engine with middleware and routes.
func (h *Handler) Router(cfg Config) *gin.Engine {
	registerValidators()

	r := gin.New()
	r.Use(httpmiddleware.AccessLog(h.log, "/healthz", "/metrics"))
	r.Use(httpmiddleware.Recovery(h.log))
	r.Use(cors.New(corsConfig(cfg.AllowedOrigins)))
	r.Use(httpmiddleware.SecurityHeaders())
	if cfg.Registry != nil {
		r.Use(httpmiddleware.NewMetrics(cfg.Registry).Middleware())
		h.marks = promauto.With(cfg.Registry).NewCounterVec(prometheus.CounterOpts{
			Name: "anchor_attendance_marks_total",
			Help: "Attendance marks recorded, by status.",
		}, []string{"status"})
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})))
	}
	r.GET("/healthz", healthz(cfg.Health))

	v1 := r.Group("/v1", auth.UserAuth(cfg.SigningKey, cfg.Issuer))
	if cfg.RateLimitPerMin > 0 {
		v1.Use(httpmiddleware.NewRateLimiter(cfg.RateLimitPerMin).GinMiddleware())
	}

	v1.GET("/profile", h.GetProfile)
	v1.PUT("/profile", h.UpdateProfile)

	v1.GET("/courses", h.ListCourses)
	v1.POST("/courses", h.CreateCourse)
	v1.PUT("/courses/:id", h.UpdateCourse)
	v1.DELETE("/courses/:id", h.DeleteCourse)

	v1.POST("/attendance", h.MarkAttendance)
	v1.GET("/attendance", h.ListAttendance)
	v1.GET("/attendance/summary", h.AttendanceSummary)
	v1.DELETE("/attendance/:id", h.DeleteAttendance)

	v1.GET("/dashboard", h.Dashboard)

	v1.GET("/assignments", h.ListAssignments)
	v1.POST("/assignments", h.CreateAssignment)
	v1.GET("/assignments/:id", h.GetAssignment)
	v1.PUT("/assignments/:id", h.UpdateAssignment)
	v1.DELETE("/assignments/:id", h.DeleteAssignment)

	v1.POST("/timetable", h.UploadTimetable)
	v1.GET("/timetable", h.LatestTimetable)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}

func healthz(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		body := gin.H{"status": "ok"}
		for name, check := range checks {
			ok := check(c.Request.Context())
			body[name] = ok
			if !ok {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
			}
		}
		c.JSON(status, body)
	}
}

// fail maps domain errors to status codes. Anything unrecognised is logged
// and reported as a 500 without leaking the cause.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, attendance.ErrNotFound),
		errors.Is(err, attendance.ErrCourseNotFound),
		errors.Is(err, course.ErrNotFound),
		errors.Is(err, assignment.ErrNotFound),
		errors.Is(err, profile.ErrNotFound),
		errors.Is(err, timetable.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, assignment.ErrCourseNotFound):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, attendance.ErrInvalidStatus),
		errors.Is(err, attendance.ErrInvalid),
		errors.Is(err, course.ErrInvalid),
		errors.Is(err, assignment.ErrInvalid),
		errors.Is(err, profile.ErrInvalid),
		errors.Is(err, timetable.ErrUnsupportedType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, course.ErrDuplicateCode):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, timetable.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	case errors.Is(err, timetable.ErrStorageDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("user_id", auth.UserID(c)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
