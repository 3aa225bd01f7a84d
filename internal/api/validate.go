package api

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"anchor/internal/assignment"
	"anchor/internal/attendance"
)

var registerOnce sync.Once

// registerValidators adds the domain enum tags to gin's validator engine. A
// failed registration panics, since every binding that uses the tag would
// otherwise fail at request time.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			panic(fmt.Sprintf("api: unexpected validator engine %T", binding.Validator.Engine()))
		}
		if err := registerTags(v); err != nil {
			panic(fmt.Sprintf("api: register validators: %v", err))
		}
	})
}

func registerTags(v *validator.Validate) error {
	return errors.Join(
		v.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
			_, err := attendance.ParseStatus(fl.Field().String())
			return err == nil
		}),
		v.RegisterValidation("assignment_status", func(fl validator.FieldLevel) bool {
			switch assignment.Status(fl.Field().String()) {
			case "", assignment.StatusPending, assignment.StatusInProgress, assignment.StatusCompleted:
				return true
			}
			return false
		}),
		v.RegisterValidation("assignment_priority", func(fl validator.FieldLevel) bool {
			switch assignment.Priority(fl.Field().String()) {
			case "", assignment.PriorityLow, assignment.PriorityMedium, assignment.PriorityHigh:
				return true
			}
			return false
		}),
	)
}

type markRequest struct {
	CourseID  string `json:"course_id" binding:"required,uuid"`
	ClassDate string `json:"class_date" binding:"required,datetime=2006-01-02"`
	Status    string `json:"status" binding:"required,attendance_status"`
}

type profileRequest struct {
	FullName            string `json:"full_name" binding:"max=120"`
	University          string `json:"university" binding:"max=160"`
	Major               string `json:"major" binding:"max=120"`
	Semester            string `json:"semester" binding:"max=40"`
	AttendanceThreshold *int   `json:"attendance_threshold" binding:"omitempty,min=1,max=100"`
	Timezone            string `json:"timezone" binding:"omitempty,timezone"`
}

type courseRequest struct {
	Code       string `json:"course_code" binding:"required,max=32"`
	Name       string `json:"course_name" binding:"required,max=160"`
	Color      string `json:"color" binding:"omitempty,hexcolor"`
	Instructor string `json:"instructor" binding:"max=120"`
	Credits    int    `json:"credits" binding:"min=0,max=30"`
}

type assignmentRequest struct {
	CourseID    *string    `json:"course_id"`
	Title       string     `json:"title" binding:"required,max=200"`
	Description string     `json:"description" binding:"max=10000"`
	DueAt       *time.Time `json:"due_at"`
	Status      string     `json:"status" binding:"assignment_status"`
	Priority    string     `json:"priority" binding:"assignment_priority"`
}

type timetableRequest struct {
	Data string `json:"data" binding:"required"`
}
