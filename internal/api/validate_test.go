package api

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterTags(t *testing.T) {
	v := validator.New()
	require.NoError(t, registerTags(v))

	type sample struct {
		Status   string `validate:"attendance_status"`
		State    string `validate:"assignment_status"`
		Priority string `validate:"assignment_priority"`
	}
	assert.NoError(t, v.Struct(sample{Status: "Late", State: "in_progress", Priority: "high"}))

	err := v.Struct(sample{Status: "sick", State: "done", Priority: "urgent"})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 3)
}

func TestRegisterValidatorsIsIdempotent(t *testing.T) {
	assert.NotPanics(t, registerValidators)
	assert.NotPanics(t, registerValidators)
}
