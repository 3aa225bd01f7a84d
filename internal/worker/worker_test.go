package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"anchor/internal/attendance"
	"anchor/internal/queue"
)

type fixedThreshold struct {
	value int
	err   error
}

func (f fixedThreshold) Threshold(context.Context, string) (int, error) { return f.value, f.err }

type recordingFlagger struct {
	mu      sync.Mutex
	calls   []int
	results []attendance.CourseSummary
}

func (r *recordingFlagger) FlagAtRisk(_ context.Context, _ string, threshold int) ([]attendance.CourseSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, threshold)
	return r.results, nil
}

func (r *recordingFlagger) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestHandle(t *testing.T) {
	flagger := &recordingFlagger{results: []attendance.CourseSummary{{CourseCode: "CS101", AttendancePercentage: 50}}}
	core, logs := observer.New(zap.InfoLevel)
	p := New(fixedThreshold{value: 80}, flagger, zap.New(core))

	err := p.Handle(context.Background(), queue.Message{Type: queue.TypeAttendanceMarked, UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, []int{80}, flagger.calls)

	entries := logs.FilterMessage("course at risk").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "CS101", entries[0].ContextMap()["course_code"])
}

func TestHandleRejects(t *testing.T) {
	flagger := &recordingFlagger{}
	p := New(fixedThreshold{value: 75}, flagger, nil)

	assert.ErrorIs(t, p.Handle(context.Background(), queue.Message{Type: "checkin", UserID: "u1"}), ErrUnknownType)
	assert.Error(t, p.Handle(context.Background(), queue.Message{Type: queue.TypeAttendanceMarked}))

	errDown := errors.New("profile store down")
	p = New(fixedThreshold{err: errDown}, flagger, nil)
	assert.ErrorIs(t, p.Handle(context.Background(), queue.Message{Type: queue.TypeAttendanceMarked, UserID: "u1"}), errDown)
	assert.Empty(t, flagger.calls)
}

func TestRunDrainsInMemoryQueue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := queue.NewInMemory(4)
	messages, err := q.Consume(ctx)
	require.NoError(t, err)

	flagger := &recordingFlagger{}
	p := New(fixedThreshold{value: 90}, flagger, nil)
	done := make(chan struct{})
	go func() {
		p.Run(ctx, messages)
		close(done)
	}()

	require.NoError(t, q.Publish(ctx, queue.Message{Type: queue.TypeAttendanceMarked, UserID: "u1"}))
	require.NoError(t, q.Publish(ctx, queue.Message{Type: "ignored", UserID: "u1"}))
	require.NoError(t, q.Publish(ctx, queue.Message{Type: queue.TypeAttendanceMarked, UserID: "u2"}))

	require.Eventually(t, func() bool { return flagger.count() == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
