// Package worker turns attendance.marked messages into at-risk alerts.
package worker

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"anchor/internal/attendance"
	"anchor/internal/queue"
)

// ThresholdSource resolves a user's attendance target; *profile.Service implements it.
type ThresholdSource interface {
	Threshold(ctx context.Context, userID string) (int, error)
}

// RiskFlagger stores alerts for courses under threshold; *attendance.Service implements it.
type RiskFlagger interface {
	FlagAtRisk(ctx context.Context, userID string, threshold int) ([]attendance.CourseSummary, error)
}

// ErrUnknownType is returned by Handle for message types it does not process.
var ErrUnknownType = errors.New("unknown message type")

// Processor consumes queue messages.
type Processor struct {
	thresholds ThresholdSource
	flagger    RiskFlagger
	log        *zap.Logger
}

// New creates a processor. The logger may be nil.
func New(thresholds ThresholdSource, flagger RiskFlagger, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{thresholds: thresholds, flagger: flagger, log: log}
}

// Run handles messages until the channel closes or ctx is done. Failures are
// logged and the message is dropped.
func (p *Processor) Run(ctx context.Context, messages <-chan queue.Message) {
	p.log.Info("worker started")
	for {
		select {
		case <-ctx.Done():
			p.log.Info("worker stopped")
			return
		case msg, ok := <-messages:
			if !ok {
				p.log.Info("worker stopped", zap.String("reason", "queue closed"))
				return
			}
			if err := p.Handle(ctx, msg); err != nil {
				p.log.Warn("message failed",
					zap.String("type", msg.Type),
					zap.String("user_id", msg.UserID),
					zap.Error(err))
			}
		}
	}
}

// Handle processes one message.
func (p *Processor) Handle(ctx context.Context, msg queue.Message) error {
	if msg.Type != queue.TypeAttendanceMarked {
		return ErrUnknownType
	}
	if msg.UserID == "" {
		return errors.New("message has no user id")
	}
	threshold, err := p.thresholds.Threshold(ctx, msg.UserID)
	if err != nil {
		return err
	}
	atRisk, err := p.flagger.FlagAtRisk(ctx, msg.UserID, threshold)
	if err != nil {
		return err
	}
	for _, c := range atRisk {
		p.log.Info("course at risk",
			zap.String("user_id", msg.UserID),
			zap.String("course_code", c.CourseCode),
			zap.Int("attendance_percentage", c.AttendancePercentage),
			zap.Int("threshold", threshold))
	}
	return nil
}
