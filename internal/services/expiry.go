package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/campusfleet/exam-service/internal/session"
)

// ExpirySweeper finishes sessions whose timers have run out. A timer
// reaching zero does not end the attempt on its own; this poller does.
type ExpirySweeper struct {
	registry *session.Registry
	interval time.Duration
	logger   *slog.Logger
	stop     chan struct{}
	done     chan struct{}
}

func NewExpirySweeper(registry *session.Registry, interval time.Duration, logger *slog.Logger) *ExpirySweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ExpirySweeper{
		registry: registry,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the background sweep loop.
func (s *ExpirySweeper) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *ExpirySweeper) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *ExpirySweeper) sweep(ctx context.Context) {
	for _, sess := range s.registry.Active() {
		if sess.RemainingTime() > 0 {
			continue
		}

		studentID := sess.StudentID()
		examID := sess.ExamID()
		if _, err := s.registry.End(ctx, studentID, examID); err != nil {
			s.logger.ErrorContext(ctx, "Failed to finish expired session",
				"student_id", studentID,
				"exam_id", examID,
				"error", err)
			continue
		}

		s.logger.InfoContext(ctx, "Finished expired session",
			"student_id", studentID,
			"exam_id", examID)
	}
}

// Stop halts the loop and waits for the current sweep to complete.
func (s *ExpirySweeper) Stop() {
	close(s.stop)
	<-s.done
}
