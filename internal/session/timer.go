package session

import "time"

// Clock abstracts wall-clock reads so timer behavior is testable.
type Clock func() time.Time

// Timer tracks remaining time for one attempt. It is not safe for
// concurrent use on its own; the owning session serializes access.
type Timer struct {
	duration time.Duration
	baseline time.Time
	pausedAt time.Time
	running  bool
	started  bool
	now      Clock
}

func NewTimer(now Clock) *Timer {
	if now == nil {
		now = time.Now
	}
	return &Timer{now: now}
}

// Start sets the duration and captures the current instant as baseline.
// Calling it again resets the baseline.
func (t *Timer) Start(durationMinutes int) {
	t.duration = time.Duration(durationMinutes) * time.Minute
	t.baseline = t.now()
	t.running = true
	t.started = true
}

// Pause freezes the remaining value at the current instant. No-op if
// not running.
func (t *Timer) Pause() {
	if !t.running {
		return
	}
	t.pausedAt = t.now()
	t.running = false
}

// Resume shifts the baseline forward by the paused interval so the
// remaining value picks up where Pause left it. No-op if running.
func (t *Timer) Resume() {
	if t.running || !t.started {
		return
	}
	t.baseline = t.baseline.Add(t.now().Sub(t.pausedAt))
	t.running = true
}

// Remaining reports the time left. While running it counts down from
// the baseline; while paused it holds the value frozen at the pause
// instant. Never negative. Zero before the first Start.
func (t *Timer) Remaining() time.Duration {
	if !t.started {
		return 0
	}

	reference := t.now()
	if !t.running {
		reference = t.pausedAt
	}

	remaining := t.duration - reference.Sub(t.baseline)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Running reports whether the timer is currently counting down.
func (t *Timer) Running() bool {
	return t.running
}
