package session

import (
	"testing"
	"time"
)

// fakeClock is a manually advanced clock for deterministic timer tests.
type fakeClock struct {
	current time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.current
}

func (c *fakeClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func TestTimer_RemainingCountsDown(t *testing.T) {
	clock := newFakeClock()
	timer := NewTimer(clock.Now)

	timer.Start(60)
	if got := timer.Remaining(); got != 60*time.Minute {
		t.Errorf("Remaining() right after start = %v, want 60m", got)
	}

	clock.Advance(25 * time.Minute)
	if got := timer.Remaining(); got != 35*time.Minute {
		t.Errorf("Remaining() after 25m = %v, want 35m", got)
	}
}

func TestTimer_RemainingNeverNegative(t *testing.T) {
	clock := newFakeClock()
	timer := NewTimer(clock.Now)

	timer.Start(10)
	clock.Advance(45 * time.Minute)

	if got := timer.Remaining(); got != 0 {
		t.Errorf("Remaining() past the deadline = %v, want 0", got)
	}
}

func TestTimer_ZeroBeforeStart(t *testing.T) {
	timer := NewTimer(newFakeClock().Now)

	if got := timer.Remaining(); got != 0 {
		t.Errorf("Remaining() before start = %v, want 0", got)
	}
	if timer.Running() {
		t.Error("Running() before start = true, want false")
	}
}

func TestTimer_PauseFreezesRemaining(t *testing.T) {
	clock := newFakeClock()
	timer := NewTimer(clock.Now)

	timer.Start(30)
	clock.Advance(10 * time.Minute)
	timer.Pause()

	clock.Advance(2 * time.Hour)
	if got := timer.Remaining(); got != 20*time.Minute {
		t.Errorf("Remaining() while paused = %v, want 20m", got)
	}
}

func TestTimer_ResumePreservesPausedValue(t *testing.T) {
	clock := newFakeClock()
	timer := NewTimer(clock.Now)

	timer.Start(30)
	clock.Advance(10 * time.Minute)
	timer.Pause()
	clock.Advance(1 * time.Hour)
	timer.Resume()

	if got := timer.Remaining(); got != 20*time.Minute {
		t.Errorf("Remaining() right after resume = %v, want 20m", got)
	}

	clock.Advance(5 * time.Minute)
	if got := timer.Remaining(); got != 15*time.Minute {
		t.Errorf("Remaining() 5m after resume = %v, want 15m", got)
	}
}

func TestTimer_PauseResumeNoOps(t *testing.T) {
	clock := newFakeClock()
	timer := NewTimer(clock.Now)

	// Pause before start does nothing.
	timer.Pause()
	if timer.Running() {
		t.Error("Running() after pause before start = true, want false")
	}

	// Resume before start does nothing.
	timer.Resume()
	if timer.Running() {
		t.Error("Running() after resume before start = true, want false")
	}

	timer.Start(30)
	timer.Resume() // already running
	clock.Advance(10 * time.Minute)
	if got := timer.Remaining(); got != 20*time.Minute {
		t.Errorf("Remaining() after redundant resume = %v, want 20m", got)
	}
}

func TestTimer_RestartResetsBaseline(t *testing.T) {
	clock := newFakeClock()
	timer := NewTimer(clock.Now)

	timer.Start(30)
	clock.Advance(20 * time.Minute)
	timer.Start(30)

	if got := timer.Remaining(); got != 30*time.Minute {
		t.Errorf("Remaining() after restart = %v, want 30m", got)
	}
}
