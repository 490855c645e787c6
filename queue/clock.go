package queue

import "time"

// TimeProvider abstracts time operations for deterministic testing.
type TimeProvider interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// DefaultTimeProvider uses the standard library time functions.
type DefaultTimeProvider struct{}

// Now returns the current time.
func (DefaultTimeProvider) Now() time.Time { return time.Now() }

// Since returns the duration since t.
func (DefaultTimeProvider) Since(t time.Time) time.Duration { return time.Since(t) }

// Timer is a cancelable pending callback handed out by a Scheduler.
type Timer interface {
	// Stop cancels the callback. It reports whether the callback was
	// stopped before it ran.
	Stop() bool
}

// Scheduler abstracts delayed execution so retry backoff and per-attempt
// timeouts are testable without wall-clock sleeps.
type Scheduler interface {
	// AfterFunc runs fn on its own goroutine after d elapses.
	AfterFunc(d time.Duration, fn func()) Timer
}

// DefaultScheduler schedules through time.AfterFunc.
type DefaultScheduler struct{}

// AfterFunc implements Scheduler.
func (DefaultScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
