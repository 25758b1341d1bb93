// Package scheduler runs recurring per-instance jobs and one-shot callbacks.
package scheduler

import (
	"errors"
	"time"
)

// ErrStopped is returned by callers whose work a stopped scheduler refused.
var ErrStopped = errors.New("scheduler stopped")

// Job is a recurring unit of work. Returning false stops it.
type Job func() bool

// Scheduler runs jobs on a fixed period. Runs of a single job never overlap;
// distinct jobs may run concurrently.
type Scheduler interface {
	// Every runs job immediately and then once per period until it returns
	// false or the scheduler stops. It reports false, without ever running
	// job, when the scheduler is already stopped.
	Every(period time.Duration, job Job) bool
	// After runs fn once, delay from now, unless the scheduler stops first.
	After(delay time.Duration, fn func())
	Stop()
}

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
