package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Ticker is the real-time Scheduler: one goroutine per job.
type Ticker struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	// mu orders wg.Add against Stop.
	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

var _ Scheduler = (*Ticker)(nil)

// NewTicker creates a running scheduler.
func NewTicker(logger *slog.Logger) *Ticker {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Ticker{ctx: ctx, cancel: cancel, logger: logger}
}

// start reserves a goroutine slot, or reports false once stopped.
func (t *Ticker) start() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return false
	}
	t.wg.Add(1)
	return true
}

func (t *Ticker) Every(period time.Duration, job Job) bool {
	if !t.start() {
		return false
	}
	go func() {
		defer t.wg.Done()

		if !t.run(job) {
			return
		}
		tk := time.NewTicker(period)
		defer tk.Stop()

		for {
			select {
			case <-t.ctx.Done():
				return
			case <-tk.C:
				if !t.run(job) {
					return
				}
			}
		}
	}()
	return true
}

func (t *Ticker) After(delay time.Duration, fn func()) {
	if !t.start() {
		return
	}
	go func() {
		defer t.wg.Done()

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-t.ctx.Done():
		case <-timer.C:
			t.run(func() bool { fn(); return false })
		}
	}()
}

// run executes one step of a job; a panicking job is stopped.
func (t *Ticker) run(job Job) (cont bool) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("Scheduled job panicked", "panic", r)
			cont = false
		}
	}()
	return job()
}

// Stop cancels all jobs and waits for running ones to return.
// It must not be called from inside a job.
func (t *Ticker) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
	t.cancel()
	t.wg.Wait()
}
