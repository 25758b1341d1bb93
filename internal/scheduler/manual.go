package scheduler

import (
	"sync"
	"time"
)

// Manual is a virtual-time Scheduler and Clock. Nothing runs until Advance
// is called, which makes countdowns reproducible in tests and the sandbox.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	seq     uint64
	tasks   []*task
	stopped bool
}

type task struct {
	due    time.Time
	seq    uint64
	period time.Duration
	job    Job
	fn     func()
}

var (
	_ Scheduler = (*Manual)(nil)
	_ Clock     = (*Manual)(nil)
)

// NewManual creates a scheduler whose clock starts at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Every(period time.Duration, job Job) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.push(&task{due: m.now, period: period, job: job})
}

func (m *Manual) After(delay time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.push(&task{due: m.now.Add(delay), fn: fn})
}

func (m *Manual) push(t *task) bool {
	if m.stopped {
		return false
	}
	m.seq++
	t.seq = m.seq
	m.tasks = append(m.tasks, t)
	return true
}

// next pops the earliest task due at or before target.
func (m *Manual) next(target time.Time) *task {
	m.mu.Lock()
	defer m.mu.Unlock()

	best := -1
	for i, t := range m.tasks {
		if t.due.After(target) {
			continue
		}
		if best < 0 || t.due.Before(m.tasks[best].due) ||
			(t.due.Equal(m.tasks[best].due) && t.seq < m.tasks[best].seq) {
			best = i
		}
	}
	if best < 0 {
		m.now = target
		return nil
	}
	t := m.tasks[best]
	m.tasks = append(m.tasks[:best], m.tasks[best+1:]...)
	if t.due.After(m.now) {
		m.now = t.due
	}
	return t
}

// Advance moves the clock forward by d, running every task that falls due
// on the way, in due order. Tasks are run without the lock held, so they may
// schedule further work.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		t := m.next(target)
		if t == nil {
			return
		}
		if t.fn != nil {
			t.fn()
			continue
		}
		if t.job() {
			m.mu.Lock()
			t.due = t.due.Add(t.period)
			m.push(t)
			m.mu.Unlock()
		}
	}
}

// Pending counts scheduled jobs and callbacks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Stop drops everything scheduled and ignores later submissions.
func (m *Manual) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	m.tasks = nil
}
