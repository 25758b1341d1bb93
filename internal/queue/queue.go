// Package queue holds journal rows between batch writes.
package queue

import (
	"sync"
)

// Queue is a FIFO safe for concurrent use. A bounded queue drops new items
// once full and counts them.
type Queue[T any] struct {
	mu      sync.Mutex
	items   []T
	limit   int
	dropped int
}

// New creates a queue holding at most limit items; limit <= 0 is unbounded.
func New[T any](limit int) *Queue[T] {
	return &Queue[T]{limit: limit}
}

// Push appends items and returns how many were accepted.
func (q *Queue[T]) Push(items ...T) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(items)
	if q.limit > 0 {
		if room := q.limit - len(q.items); n > room {
			n = max(room, 0)
		}
	}
	q.items = append(q.items, items[:n]...)
	q.dropped += len(items) - n
	return n
}

// Take removes and returns up to n items from the front; n <= 0 takes all.
func (q *Queue[T]) Take(n int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n <= 0 || n > len(q.items) {
		n = len(q.items)
	}
	out := make([]T, n)
	copy(out, q.items)
	q.items = q.items[n:]
	return out
}

// Requeue puts items back at the front in their original order. It ignores
// the limit so a failed write never loses rows.
func (q *Queue[T]) Requeue(items []T) {
	if len(items) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(append(make([]T, 0, len(items)+len(q.items)), items...), q.items...)
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Empty reports whether nothing is queued.
func (q *Queue[T]) Empty() bool {
	return q.Len() == 0
}

// Dropped returns how many items a full queue refused.
func (q *Queue[T]) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
