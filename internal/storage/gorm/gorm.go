// Package gormstorage is the queue-backed gorm journal shared by the postgres
// and sqlite backends. RecordEvent only enqueues; a writer goroutine drains
// the queue in one transaction per cycle.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/itnt/extension/internal/model"
	"github.com/itnt/extension/internal/model/convert"
	"github.com/itnt/extension/internal/queue"
	"github.com/itnt/extension/pkg/core"
)

const (
	defaultFlushInterval = 2 * time.Second
	defaultMaxPending    = 100_000
)

// ErrBacklogFull is returned when the unwritten backlog is at MaxPending.
var ErrBacklogFull = errors.New("journal backlog full")

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        *slog.Logger
	FlushInterval time.Duration
	// MaxPending bounds the unwritten backlog.
	MaxPending int
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
// Without a DB it only queues, which the tests rely on.
type Backend struct {
	deps   Dependencies
	events *queue.Queue[model.LifecycleEvent]

	flushMu  sync.Mutex
	stopChan chan struct{}
	wg       sync.WaitGroup
	once     sync.Once

	mu                  sync.Mutex
	lastDBWriteDuration time.Duration
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = defaultFlushInterval
	}
	if deps.MaxPending <= 0 {
		deps.MaxPending = defaultMaxPending
	}
	return &Backend{
		deps:   deps,
		events: queue.New[model.LifecycleEvent](deps.MaxPending),
	}
}

// DB exposes the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

func (b *Backend) Init() error {
	b.stopChan = make(chan struct{})
	b.wg.Add(1)
	go b.writeLoop()
	return nil
}

// Close stops the writer after a final flush.
func (b *Backend) Close() error {
	b.once.Do(func() {
		if b.stopChan != nil {
			close(b.stopChan)
			b.wg.Wait()
		}
	})
	if b.deps.DB != nil && !b.events.Empty() {
		return fmt.Errorf("%d journal entries not written", b.events.Len())
	}
	return nil
}

func (b *Backend) RecordEvent(e *core.LifecycleEvent) error {
	if e == nil {
		return errors.New("nil lifecycle event")
	}
	if b.events.Push(convert.CoreToLifecycleEvent(*e)) == 0 {
		return ErrBacklogFull
	}
	return nil
}

// Pending returns the number of queued, unwritten entries.
func (b *Backend) Pending() int {
	return b.events.Len()
}

// Flush writes everything queued so far.
func (b *Backend) Flush() error {
	if b.deps.DB == nil {
		return nil
	}

	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	start := time.Now()
	err := writeQueue(b.deps.DB, b.events)
	if err != nil {
		b.deps.Logger.Error("Error writing lifecycle events", "error", err, "queued", b.events.Len())
		return err
	}

	b.mu.Lock()
	b.lastDBWriteDuration = time.Since(start)
	b.mu.Unlock()
	return nil
}

// Recent returns up to limit entries, newest first. Queued entries are
// written first.
func (b *Backend) Recent(limit int) ([]core.LifecycleEvent, error) {
	if b.deps.DB == nil {
		return nil, errors.New("no database")
	}
	if err := b.Flush(); err != nil {
		return nil, err
	}
	return Recent(b.deps.DB, limit)
}

// GetLastDBWriteDuration returns how long the last flush took.
func (b *Backend) GetLastDBWriteDuration() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastDBWriteDuration
}

func (b *Backend) writeLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			_ = b.Flush()
			return
		case <-ticker.C:
			_ = b.Flush()
		}
	}
}

// Recent reads up to limit journal rows from db, newest first.
func Recent(db *gorm.DB, limit int) ([]core.LifecycleEvent, error) {
	var rows []model.LifecycleEvent
	query := db.Order("time desc").Order("id desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("reading lifecycle events: %w", err)
	}

	events := make([]core.LifecycleEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, convert.LifecycleEventToCore(row))
	}
	return events, nil
}

// writeQueue writes everything queued in one transaction. On failure the
// rows go back to the front of the queue.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T]) error {
	items := q.Take(0)
	if len(items) == 0 {
		return nil
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&items).Error
	})
	if err != nil {
		q.Requeue(items)
		return err
	}
	return nil
}
