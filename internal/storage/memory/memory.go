// Package memory keeps the journal in memory and exports it as JSON on close.
package memory

import (
	"errors"
	"sync"

	"github.com/itnt/extension/internal/config"
	"github.com/itnt/extension/pkg/core"
)

// Backend stores lifecycle events in memory.
type Backend struct {
	cfg     config.MemoryConfig
	server  string
	version string

	mu             sync.RWMutex
	events         []core.LifecycleEvent
	closed         bool
	lastExportPath string
	lastExportMeta core.UploadMetadata
}

// New creates a new memory backend. server and version are written into the
// export header.
func New(cfg config.MemoryConfig, server, version string) *Backend {
	return &Backend{
		cfg:     cfg,
		server:  server,
		version: version,
	}
}

func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = false
	return nil
}

// Close exports the journal when an output directory is configured and
// anything was recorded, then resets it.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	if b.cfg.OutputDir == "" || len(b.events) == 0 {
		return nil
	}
	if err := b.exportJSON(); err != nil {
		return err
	}
	b.events = nil
	return nil
}

func (b *Backend) RecordEvent(e *core.LifecycleEvent) error {
	if e == nil {
		return errors.New("nil lifecycle event")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, *e)
	return nil
}

// Recent returns up to limit events, newest first. A non-positive limit
// returns everything.
func (b *Backend) Recent(limit int) ([]core.LifecycleEvent, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := len(b.events)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]core.LifecycleEvent, 0, n)
	for i := len(b.events) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, b.events[i])
	}
	return out, nil
}

// Len returns the number of recorded events.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.events)
}

// GetExportedFilePath returns the path of the last export, empty before the
// first one.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata describes the last export.
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportMeta
}
