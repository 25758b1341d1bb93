package influx

import (
	"context"

	"github.com/itnt/extension/pkg/core"
)

// EventRecorder is the journal interface Tee wraps.
type EventRecorder interface {
	RecordEvent(e *core.LifecycleEvent) error
}

// Tee forwards journal entries to Next and writes a lifecycle point for each.
// Point failures are logged, never returned.
type Tee struct {
	Next    EventRecorder
	Manager *Manager
}

func (t *Tee) RecordEvent(e *core.LifecycleEvent) error {
	if e != nil && t.Manager != nil {
		if err := t.Manager.WritePoint(context.Background(), BucketLifecycle, LifecyclePoint(*e)); err != nil {
			t.Manager.Logger.Warn().Err(err).Msg("Failed to write lifecycle point")
		}
	}
	if t.Next == nil {
		return nil
	}
	return t.Next.RecordEvent(e)
}
