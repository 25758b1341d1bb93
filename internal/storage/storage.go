// Package storage defines the lifecycle journal backends.
package storage

import "github.com/itnt/extension/pkg/core"

// Backend is the interface all journal implementations must satisfy.
// RecordEvent is called from the engine and must not block on IO.
type Backend interface {
	Init() error
	Close() error

	RecordEvent(e *core.LifecycleEvent) error
}

// Uploadable is an optional interface for backends that produce a file
// suitable for upload after Close.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}

// Querier is an optional interface for backends that can read the journal
// back, newest first.
type Querier interface {
	Recent(limit int) ([]core.LifecycleEvent, error)
}
