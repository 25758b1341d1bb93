package core

import "time"

// LifecycleKind names a state transition of an instance.
type LifecycleKind string

const (
	KindActivated LifecycleKind = "activated"
	KindDetonated LifecycleKind = "detonated"
	KindAborted   LifecycleKind = "aborted"
	KindRejected  LifecycleKind = "rejected"
	KindCleared   LifecycleKind = "cleared"
)

// LifecycleEvent is one journal entry describing what happened to an instance.
// Rejected activations carry a zero TrackingID.
type LifecycleEvent struct {
	TrackingID TrackingID
	TypeID     string
	Kind       LifecycleKind
	Position   Position
	Igniter    string
	Reason     string
	Time       time.Time
	Detail     map[string]any
}
