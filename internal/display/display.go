// Package display renders the floating countdown label above each instance.
package display

import (
	"errors"

	"github.com/itnt/extension/pkg/core"
)

// ErrUnknownLabel is returned for operations on a label that was never
// created or was already deleted.
var ErrUnknownLabel = errors.New("label not found")

// Provider is a label rendering backend keyed by tracking id.
type Provider interface {
	Name() string
	Create(pos core.Position, text string, id core.TrackingID) error
	Update(id core.TrackingID, text string) error
	Move(id core.TrackingID, pos core.Position) error
	IsAlive(id core.TrackingID) bool
	Delete(id core.TrackingID) error
	// Clear removes every label this provider created.
	Clear()
}

// Enabled reports whether p actually renders anything.
func Enabled(p Provider) bool {
	if p == nil {
		return false
	}
	_, none := p.(None)
	return !none
}

// None is the provider used when labels are disabled or no backend is
// available. It renders nothing and never reports a label alive.
type None struct{}

var _ Provider = None{}

func (None) Name() string                                        { return "none" }
func (None) Create(core.Position, string, core.TrackingID) error { return nil }
func (None) Update(core.TrackingID, string) error                { return nil }
func (None) Move(core.TrackingID, core.Position) error           { return nil }
func (None) IsAlive(core.TrackingID) bool                        { return false }
func (None) Delete(core.TrackingID) error                        { return nil }
func (None) Clear()                                              {}
