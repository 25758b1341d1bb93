package display

import (
	"fmt"
	"sync"

	"github.com/itnt/extension/internal/world"
	"github.com/itnt/extension/pkg/core"
)

// EntityHost is a world that can spawn and track native label objects.
type EntityHost interface {
	world.LabelHost
	Object(id core.ObjectID) (world.Object, bool)
	RemoveObject(id core.ObjectID)
}

// Entity renders labels as invisible marker objects spawned in the world.
type Entity struct {
	host EntityHost

	mu     sync.RWMutex
	labels map[core.TrackingID]core.ObjectID
}

var _ Provider = (*Entity)(nil)

// NewEntity creates a provider backed by host.
func NewEntity(host EntityHost) *Entity {
	return &Entity{host: host, labels: make(map[core.TrackingID]core.ObjectID)}
}

func (e *Entity) Name() string { return "entity" }

func (e *Entity) lookup(id core.TrackingID) (core.ObjectID, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	obj, ok := e.labels[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownLabel, id)
	}
	return obj, nil
}

func (e *Entity) Create(pos core.Position, text string, id core.TrackingID) error {
	obj, err := e.host.SpawnLabel(pos, text)
	if err != nil {
		return fmt.Errorf("spawning label: %w", err)
	}
	e.mu.Lock()
	old, existed := e.labels[id]
	e.labels[id] = obj
	e.mu.Unlock()

	if existed {
		e.host.RemoveObject(old)
	}
	return nil
}

func (e *Entity) Update(id core.TrackingID, text string) error {
	obj, err := e.lookup(id)
	if err != nil {
		return err
	}
	return e.host.SetLabelText(obj, text)
}

func (e *Entity) Move(id core.TrackingID, pos core.Position) error {
	obj, err := e.lookup(id)
	if err != nil {
		return err
	}
	return e.host.Teleport(obj, pos)
}

func (e *Entity) IsAlive(id core.TrackingID) bool {
	obj, err := e.lookup(id)
	if err != nil {
		return false
	}
	o, ok := e.host.Object(obj)
	return ok && !o.Dead
}

func (e *Entity) Delete(id core.TrackingID) error {
	e.mu.Lock()
	obj, ok := e.labels[id]
	delete(e.labels, id)
	e.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLabel, id)
	}
	e.host.RemoveObject(obj)
	return nil
}

func (e *Entity) Clear() {
	e.mu.Lock()
	labels := e.labels
	e.labels = make(map[core.TrackingID]core.ObjectID)
	e.mu.Unlock()

	for _, obj := range labels {
		e.host.RemoveObject(obj)
	}
}
