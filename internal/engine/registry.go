package engine

import (
	"sync"

	"github.com/itnt/extension/pkg/core"
)

// Registry holds the instances that are currently counting down.
type Registry struct {
	mu        sync.RWMutex
	instances map[core.TrackingID]*core.Instance
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{instances: make(map[core.TrackingID]*core.Instance)}
}

// Add registers inst under its tracking id.
func (r *Registry) Add(inst *core.Instance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances[inst.TrackingID] = inst
}

// Get returns the live instance for id.
func (r *Registry) Get(id core.TrackingID) (*core.Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[id]
	return inst, ok
}

// Contains reports whether id is still live.
func (r *Registry) Contains(id core.TrackingID) bool {
	_, ok := r.Get(id)
	return ok
}

// Remove deletes id and reports whether this call was the one that removed
// it. Only the caller that gets true may finish the instance.
func (r *Registry) Remove(id core.TrackingID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.instances[id]; !ok {
		return false
	}
	delete(r.instances, id)
	return true
}

// Snapshot returns the current instances. The slice is safe to iterate while
// the registry changes.
func (r *Registry) Snapshot() []*core.Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*core.Instance, 0, len(r.instances))
	for _, inst := range r.instances {
		out = append(out, inst)
	}
	return out
}

// Drain empties the registry and returns what it held.
func (r *Registry) Drain() []*core.Instance {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*core.Instance, 0, len(r.instances))
	for _, inst := range r.instances {
		out = append(out, inst)
	}
	r.instances = make(map[core.TrackingID]*core.Instance)
	return out
}

// Len returns the number of live instances.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.instances)
}
