// Package zone keeps the short-lived areas around detonations in which
// explosion damage to creatures is vetoed.
package zone

import (
	"sync"
	"time"

	"github.com/itnt/extension/internal/scheduler"
	"github.com/itnt/extension/pkg/core"
)

const (
	// Radius of a suppression zone, in cells.
	Radius = 16
	// DefaultLifetime covers the two ticks in which the host applies
	// explosion damage.
	DefaultLifetime = 100 * time.Millisecond

	radiusSquared = Radius * Radius
)

// ID identifies one registration. Registrations of the same cell are kept
// apart so each expires on its own schedule.
type ID uint64

// Index is a concurrency-safe set of suppression zones.
type Index struct {
	mu       sync.RWMutex
	zones    map[ID]core.BlockPos
	next     ID
	sched    scheduler.Scheduler
	lifetime time.Duration
}

// NewIndex creates an index whose zones expire after lifetime.
func NewIndex(sched scheduler.Scheduler, lifetime time.Duration) *Index {
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	return &Index{
		zones:    make(map[ID]core.BlockPos),
		sched:    sched,
		lifetime: lifetime,
	}
}

// Register adds a zone centred on the given cell and schedules its removal.
func (x *Index) Register(center core.BlockPos) ID {
	x.mu.Lock()
	x.next++
	id := x.next
	x.zones[id] = center
	x.mu.Unlock()

	x.sched.After(x.lifetime, func() { x.remove(id) })
	return id
}

func (x *Index) remove(id ID) {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.zones, id)
}

// Contains reports whether pos lies strictly within Radius of any zone in
// the same world. Both points are snapped to their cells first.
func (x *Index) Contains(pos core.Position) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(x.zones) == 0 {
		return false
	}
	cell := pos.Block()
	for _, center := range x.zones {
		if center.World == cell.World && center.DistanceSquared(cell) < radiusSquared {
			return true
		}
	}
	return false
}

// Len returns the number of live zones.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.zones)
}

// Clear drops every zone. Pending expiries become no-ops.
func (x *Index) Clear() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.zones = make(map[ID]core.BlockPos)
}
