// Package cache remembers which placed blocks are custom explosives.
package cache

import (
	"sync"

	"github.com/itnt/extension/pkg/core"
)

// PlacedCache tags placed cells with the explosive type they hold. Tags live
// only in memory, like host-side block metadata, and are lost on restart.
type PlacedCache struct {
	mu    sync.RWMutex
	cells map[core.BlockPos]string
}

func NewPlacedCache() *PlacedCache {
	return &PlacedCache{cells: make(map[core.BlockPos]string)}
}

// Tag marks cell as holding typeID.
func (c *PlacedCache) Tag(cell core.BlockPos, typeID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cells[cell] = typeID
}

// Get returns the type a cell was tagged with.
func (c *PlacedCache) Get(cell core.BlockPos) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.cells[cell]
	return id, ok
}

// Untag removes the tag and returns what it was.
func (c *PlacedCache) Untag(cell core.BlockPos) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.cells[cell]
	delete(c.cells, cell)
	return id, ok
}

func (c *PlacedCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cells)
}

// Reset clears all tags
func (c *PlacedCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cells = make(map[core.BlockPos]string)
}
