// Package memworld is an in-memory world.Simulation. It backs the sandbox
// command and the tests, and records every effect it is asked to produce.
package memworld

import (
	"fmt"
	"math"
	"sync"

	"github.com/itnt/extension/internal/world"
	"github.com/itnt/extension/pkg/core"
)

// native explosions leave anything at least this resistant standing
const blastLimit = 1200.0

// Explosion records one native area effect.
type Explosion struct {
	Center      core.Position
	Power       float64
	SetFire     bool
	BreakBlocks bool
}

// SoundCall records one played sound.
type SoundCall struct {
	Position core.Position
	Sound    world.Sound
}

// ParticleCall records one particle burst.
type ParticleCall struct {
	Position core.Position
	Particle world.Particle
	Count    int
	Data     world.Material
}

// Drop is an item or block drop left in the world.
type Drop struct {
	Position core.Position
	Material world.Material
	Item     *core.ItemStack
}

type object struct {
	world.Object
	label   bool
	text    string
	igniter string
}

// World holds cells and objects in maps. Cells never written read as air.
type World struct {
	mu      sync.Mutex
	blocks  map[core.BlockPos]world.Material
	objects map[core.ObjectID]*object
	nextID  uint64

	explosions []Explosion
	sounds     []SoundCall
	particles  []ParticleCall
	drops      []Drop
}

var (
	_ world.Simulation = (*World)(nil)
	_ world.LabelHost  = (*World)(nil)
)

// New creates an empty world.
func New() *World {
	return &World{
		blocks:  make(map[core.BlockPos]world.Material),
		objects: make(map[core.ObjectID]*object),
	}
}

func (w *World) newID(prefix string) core.ObjectID {
	w.nextID++
	return core.ObjectID(fmt.Sprintf("%s-%d", prefix, w.nextID))
}

func (w *World) SpawnPrimed(pos core.Position, fuseTicks int, igniter string) (core.ObjectID, error) {
	if fuseTicks <= 0 {
		return "", fmt.Errorf("invalid fuse %d", fuseTicks)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.newID("primed")
	w.objects[id] = &object{Object: world.Object{ID: id, Position: pos}, igniter: igniter}
	return id, nil
}

func (w *World) Object(id core.ObjectID) (world.Object, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	o, ok := w.objects[id]
	if !ok {
		return world.Object{}, false
	}
	return o.Object, true
}

func (w *World) RemoveObject(id core.ObjectID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.objects, id)
}

func (w *World) Material(cell core.BlockPos) world.Material {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.material(cell)
}

func (w *World) material(cell core.BlockPos) world.Material {
	if m, ok := w.blocks[cell]; ok {
		return m
	}
	return world.Air
}

func (w *World) SetMaterial(cell core.BlockPos, m world.Material) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.setMaterial(cell, m)
}

func (w *World) setMaterial(cell core.BlockPos, m world.Material) {
	if m.IsAir() {
		delete(w.blocks, cell)
		return
	}
	w.blocks[cell] = m
}

func (w *World) BreakNaturally(cell core.BlockPos) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.breakNaturally(cell)
}

func (w *World) breakNaturally(cell core.BlockPos) {
	m := w.material(cell)
	if m.IsAir() {
		return
	}
	delete(w.blocks, cell)
	if !m.IsLiquid() {
		w.drops = append(w.drops, Drop{Position: cell.Center(), Material: m})
	}
}

func (w *World) DropItem(pos core.Position, item core.ItemStack) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.drops = append(w.drops, Drop{Position: pos, Item: &item})
}

// Explode breaks every non-liquid cell in the sphere whose resistance is below
// the native blast limit, unless the center itself is submerged.
func (w *World) Explode(center core.Position, power float64, setFire, breakBlocks bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.explosions = append(w.explosions, Explosion{Center: center, Power: power, SetFire: setFire, BreakBlocks: breakBlocks})

	origin := center.Block()
	if !breakBlocks || w.material(origin).IsLiquid() {
		return
	}
	r := int(math.Ceil(power))
	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			for dz := -r; dz <= r; dz++ {
				if float64(dx*dx+dy*dy+dz*dz) > power*power {
					continue
				}
				cell := origin.Offset(dx, dy, dz)
				m := w.material(cell)
				if m.IsAir() || m.IsLiquid() || m.Resistance() >= blastLimit {
					continue
				}
				w.breakNaturally(cell)
			}
		}
	}
}

func (w *World) PlaySound(pos core.Position, s world.Sound) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sounds = append(w.sounds, SoundCall{Position: pos, Sound: s})
}

func (w *World) SpawnParticle(pos core.Position, p world.Particle, count int, data world.Material) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.particles = append(w.particles, ParticleCall{Position: pos, Particle: p, Count: count, Data: data})
}

func (w *World) SpawnLabel(pos core.Position, text string) (core.ObjectID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.newID("label")
	w.objects[id] = &object{Object: world.Object{ID: id, Position: pos}, label: true, text: text}
	return id, nil
}

func (w *World) SetLabelText(id core.ObjectID, text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	o, ok := w.objects[id]
	if !ok || !o.label {
		return fmt.Errorf("label %s not found", id)
	}
	o.text = text
	return nil
}

func (w *World) Teleport(id core.ObjectID, pos core.Position) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	o, ok := w.objects[id]
	if !ok {
		return fmt.Errorf("object %s not found", id)
	}
	o.Position = pos
	return nil
}
