package memworld

import (
	"slices"

	"github.com/itnt/extension/internal/world"
	"github.com/itnt/extension/pkg/core"
)

// Fill sets every cell in the box spanned by from and to (inclusive).
func (w *World) Fill(from, to core.BlockPos, m world.Material) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for x := min(from.X, to.X); x <= max(from.X, to.X); x++ {
		for y := min(from.Y, to.Y); y <= max(from.Y, to.Y); y++ {
			for z := min(from.Z, to.Z); z <= max(from.Z, to.Z); z++ {
				w.setMaterial(core.BlockPos{World: from.World, X: x, Y: y, Z: z}, m)
			}
		}
	}
}

// Kill marks an object dead without removing it, like a host-side despawn
// that has not been collected yet.
func (w *World) Kill(id core.ObjectID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if o, ok := w.objects[id]; ok {
		o.Dead = true
	}
}

// Move relocates an object, as if pushed by the host's physics.
func (w *World) Move(id core.ObjectID, pos core.Position) {
	_ = w.Teleport(id, pos)
}

// LabelText returns the current text of a label object.
func (w *World) LabelText(id core.ObjectID) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	o, ok := w.objects[id]
	if !ok || !o.label {
		return "", false
	}
	return o.text, true
}

// ObjectCount counts live objects, labels included.
func (w *World) ObjectCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.objects)
}

// Objects lists the ids of all objects, sorted.
func (w *World) Objects() []core.ObjectID {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]core.ObjectID, 0, len(w.objects))
	for id := range w.objects {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (w *World) Explosions() []Explosion {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.explosions)
}

func (w *World) Sounds() []SoundCall {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.sounds)
}

func (w *World) Particles() []ParticleCall {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.particles)
}

func (w *World) Drops() []Drop {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.drops)
}
