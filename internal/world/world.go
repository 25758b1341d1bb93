// Package world describes the voxel-world primitives the extension drives.
// The host game implements Simulation; memworld provides an in-memory one.
package world

import "github.com/itnt/extension/pkg/core"

// Sound is a transient audio cue played at a position.
type Sound string

const (
	SoundExplode    Sound = "entity.generic.explode"
	SoundExtinguish Sound = "block.fire.extinguish"
)

// Particle is a transient visual effect.
type Particle string

const (
	ParticleExplosionHuge Particle = "explosion_emitter"
	ParticleSmoke         Particle = "smoke"
	ParticleBlockCrack    Particle = "block"
)

// PrimedFuseTicks is the native fuse given to spawned objects so that the
// host never detonates them on its own.
const PrimedFuseTicks = 999999

// Object is a snapshot of a spawned world object.
type Object struct {
	ID       core.ObjectID
	Position core.Position
	Dead     bool
}

// Simulation is the set of world operations the lifecycle engine needs.
// Implementations must be safe for concurrent use.
type Simulation interface {
	SpawnPrimed(pos core.Position, fuseTicks int, igniter string) (core.ObjectID, error)
	Object(id core.ObjectID) (Object, bool)
	RemoveObject(id core.ObjectID)

	Material(cell core.BlockPos) Material
	SetMaterial(cell core.BlockPos, m Material)
	// BreakNaturally clears the cell and drops whatever it yields.
	BreakNaturally(cell core.BlockPos)
	DropItem(pos core.Position, item core.ItemStack)

	// Explode triggers the host's native area effect. Creature damage is
	// always applied by the host; suppression happens in its damage hook.
	Explode(center core.Position, power float64, setFire, breakBlocks bool)
	PlaySound(pos core.Position, s Sound)
	SpawnParticle(pos core.Position, p Particle, count int, data Material)
}

// LabelHost is implemented by simulations that can spawn floating text
// objects natively.
type LabelHost interface {
	SpawnLabel(pos core.Position, text string) (core.ObjectID, error)
	SetLabelText(id core.ObjectID, text string) error
	Teleport(id core.ObjectID, pos core.Position) error
}
