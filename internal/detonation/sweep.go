package detonation

import (
	"math"

	"github.com/itnt/extension/internal/world"
	"github.com/itnt/extension/pkg/core"
)

const (
	// FragileResistance is the blast resistance below which the liquid sweep
	// breaks a cell.
	FragileResistance = 1200.0
	// HardenedResistance is the resistance above which a cell is never
	// touched by the liquid sweep.
	HardenedResistance = 6000.0
)

var hardened = map[world.Material]bool{
	world.Obsidian:       true,
	world.CryingObsidian: true,
	world.AncientDebris:  true,
}

// IsHardened reports whether m is only destroyed by the hardened sweep.
func IsHardened(m world.Material) bool {
	return hardened[m]
}

// Terrain is the part of the world a sweep mutates.
type Terrain interface {
	Material(cell core.BlockPos) world.Material
	SetMaterial(cell core.BlockPos, m world.Material)
	BreakNaturally(cell core.BlockPos)
	SpawnParticle(pos core.Position, p world.Particle, count int, data world.Material)
}

// sphere calls fn for every cell within power of center, scanning the
// bounding cube of radius ceil(power).
func sphere(center core.BlockPos, power float64, fn func(cell core.BlockPos)) {
	r := int(math.Ceil(power))
	limit := power * power
	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			for dz := -r; dz <= r; dz++ {
				if float64(dx*dx+dy*dy+dz*dz) > limit {
					continue
				}
				fn(center.Offset(dx, dy, dz))
			}
		}
	}
}

// SweepFragile breaks, with drops, every low-resistance cell in the sphere.
// Air, liquids and anything above HardenedResistance are skipped. It stands
// in for the terrain damage the host's native explosion skips underwater.
func SweepFragile(t Terrain, center core.BlockPos, power float64) int {
	broken := 0
	sphere(center, power, func(cell core.BlockPos) {
		m := t.Material(cell)
		if m.IsAir() || m.IsLiquid() || m.Resistance() > HardenedResistance {
			return
		}
		if m.Resistance() < FragileResistance {
			t.BreakNaturally(cell)
			broken++
		}
	})
	return broken
}

// SweepHardened clears every hardened cell in the sphere without drops and
// shows a crack burst for each.
func SweepHardened(t Terrain, center core.BlockPos, power float64) int {
	cleared := 0
	sphere(center, power, func(cell core.BlockPos) {
		m := t.Material(cell)
		if !IsHardened(m) {
			return
		}
		t.SetMaterial(cell, world.Air)
		t.SpawnParticle(cell.Center(), world.ParticleBlockCrack, 30, m)
		cleared++
	})
	return cleared
}
