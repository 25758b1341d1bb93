package core

import (
	"fmt"
	"math"
)

// Position is a point in a named world.
type Position struct {
	World string
	X     float64
	Y     float64
	Z     float64
}

// Add returns the position shifted by the given offsets.
func (p Position) Add(dx, dy, dz float64) Position {
	return Position{World: p.World, X: p.X + dx, Y: p.Y + dy, Z: p.Z + dz}
}

// Block snaps the position to the cell that contains it.
func (p Position) Block() BlockPos {
	return BlockPos{
		World: p.World,
		X:     int(math.Floor(p.X)),
		Y:     int(math.Floor(p.Y)),
		Z:     int(math.Floor(p.Z)),
	}
}

// DistanceSquared ignores the world name; callers compare worlds themselves.
func (p Position) DistanceSquared(o Position) float64 {
	dx, dy, dz := p.X-o.X, p.Y-o.Y, p.Z-o.Z
	return dx*dx + dy*dy + dz*dz
}

func (p Position) String() string {
	return fmt.Sprintf("%s(%.2f, %.2f, %.2f)", p.World, p.X, p.Y, p.Z)
}

// BlockPos addresses a single cell of the voxel grid.
type BlockPos struct {
	World string
	X     int
	Y     int
	Z     int
}

// Position returns the cell's minimum corner.
func (b BlockPos) Position() Position {
	return Position{World: b.World, X: float64(b.X), Y: float64(b.Y), Z: float64(b.Z)}
}

// Center returns the middle of the cell.
func (b BlockPos) Center() Position {
	return b.Position().Add(0.5, 0.5, 0.5)
}

// Offset returns the neighbouring cell at the given distance.
func (b BlockPos) Offset(dx, dy, dz int) BlockPos {
	return BlockPos{World: b.World, X: b.X + dx, Y: b.Y + dy, Z: b.Z + dz}
}

// DistanceSquared between two cells, by their corners.
func (b BlockPos) DistanceSquared(o BlockPos) float64 {
	dx, dy, dz := float64(b.X-o.X), float64(b.Y-o.Y), float64(b.Z-o.Z)
	return dx*dx + dy*dy + dz*dz
}

func (b BlockPos) String() string {
	return fmt.Sprintf("%s[%d, %d, %d]", b.World, b.X, b.Y, b.Z)
}
