package core

import (
	"strings"
	"time"
)

// TicksPerSecond is the simulation rate fuse lengths are expressed in.
const TicksPerSecond = 20

// InstanceType is the immutable definition of a primed explosive variant.
type InstanceType struct {
	ID          string
	DisplayName string
	Lore        []string
	Aliases     []string

	FuseSeconds int
	AutoIgnite  bool
	Power       float64

	DestroysTerrain   bool
	DamagesCreatures  bool
	DetonatesInLiquid bool
	DestroysHardened  bool

	DisabledZones []string
}

// DisabledIn reports whether activation is forbidden in the named world.
// World names are compared exactly, as the host reports them.
func (t *InstanceType) DisabledIn(world string) bool {
	for _, z := range t.DisabledZones {
		if z == world {
			return true
		}
	}
	return false
}

// FuseTicks converts the configured fuse to simulation ticks.
func (t *InstanceType) FuseTicks() int64 {
	return int64(t.FuseSeconds) * TicksPerSecond
}

// Matches reports whether key names this type by id or alias, ignoring case.
func (t *InstanceType) Matches(key string) bool {
	if strings.EqualFold(t.ID, key) {
		return true
	}
	for _, a := range t.Aliases {
		if strings.EqualFold(a, key) {
			return true
		}
	}
	return false
}

// Instance is one activated explosive counting down in the world.
type Instance struct {
	TrackingID  TrackingID
	ObjectID    ObjectID
	Origin      BlockPos
	Type        *InstanceType
	ActivatedAt time.Time
	FuseTicks   int64
	Igniter     string
}

// Fuse is the total countdown length for the given tick length.
func (i *Instance) Fuse(tick time.Duration) time.Duration {
	return time.Duration(i.FuseTicks) * tick
}

// Remaining returns the seconds left on the fuse at now, never negative.
func (i *Instance) Remaining(now time.Time, tick time.Duration) float64 {
	left := i.Fuse(tick) - now.Sub(i.ActivatedAt)
	if left < 0 {
		return 0
	}
	return left.Seconds()
}

// ItemStack is a stack of custom explosive items as handed to a player.
type ItemStack struct {
	TypeID string
	Amount int
}
