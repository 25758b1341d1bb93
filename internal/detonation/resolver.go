// Package detonation turns an expired instance into world effects.
package detonation

import (
	"errors"
	"log/slog"

	"github.com/itnt/extension/internal/display"
	"github.com/itnt/extension/internal/world"
	"github.com/itnt/extension/internal/zone"
	"github.com/itnt/extension/pkg/core"
)

// Outcome summarises what a detonation did.
type Outcome struct {
	InLiquid       bool
	NativeBreaks   bool
	ManualSweep    bool
	Broken         int
	HardenedBroken int
	Suppressed     bool
}

// Detail flattens the outcome for the journal.
func (o Outcome) Detail() map[string]any {
	return map[string]any{
		"inLiquid":       o.InLiquid,
		"nativeBreaks":   o.NativeBreaks,
		"manualSweep":    o.ManualSweep,
		"broken":         o.Broken,
		"hardenedBroken": o.HardenedBroken,
		"suppressed":     o.Suppressed,
	}
}

// Resolver applies detonations. Callers guarantee each instance is resolved
// at most once by removing it from the registry first.
type Resolver struct {
	world  world.Simulation
	zones  *zone.Index
	logger *slog.Logger
}

// NewResolver creates a resolver acting on w and registering suppression
// zones in zones.
func NewResolver(w world.Simulation, zones *zone.Index, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{world: w, zones: zones, logger: logger}
}

// Resolve detonates inst. It always issues exactly one native explosion.
func (r *Resolver) Resolve(inst *core.Instance, labels display.Provider) Outcome {
	t := inst.Type
	origin := inst.Origin
	var out Outcome

	r.world.RemoveObject(inst.ObjectID)
	if labels != nil {
		if err := labels.Delete(inst.TrackingID); err != nil && !errors.Is(err, display.ErrUnknownLabel) {
			r.logger.Debug("Failed to delete label", "trackingId", inst.TrackingID, "error", err)
		}
	}

	r.world.PlaySound(origin.Position(), world.SoundExplode)
	r.world.SpawnParticle(origin.Center(), world.ParticleExplosionHuge, 1, "")

	if !t.DamagesCreatures {
		r.zones.Register(origin)
		out.Suppressed = true
	}

	out.NativeBreaks = t.DestroysTerrain
	out.InLiquid = r.world.Material(origin).IsLiquid()
	if out.InLiquid && t.DetonatesInLiquid && t.DestroysTerrain {
		out.ManualSweep = true
		out.NativeBreaks = false
	}

	r.world.Explode(origin.Center(), t.Power, false, out.NativeBreaks)

	if out.ManualSweep {
		out.Broken = SweepFragile(r.world, origin, t.Power)
	}
	if t.DestroysHardened {
		out.HardenedBroken = SweepHardened(r.world, origin, t.Power)
	}

	r.logger.Debug("Detonated",
		"trackingId", inst.TrackingID,
		"type", t.ID,
		"origin", origin,
		"manualSweep", out.ManualSweep,
		"broken", out.Broken,
		"hardenedBroken", out.HardenedBroken)
	return out
}
