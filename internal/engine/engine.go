// Package engine owns the countdown of every activated explosive: it spawns
// the primed object, drives the label once per tick and hands expired
// instances to the detonation resolver.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/itnt/extension/internal/detonation"
	"github.com/itnt/extension/internal/display"
	"github.com/itnt/extension/internal/scheduler"
	"github.com/itnt/extension/internal/text"
	"github.com/itnt/extension/internal/world"
	"github.com/itnt/extension/internal/zone"
	"github.com/itnt/extension/pkg/core"
)

// DefaultTickLength is the host's simulation tick.
const DefaultTickLength = 50 * time.Millisecond

var (
	ErrUnknownType  = errors.New("unknown explosive type")
	ErrDisabledZone = errors.New("explosive type disabled in this world")
	ErrExtinguished = errors.New("explosive extinguished by liquid")
)

// Igniter is whoever activated an instance. It may be nil for activations
// without an actor.
type Igniter interface {
	Name() string
	SendMessage(msg string)
	GiveItem(item core.ItemStack)
}

// Journal receives lifecycle transitions. storage.Backend satisfies it.
type Journal interface {
	RecordEvent(e *core.LifecycleEvent) error
}

// LabelSettings controls the countdown label.
type LabelSettings struct {
	Enabled bool
	// Format is colored after %name% and %time% are substituted.
	Format  string
	OffsetY float64
}

// Settings are the engine's reloadable options.
type Settings struct {
	TickLength time.Duration
	Labels     LabelSettings
}

// Dependencies are the collaborators an Engine drives. World, Scheduler and
// Zones are required.
type Dependencies struct {
	World     world.Simulation
	Scheduler scheduler.Scheduler
	Clock     scheduler.Clock
	Zones     *zone.Index
	Display   display.Provider
	Journal   Journal
	Messages  *text.Messages
	Logger    *slog.Logger
}

// Engine runs instance countdowns. All methods are safe for concurrent use.
type Engine struct {
	world    world.Simulation
	sched    scheduler.Scheduler
	clock    scheduler.Clock
	zones    *zone.Index
	resolver *detonation.Resolver
	journal  Journal
	messages *text.Messages
	logger   *slog.Logger
	registry *Registry
	metrics  *instruments

	mu       sync.RWMutex
	labels   display.Provider
	settings Settings
}

// New creates an engine. Uses the global OTel meter for metrics (no-op if
// not configured).
func New(deps Dependencies, settings Settings) (*Engine, error) {
	if deps.World == nil || deps.Scheduler == nil || deps.Zones == nil {
		return nil, errors.New("engine: world, scheduler and zones are required")
	}
	if deps.Clock == nil {
		deps.Clock = scheduler.SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Messages == nil {
		deps.Messages = text.NewMessages(nil)
	}
	if deps.Display == nil {
		deps.Display = display.None{}
	}

	e := &Engine{
		world:    deps.World,
		sched:    deps.Scheduler,
		clock:    deps.Clock,
		zones:    deps.Zones,
		resolver: detonation.NewResolver(deps.World, deps.Zones, deps.Logger),
		journal:  deps.Journal,
		messages: deps.Messages,
		logger:   deps.Logger,
		registry: NewRegistry(),
		labels:   deps.Display,
		settings: normalize(settings),
	}

	m, err := newInstruments(e)
	if err != nil {
		return nil, err
	}
	e.metrics = m
	return e, nil
}

func normalize(s Settings) Settings {
	if s.TickLength <= 0 {
		s.TickLength = DefaultTickLength
	}
	return s
}

// Reconfigure swaps the label provider and settings. Running instances keep
// their fuse but pick up the new label behavior on their next tick.
func (e *Engine) Reconfigure(settings Settings, labels display.Provider) {
	if labels == nil {
		labels = display.None{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings = normalize(settings)
	e.labels = labels
}

// Display returns the active label provider.
func (e *Engine) Display() display.Provider {
	p, _ := e.current()
	return p
}

func (e *Engine) current() (display.Provider, Settings) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.labels, e.settings
}

func labelsOn(p display.Provider, s Settings) bool {
	return s.Labels.Enabled && display.Enabled(p)
}

func (e *Engine) labelText(t *core.InstanceType, format string, seconds float64) string {
	return text.Color(text.Format(format, map[string]string{
		"name": t.DisplayName,
		"time": fmt.Sprintf("%.1f", seconds),
	}))
}

func igniterName(ig Igniter) string {
	if ig == nil {
		return ""
	}
	return ig.Name()
}

// Activate primes an explosive of type t at loc. On success the cell is
// cleared and the instance counts down from its full fuse.
func (e *Engine) Activate(loc core.BlockPos, t *core.InstanceType, igniter Igniter) (core.TrackingID, error) {
	var none core.TrackingID
	if t == nil {
		return none, ErrUnknownType
	}

	if t.DisabledIn(loc.World) {
		if igniter != nil {
			igniter.SendMessage(e.messages.Get(text.MsgDisabledInWorld, nil))
			igniter.GiveItem(core.ItemStack{TypeID: t.ID, Amount: 1})
		}
		e.reject(loc, t, igniter, "disabled-zone")
		return none, ErrDisabledZone
	}

	if e.world.Material(loc).IsLiquid() && !t.DetonatesInLiquid {
		e.world.PlaySound(loc.Position(), world.SoundExtinguish)
		e.world.SpawnParticle(loc.Center(), world.ParticleSmoke, 10, "")
		e.world.SetMaterial(loc, world.Air)
		e.reject(loc, t, igniter, "extinguished")
		return none, ErrExtinguished
	}

	prev := e.world.Material(loc)
	e.world.SetMaterial(loc, world.Air)
	objID, err := e.world.SpawnPrimed(loc.Position().Add(0.5, 0, 0.5), world.PrimedFuseTicks, igniterName(igniter))
	if err != nil {
		e.world.SetMaterial(loc, prev)
		return none, fmt.Errorf("spawning primed object: %w", err)
	}

	inst := &core.Instance{
		TrackingID:  core.NewTrackingID(),
		ObjectID:    objID,
		Origin:      loc,
		Type:        t,
		ActivatedAt: e.clock.Now(),
		FuseTicks:   t.FuseTicks(),
		Igniter:     igniterName(igniter),
	}
	e.registry.Add(inst)

	labels, settings := e.current()
	if labelsOn(labels, settings) {
		pos := loc.Position().Add(0.5, settings.Labels.OffsetY, 0.5)
		if err := labels.Create(pos, e.labelText(t, settings.Labels.Format, float64(t.FuseSeconds)), inst.TrackingID); err != nil {
			e.logger.Debug("Failed to create label", "trackingId", inst.TrackingID, "provider", labels.Name(), "error", err)
		}
	}

	e.record(inst, core.KindActivated, "", nil)
	e.logger.Debug("Activated", "trackingId", inst.TrackingID, "type", t.ID, "origin", loc, "igniter", inst.Igniter)

	id := inst.TrackingID
	if !e.sched.Every(settings.TickLength, func() bool { return e.tick(id) }) {
		e.rollback(inst, labels, prev)
		return none, fmt.Errorf("scheduling countdown for %s: %w", t.ID, scheduler.ErrStopped)
	}
	return id, nil
}

// rollback undoes an activation whose countdown could not be scheduled: the
// primed object and label go, the cell gets its material back.
func (e *Engine) rollback(inst *core.Instance, labels display.Provider, prev world.Material) {
	e.world.RemoveObject(inst.ObjectID)
	e.deleteLabel(labels, inst.TrackingID)
	e.world.SetMaterial(inst.Origin, prev)
	e.abort(inst, "scheduler-stopped")
	e.logger.Warn("Activation refused, scheduler stopped", "trackingId", inst.TrackingID, "type", inst.Type.ID)
}

// tick advances one instance. It returns false once the instance is finished
// or no longer registered.
func (e *Engine) tick(id core.TrackingID) bool {
	inst, ok := e.registry.Get(id)
	if !ok {
		return false
	}
	labels, settings := e.current()

	if e.clock.Now().Sub(inst.ActivatedAt) >= inst.Fuse(settings.TickLength) {
		e.detonate(inst, labels)
		return false
	}

	obj, ok := e.world.Object(inst.ObjectID)
	if !ok || obj.Dead {
		e.deleteLabel(labels, id)
		e.abort(inst, "object-lost")
		return false
	}

	if !labelsOn(labels, settings) {
		return true
	}
	if !labels.IsAlive(id) {
		e.world.RemoveObject(inst.ObjectID)
		e.abort(inst, "label-lost")
		return false
	}

	if err := labels.Move(id, obj.Position.Add(0, settings.Labels.OffsetY, 0)); err != nil {
		e.logger.Debug("Failed to move label", "trackingId", id, "error", err)
	}
	remaining := inst.Remaining(e.clock.Now(), settings.TickLength)
	if err := labels.Update(id, e.labelText(inst.Type, settings.Labels.Format, remaining)); err != nil {
		e.logger.Debug("Failed to update label", "trackingId", id, "error", err)
	}
	return true
}

func (e *Engine) detonate(inst *core.Instance, labels display.Provider) {
	if !e.registry.Remove(inst.TrackingID) {
		return
	}
	out := e.resolver.Resolve(inst, labels)
	e.record(inst, core.KindDetonated, "", out.Detail())
}

func (e *Engine) abort(inst *core.Instance, reason string) {
	if !e.registry.Remove(inst.TrackingID) {
		return
	}
	e.record(inst, core.KindAborted, reason, nil)
	e.logger.Debug("Aborted", "trackingId", inst.TrackingID, "reason", reason)
}

func (e *Engine) deleteLabel(labels display.Provider, id core.TrackingID) {
	if labels == nil {
		return
	}
	if err := labels.Delete(id); err != nil && !errors.Is(err, display.ErrUnknownLabel) {
		e.logger.Debug("Failed to delete label", "trackingId", id, "error", err)
	}
}

func (e *Engine) reject(loc core.BlockPos, t *core.InstanceType, igniter Igniter, reason string) {
	e.metrics.count(core.KindRejected, t.ID)
	e.journalEvent(&core.LifecycleEvent{
		TypeID:   t.ID,
		Kind:     core.KindRejected,
		Position: loc.Position(),
		Igniter:  igniterName(igniter),
		Reason:   reason,
		Time:     e.clock.Now(),
	})
}

func (e *Engine) record(inst *core.Instance, kind core.LifecycleKind, reason string, detail map[string]any) {
	e.metrics.count(kind, inst.Type.ID)
	e.journalEvent(&core.LifecycleEvent{
		TrackingID: inst.TrackingID,
		TypeID:     inst.Type.ID,
		Kind:       kind,
		Position:   inst.Origin.Position(),
		Igniter:    inst.Igniter,
		Reason:     reason,
		Time:       e.clock.Now(),
		Detail:     detail,
	})
}

func (e *Engine) journalEvent(ev *core.LifecycleEvent) {
	if e.journal == nil {
		return
	}
	if err := e.journal.RecordEvent(ev); err != nil {
		e.logger.Warn("Failed to journal lifecycle event", "kind", ev.Kind, "trackingId", ev.TrackingID, "error", err)
	}
}

// ShutdownAll silently clears every instance: world objects and labels are
// removed and suppression zones dropped, with no detonation effects. Running
// countdown jobs stop on their next tick. It returns how many instances were
// cleared.
func (e *Engine) ShutdownAll() int {
	labels, _ := e.current()
	drained := e.registry.Drain()
	for _, inst := range drained {
		e.world.RemoveObject(inst.ObjectID)
		e.deleteLabel(labels, inst.TrackingID)
		e.record(inst, core.KindCleared, "shutdown", nil)
	}
	if labels != nil {
		labels.Clear()
	}
	e.zones.Clear()
	if len(drained) > 0 {
		e.logger.Info("Cleared active explosives", "count", len(drained))
	}
	return len(drained)
}

// IsSuppressed reports whether explosion damage at pos must be vetoed.
func (e *Engine) IsSuppressed(pos core.Position) bool {
	return e.zones.Contains(pos)
}

// Active returns copies of the registered instances.
func (e *Engine) Active() []core.Instance {
	snap := e.registry.Snapshot()
	out := make([]core.Instance, len(snap))
	for i, inst := range snap {
		out[i] = *inst
	}
	return out
}

// Len returns the number of registered instances.
func (e *Engine) Len() int {
	return e.registry.Len()
}

// Close unregisters the metric callbacks. It does not clear instances.
func (e *Engine) Close() error {
	if e.metrics.registration == nil {
		return nil
	}
	return e.metrics.registration.Unregister()
}
