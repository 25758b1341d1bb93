package engine

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/itnt/extension/internal/display"
	"github.com/itnt/extension/internal/scheduler"
	"github.com/itnt/extension/internal/text"
	"github.com/itnt/extension/internal/world"
	"github.com/itnt/extension/internal/world/memworld"
	"github.com/itnt/extension/internal/wsconn/wstest"
	"github.com/itnt/extension/internal/zone"
	"github.com/itnt/extension/pkg/core"
	"github.com/itnt/extension/pkg/streaming"
)

var (
	start = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cell  = core.BlockPos{World: "world", X: 10, Y: 64, Z: -4}
)

type fakeIgniter struct {
	mu       sync.Mutex
	name     string
	messages []string
	items    []core.ItemStack
}

func (f *fakeIgniter) Name() string { return f.name }

func (f *fakeIgniter) SendMessage(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
}

func (f *fakeIgniter) GiveItem(item core.ItemStack) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, item)
}

type memJournal struct {
	mu     sync.Mutex
	events []core.LifecycleEvent
}

func (j *memJournal) RecordEvent(e *core.LifecycleEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, *e)
	return nil
}

func (j *memJournal) kinds() []core.LifecycleKind {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]core.LifecycleKind, len(j.events))
	for i, e := range j.events {
		out[i] = e.Kind
	}
	return out
}

type harness struct {
	world   *memworld.World
	sched   *scheduler.Manual
	zones   *zone.Index
	labels  *display.Entity
	journal *memJournal
	engine  *Engine
}

func labelSettings() Settings {
	return Settings{
		TickLength: DefaultTickLength,
		Labels:     LabelSettings{Enabled: true, Format: "%name% %time%s", OffsetY: 0.8},
	}
}

func newHarness(t *testing.T, settings Settings) *harness {
	t.Helper()
	h := &harness{
		world:   memworld.New(),
		sched:   scheduler.NewManual(start),
		journal: &memJournal{},
	}
	h.zones = zone.NewIndex(h.sched, zone.DefaultLifetime)
	h.labels = display.NewEntity(h.world)
	e, err := New(Dependencies{
		World:     h.world,
		Scheduler: h.sched,
		Clock:     h.sched,
		Zones:     h.zones,
		Display:   h.labels,
		Journal:   h.journal,
		Messages:  text.NewMessages(map[string]string{text.MsgPrefix: ""}),
	}, settings)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	h.engine = e
	return h
}

func (h *harness) label(t *testing.T) core.ObjectID {
	t.Helper()
	for _, id := range h.world.Objects() {
		if strings.HasPrefix(string(id), "label-") {
			return id
		}
	}
	t.Fatal("no label object")
	return ""
}

func basicType() *core.InstanceType {
	return &core.InstanceType{
		ID:               "basic",
		DisplayName:      "Basic",
		FuseSeconds:      4,
		Power:            3,
		DestroysTerrain:  true,
		DamagesCreatures: true,
	}
}

func TestActivate_SpawnsAndLabels(t *testing.T) {
	h := newHarness(t, labelSettings())
	h.world.SetMaterial(cell, world.TNT)
	ig := &fakeIgniter{name: "alice"}

	id, err := h.engine.Activate(cell, basicType(), ig)
	require.NoError(t, err)
	assert.False(t, id.IsZero())

	assert.Equal(t, world.Air, h.world.Material(cell))
	assert.Equal(t, 1, h.engine.Len())

	active := h.engine.Active()
	require.Len(t, active, 1)
	assert.Equal(t, cell, active[0].Origin)
	assert.Equal(t, int64(80), active[0].FuseTicks)
	assert.Equal(t, "alice", active[0].Igniter)

	obj, ok := h.world.Object(active[0].ObjectID)
	require.True(t, ok)
	assert.Equal(t, cell.Position().Add(0.5, 0, 0.5), obj.Position)

	labelObj, ok := h.world.Object(h.label(t))
	require.True(t, ok)
	assert.InDelta(t, cell.Position().Y+0.8, labelObj.Position.Y, 1e-9)
	txt, _ := h.world.LabelText(h.label(t))
	assert.Equal(t, "Basic 4.0s", txt)

	assert.Equal(t, []core.LifecycleKind{core.KindActivated}, h.journal.kinds())
}

func TestCountdown_UpdatesLabelAndDetonatesOnce(t *testing.T) {
	h := newHarness(t, labelSettings())
	_, err := h.engine.Activate(cell, basicType(), nil)
	require.NoError(t, err)
	label := h.label(t)

	h.sched.Advance(time.Second)
	txt, _ := h.world.LabelText(label)
	assert.Equal(t, "Basic 3.0s", txt)

	h.sched.Advance(2*time.Second + 900*time.Millisecond)
	txt, _ = h.world.LabelText(label)
	assert.Equal(t, "Basic 0.1s", txt)
	assert.Empty(t, h.world.Explosions())

	h.sched.Advance(100 * time.Millisecond)
	require.Len(t, h.world.Explosions(), 1)
	assert.Equal(t, cell.Center(), h.world.Explosions()[0].Center)
	assert.Equal(t, 0, h.engine.Len())
	assert.Equal(t, 0, h.world.ObjectCount())
	assert.Equal(t, 0, h.sched.Pending(), "countdown job stopped")

	h.sched.Advance(10 * time.Second)
	assert.Len(t, h.world.Explosions(), 1)
	assert.Equal(t, []core.LifecycleKind{core.KindActivated, core.KindDetonated}, h.journal.kinds())
}

func TestCountdown_LabelFollowsObject(t *testing.T) {
	h := newHarness(t, labelSettings())
	_, err := h.engine.Activate(cell, basicType(), nil)
	require.NoError(t, err)
	obj := h.engine.Active()[0].ObjectID

	moved := core.Position{World: "world", X: 20, Y: 70, Z: 1}
	h.world.Move(obj, moved)
	h.sched.Advance(DefaultTickLength)

	labelObj, ok := h.world.Object(h.label(t))
	require.True(t, ok)
	assert.Equal(t, moved.Add(0, 0.8, 0), labelObj.Position)
}

func TestActivate_DisabledZone(t *testing.T) {
	h := newHarness(t, labelSettings())
	typ := basicType()
	typ.DisabledZones = []string{"world"}
	h.world.SetMaterial(cell, world.TNT)
	ig := &fakeIgniter{name: "bob"}

	_, err := h.engine.Activate(cell, typ, ig)
	require.ErrorIs(t, err, ErrDisabledZone)

	assert.Equal(t, 0, h.engine.Len())
	assert.Equal(t, 0, h.world.ObjectCount())
	assert.Equal(t, world.TNT, h.world.Material(cell), "nothing touched")
	require.Len(t, ig.messages, 1)
	assert.Contains(t, ig.messages[0], "disabled")
	assert.Equal(t, []core.ItemStack{{TypeID: "basic", Amount: 1}}, ig.items)

	require.Len(t, h.journal.events, 1)
	assert.Equal(t, core.KindRejected, h.journal.events[0].Kind)
	assert.True(t, h.journal.events[0].TrackingID.IsZero())
	assert.Equal(t, "disabled-zone", h.journal.events[0].Reason)
}

func TestActivate_DisabledZoneWithoutIgniter(t *testing.T) {
	h := newHarness(t, labelSettings())
	typ := basicType()
	typ.DisabledZones = []string{"world"}

	_, err := h.engine.Activate(cell, typ, nil)
	assert.ErrorIs(t, err, ErrDisabledZone)
}

func TestActivate_ExtinguishedInLiquid(t *testing.T) {
	h := newHarness(t, labelSettings())
	h.world.SetMaterial(cell, world.Water)

	_, err := h.engine.Activate(cell, basicType(), nil)
	require.ErrorIs(t, err, ErrExtinguished)

	assert.Equal(t, world.Air, h.world.Material(cell))
	assert.Equal(t, 0, h.world.ObjectCount())
	require.Len(t, h.world.Sounds(), 1)
	assert.Equal(t, world.SoundExtinguish, h.world.Sounds()[0].Sound)
	require.Len(t, h.world.Particles(), 1)
	assert.Equal(t, world.ParticleSmoke, h.world.Particles()[0].Particle)
	assert.Equal(t, 10, h.world.Particles()[0].Count)
	assert.Equal(t, cell.Center(), h.world.Particles()[0].Position)
}

func TestActivate_LiquidCapableType(t *testing.T) {
	h := newHarness(t, labelSettings())
	h.world.SetMaterial(cell, world.Water)
	typ := basicType()
	typ.DetonatesInLiquid = true

	_, err := h.engine.Activate(cell, typ, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, h.engine.Len())
}

func TestActivate_UnknownType(t *testing.T) {
	h := newHarness(t, labelSettings())
	_, err := h.engine.Activate(cell, nil, nil)
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestCountdown_ObjectLostAborts(t *testing.T) {
	h := newHarness(t, labelSettings())
	_, err := h.engine.Activate(cell, basicType(), nil)
	require.NoError(t, err)
	h.sched.Advance(0)

	h.world.Kill(h.engine.Active()[0].ObjectID)
	h.sched.Advance(DefaultTickLength)

	assert.Equal(t, 0, h.engine.Len())
	assert.Empty(t, h.world.Explosions())
	for _, id := range h.world.Objects() {
		assert.False(t, strings.HasPrefix(string(id), "label-"), "label deleted")
	}
	assert.Equal(t, core.KindAborted, h.journal.kinds()[1])
	assert.Equal(t, "object-lost", h.journal.events[1].Reason)

	h.sched.Advance(10 * time.Second)
	assert.Empty(t, h.world.Explosions())
}

func TestCountdown_LabelLostAborts(t *testing.T) {
	h := newHarness(t, labelSettings())
	_, err := h.engine.Activate(cell, basicType(), nil)
	require.NoError(t, err)

	h.world.RemoveObject(h.label(t))
	h.sched.Advance(DefaultTickLength)

	assert.Equal(t, 0, h.engine.Len())
	assert.Equal(t, 0, h.world.ObjectCount(), "primed object removed with the label")
	assert.Empty(t, h.world.Explosions())
	assert.Equal(t, "label-lost", h.journal.events[len(h.journal.events)-1].Reason)
}

func TestCountdown_StreamReconnectKeepsCountdown(t *testing.T) {
	srv := wstest.NewTestServer()
	defer srv.Close()

	stream := display.NewStream(display.StreamConfig{URL: srv.URL(), Backoff: 10 * time.Millisecond}, nil)
	require.NoError(t, stream.Connect("test"))
	defer stream.Close()

	h := newHarness(t, labelSettings())
	h.engine.Reconfigure(labelSettings(), stream)
	id, err := h.engine.Activate(cell, basicType(), nil)
	require.NoError(t, err)
	h.sched.Advance(time.Second)

	srv.Drop()
	h.sched.Advance(DefaultTickLength)
	assert.Equal(t, 1, h.engine.Len(), "renderer outage does not abort")
	assert.True(t, stream.IsAlive(id))

	creates := func() int {
		n := 0
		for _, env := range srv.Received() {
			if env.Type == streaming.TypeLabelCreate {
				n++
			}
		}
		return n
	}
	require.Eventually(t, func() bool { return srv.Peers() == 2 && creates() == 2 }, 2*time.Second, 5*time.Millisecond,
		"label recreated on the new connection")

	h.sched.Advance(3 * time.Second)
	assert.Len(t, h.world.Explosions(), 1)
	assert.Equal(t, 0, h.engine.Len())
	assert.Equal(t, 0, h.world.ObjectCount())
}

func TestActivate_SchedulerStoppedRollsBack(t *testing.T) {
	h := newHarness(t, labelSettings())
	h.world.SetMaterial(cell, world.TNT)
	h.sched.Stop()

	id, err := h.engine.Activate(cell, basicType(), nil)
	require.ErrorIs(t, err, scheduler.ErrStopped)
	assert.True(t, id.IsZero())

	assert.Equal(t, 0, h.engine.Len())
	assert.Equal(t, 0, h.world.ObjectCount(), "primed object and label removed")
	assert.Equal(t, world.TNT, h.world.Material(cell), "cell restored")
	assert.Equal(t, []core.LifecycleKind{core.KindActivated, core.KindAborted}, h.journal.kinds())
	assert.Equal(t, "scheduler-stopped", h.journal.events[1].Reason)

	h.sched.Advance(time.Minute)
	assert.Empty(t, h.world.Explosions())
}

func TestCountdown_LabelsDisabledStillDetonates(t *testing.T) {
	for name, settings := range map[string]Settings{
		"setting off": {Labels: LabelSettings{Enabled: false}},
		"none":        labelSettings(),
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, settings)
			if name == "none" {
				h.engine.Reconfigure(settings, display.None{})
			}
			_, err := h.engine.Activate(cell, basicType(), nil)
			require.NoError(t, err)
			assert.Equal(t, 1, h.world.ObjectCount(), "no label spawned")

			h.sched.Advance(4 * time.Second)
			assert.Len(t, h.world.Explosions(), 1)
		})
	}
}

func TestReconfigure_MidCountdown(t *testing.T) {
	h := newHarness(t, labelSettings())
	_, err := h.engine.Activate(cell, basicType(), nil)
	require.NoError(t, err)
	h.sched.Advance(time.Second)

	h.engine.Reconfigure(Settings{}, nil)
	assert.Equal(t, "none", h.engine.Display().Name())

	h.sched.Advance(3 * time.Second)
	assert.Len(t, h.world.Explosions(), 1)
}

func TestShutdownAll_IsSilent(t *testing.T) {
	h := newHarness(t, labelSettings())
	for i := 0; i < 3; i++ {
		_, err := h.engine.Activate(cell.Offset(i*5, 0, 0), basicType(), nil)
		require.NoError(t, err)
	}
	h.zones.Register(cell)
	h.sched.Advance(time.Second)

	assert.Equal(t, 3, h.engine.ShutdownAll())

	assert.Equal(t, 0, h.engine.Len())
	assert.Equal(t, 0, h.world.ObjectCount())
	assert.Equal(t, 0, h.zones.Len())
	assert.Empty(t, h.world.Explosions())
	assert.Empty(t, h.world.Sounds())

	h.sched.Advance(10 * time.Second)
	assert.Empty(t, h.world.Explosions())
	assert.Equal(t, 0, h.sched.Pending())
	assert.Equal(t, 0, h.engine.ShutdownAll())
}

func TestIsSuppressed_AfterHarmlessDetonation(t *testing.T) {
	h := newHarness(t, labelSettings())
	typ := basicType()
	typ.DamagesCreatures = false
	_, err := h.engine.Activate(cell, typ, nil)
	require.NoError(t, err)

	h.sched.Advance(4 * time.Second)
	require.Len(t, h.world.Explosions(), 1)
	assert.True(t, h.engine.IsSuppressed(cell.Position().Add(3, 0, 3)))
	assert.False(t, h.engine.IsSuppressed(core.Position{World: "nether", X: 10, Y: 64, Z: -4}))

	h.sched.Advance(zone.DefaultLifetime)
	assert.False(t, h.engine.IsSuppressed(cell.Position()))
}

func TestDetonate_IsIdempotent(t *testing.T) {
	h := newHarness(t, labelSettings())
	id, err := h.engine.Activate(cell, basicType(), nil)
	require.NoError(t, err)
	inst, ok := h.engine.registry.Get(id)
	require.True(t, ok)

	h.engine.detonate(inst, h.labels)
	h.engine.detonate(inst, h.labels)
	h.engine.abort(inst, "late")

	assert.Len(t, h.world.Explosions(), 1)
	assert.Equal(t, []core.LifecycleKind{core.KindActivated, core.KindDetonated}, h.journal.kinds())
}

func TestEngine_ConcurrentCountdowns(t *testing.T) {
	defer goleak.VerifyNone(t)

	w := memworld.New()
	ticker := scheduler.NewTicker(nil)
	zones := zone.NewIndex(ticker, zone.DefaultLifetime)
	e, err := New(Dependencies{
		World:     w,
		Scheduler: ticker,
		Zones:     zones,
		Display:   display.NewEntity(w),
	}, Settings{
		TickLength: time.Millisecond,
		Labels:     LabelSettings{Enabled: true, Format: "%time%"},
	})
	require.NoError(t, err)
	defer e.Close()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := e.Activate(cell.Offset(i*10, 0, 0), &core.InstanceType{ID: "quick", FuseSeconds: 1, Power: 1, DamagesCreatures: true}, nil)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	require.Eventually(t, func() bool { return e.Len() == 0 }, 5*time.Second, 5*time.Millisecond)
	ticker.Stop()
	assert.Len(t, w.Explosions(), n)
	assert.Equal(t, 0, w.ObjectCount())
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a := &core.Instance{TrackingID: core.NewTrackingID()}
	b := &core.Instance{TrackingID: core.NewTrackingID()}
	r.Add(a)
	r.Add(b)

	assert.True(t, r.Contains(a.TrackingID))
	assert.Len(t, r.Snapshot(), 2)
	assert.True(t, r.Remove(a.TrackingID))
	assert.False(t, r.Remove(a.TrackingID))
	assert.Equal(t, 1, r.Len())

	drained := r.Drain()
	assert.Equal(t, []*core.Instance{b}, drained)
	assert.Equal(t, 0, r.Len())
}
