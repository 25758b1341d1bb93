package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstanceType_DisabledIn(t *testing.T) {
	typ := &InstanceType{ID: "nuke", DisabledZones: []string{"spawn", "lobby"}}

	assert.True(t, typ.DisabledIn("spawn"))
	assert.False(t, typ.DisabledIn("world"))
	assert.False(t, typ.DisabledIn("Spawn"), "world names are case sensitive")
}

func TestInstanceType_Matches(t *testing.T) {
	typ := &InstanceType{ID: "mega_tnt", Aliases: []string{"mega", "big"}}

	assert.True(t, typ.Matches("MEGA_TNT"))
	assert.True(t, typ.Matches("Big"))
	assert.False(t, typ.Matches("small"))
}

func TestInstance_Remaining(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	typ := &InstanceType{FuseSeconds: 4}
	inst := &Instance{Type: typ, ActivatedAt: start, FuseTicks: typ.FuseTicks()}
	tick := 50 * time.Millisecond

	assert.Equal(t, int64(80), inst.FuseTicks)
	assert.Equal(t, 4*time.Second, inst.Fuse(tick))
	assert.InDelta(t, 4.0, inst.Remaining(start, tick), 1e-9)
	assert.InDelta(t, 2.5, inst.Remaining(start.Add(1500*time.Millisecond), tick), 1e-9)
	assert.Equal(t, 0.0, inst.Remaining(start.Add(10*time.Second), tick))
}

func TestTrackingID(t *testing.T) {
	var zero TrackingID
	assert.True(t, zero.IsZero())

	a := NewTrackingID()
	b := NewTrackingID()
	assert.False(t, a.IsZero())
	assert.NotEqual(t, a, b)
	assert.Less(t, a.String(), b.String(), "ids are monotonic")

	parsed, err := ParseTrackingID(a.String())
	require.NoError(t, err)
	assert.Equal(t, a, parsed)

	_, err = ParseTrackingID("not-an-id")
	assert.Error(t, err)
}
