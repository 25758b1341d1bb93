package streaming

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itnt/extension/pkg/core"
)

func TestMarshal(t *testing.T) {
	y := 64.8
	data, err := Marshal(TypeLabelMove, LabelPayload{ID: "abc", World: "world", Y: &y})
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, TypeLabelMove, env.Type)
	assert.JSONEq(t, `{"id":"abc","world":"world","y":64.8}`, string(env.Payload))
}

func TestMarshal_NoPayload(t *testing.T) {
	data, err := Marshal(TypeLabelClear, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"label_clear"}`, string(data))
}

func TestMarshal_BadPayload(t *testing.T) {
	_, err := Marshal(TypeLifecycle, map[string]any{"bad": make(chan int)})
	assert.Error(t, err)
}

func TestNewLifecyclePayload(t *testing.T) {
	id := core.NewTrackingID()
	at := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	p := NewLifecyclePayload(core.LifecycleEvent{
		TrackingID: id,
		TypeID:     "basic",
		Kind:       core.KindAborted,
		Position:   core.Position{World: "world", X: 1, Y: 2, Z: 3},
		Reason:     "object-lost",
		Time:       at,
	})

	assert.Equal(t, id.String(), p.TrackingID)
	assert.Equal(t, "aborted", p.Kind)
	assert.Equal(t, 2.0, p.Y)

	rejected := NewLifecyclePayload(core.LifecycleEvent{Kind: core.KindRejected})
	data, err := json.Marshal(rejected)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "trackingId")
}
