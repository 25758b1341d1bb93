package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itnt/extension/internal/wsconn/wstest"
	"github.com/itnt/extension/pkg/core"
	"github.com/itnt/extension/pkg/streaming"
)

func types(envs []streaming.Envelope) []string {
	out := make([]string, 0, len(envs))
	for _, e := range envs {
		out = append(out, e.Type)
	}
	return out
}

func TestStreamJournal(t *testing.T) {
	srv := wstest.NewTestServer(streaming.TypeJournalEnd)
	defer srv.Close()

	b := New(Config{URL: srv.URL(), Version: "1.0.0"}, nil)
	require.NoError(t, b.Init())

	id := core.NewTrackingID()
	require.NoError(t, b.RecordEvent(&core.LifecycleEvent{
		TrackingID: id,
		TypeID:     "basic",
		Kind:       core.KindDetonated,
		Position:   core.Position{World: "world", X: 1, Y: 2, Z: 3},
		Time:       time.Now(),
	}))
	assert.Error(t, b.RecordEvent(nil))

	require.Eventually(t, func() bool { return len(srv.Received()) >= 2 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, b.Close())

	received := srv.Received()
	assert.Equal(t, []string{streaming.TypeHello, streaming.TypeLifecycle, streaming.TypeJournalEnd}, types(received))

	var hello streaming.HelloPayload
	require.NoError(t, json.Unmarshal(received[0].Payload, &hello))
	assert.Equal(t, "journal", hello.Role)
	assert.Equal(t, "1.0.0", hello.Version)

	var p streaming.LifecyclePayload
	require.NoError(t, json.Unmarshal(received[1].Payload, &p))
	assert.Equal(t, id.String(), p.TrackingID)
	assert.Equal(t, "detonated", p.Kind)
}

func TestClose_WithoutAck(t *testing.T) {
	srv := wstest.NewTestServer()
	defer srv.Close()

	b := New(Config{URL: srv.URL(), AckTimeout: 50 * time.Millisecond}, nil)
	require.NoError(t, b.Init())
	assert.Error(t, b.Close())
}

func TestInit_DialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + srv.URL[len("http"):]
	srv.Close()

	b := New(Config{URL: url}, nil)
	assert.Error(t, b.Init())
	assert.NoError(t, b.Close())
}
