package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itnt/extension/internal/config"
	"github.com/itnt/extension/pkg/core"
)

func line(p *influxdb2_write.Point) string {
	return influxdb2_write.PointToLineProtocol(p, time.Nanosecond)
}

func readBackup(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gr, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(gr)
	require.NoError(t, err)
	return string(data)
}

func unreachable(t *testing.T) (*Manager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "influx_backup.log.gz")
	cfg := config.InfluxConfig{Enabled: true, Protocol: "http", Host: "127.0.0.1", Port: "1", Org: "itnt"}
	m := NewManager(cfg, zerolog.Nop(), path)
	require.NoError(t, m.Connect(context.Background()))
	return m, path
}

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(config.InfluxConfig{}, zerolog.Nop(), "")
	assert.ErrorIs(t, m.Connect(context.Background()), ErrDisabled)
	assert.Error(t, m.WritePoint(context.Background(), BucketStatus, StatusPoint(time.Now(), 0, 0, 0, "none", nil)))
	assert.NoError(t, m.Close())
}

func TestConnect_FallsBackToBackup(t *testing.T) {
	m, path := unreachable(t)
	assert.False(t, m.IsValid)

	at := time.Unix(1700000000, 0)
	require.NoError(t, m.WritePoint(context.Background(), BucketStatus, StatusPoint(at, 3, 1, 0, "entity", nil)))
	require.NoError(t, m.Close())

	data := readBackup(t, path)
	assert.True(t, strings.HasPrefix(data, "status,provider=entity "))
	assert.Contains(t, data, "active=3i")
	assert.Contains(t, data, "1700000000000000000")
}

func TestLifecyclePoint(t *testing.T) {
	id := core.NewTrackingID()
	p := LifecyclePoint(core.LifecycleEvent{
		TrackingID: id,
		TypeID:     "basic",
		Kind:       core.KindAborted,
		Position:   core.Position{World: "world", X: 1.5, Y: 64, Z: -2},
		Reason:     "object-lost",
		Time:       time.Unix(10, 0),
	})

	l := line(p)
	assert.True(t, strings.HasPrefix(l, "lifecycle,"))
	assert.Contains(t, l, "kind=aborted")
	assert.Contains(t, l, "reason=object-lost")
	assert.Contains(t, l, "type=basic")
	assert.Contains(t, l, `tracking_id="`+id.String()+`"`)
	assert.Contains(t, l, "x=1.5")
	assert.NotContains(t, l, "igniter")
}

func TestStatusPoint_QueueFields(t *testing.T) {
	l := line(StatusPoint(time.Unix(0, 0), 0, 0, 2, "none", map[string]int{":LABEL:GONE:": 4}))
	assert.Contains(t, l, "queue_label_gone=4i")
	assert.Contains(t, l, "journal_pending=2i")
}

func TestProcessMetricData(t *testing.T) {
	bucket, p, err := ProcessMetricData([]string{
		BucketCustom, "arena",
		"tag::map::desert",
		"field::int::players::12",
		"field::float::tps::19.8",
		"field::string::phase::final",
		"field::int::broken",
	})
	require.NoError(t, err)
	assert.Equal(t, BucketCustom, bucket)

	l := line(p)
	assert.True(t, strings.HasPrefix(l, "arena,map=desert "))
	assert.Contains(t, l, "players=12i")
	assert.Contains(t, l, "tps=19.8")
	assert.Contains(t, l, `phase="final"`)
}

func TestProcessMetricData_Errors(t *testing.T) {
	_, _, err := ProcessMetricData([]string{"only"})
	assert.Error(t, err)

	_, _, err = ProcessMetricData([]string{"b", "m", "field::int::n::x"})
	assert.ErrorContains(t, err, "to int")

	_, _, err = ProcessMetricData([]string{"b", "m", "field::float::n::x"})
	assert.ErrorContains(t, err, "to float")
}

type recorder struct{ events []core.LifecycleEvent }

func (r *recorder) RecordEvent(e *core.LifecycleEvent) error {
	r.events = append(r.events, *e)
	return nil
}

func TestTee(t *testing.T) {
	m, path := unreachable(t)
	next := &recorder{}
	tee := &Tee{Next: next, Manager: m}

	require.NoError(t, tee.RecordEvent(&core.LifecycleEvent{Kind: core.KindDetonated, TypeID: "basic", Time: time.Unix(5, 0)}))
	require.NoError(t, m.Close())

	assert.Len(t, next.events, 1)
	assert.Contains(t, readBackup(t, path), "lifecycle,kind=detonated")
}
