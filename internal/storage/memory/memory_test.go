package memory

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itnt/extension/internal/config"
	"github.com/itnt/extension/pkg/core"
)

var base = time.Date(2026, 6, 1, 20, 15, 0, 0, time.UTC)

func record(t *testing.T, b *Backend, kind core.LifecycleKind, offset time.Duration) {
	t.Helper()
	require.NoError(t, b.RecordEvent(&core.LifecycleEvent{
		TrackingID: core.NewTrackingID(),
		TypeID:     "basic",
		Kind:       kind,
		Position:   core.Position{World: "world", X: 4, Y: 70, Z: -2},
		Time:       base.Add(offset),
	}))
}

func TestRecent(t *testing.T) {
	b := New(config.MemoryConfig{}, "srv", "dev")
	require.NoError(t, b.Init())

	record(t, b, core.KindActivated, 0)
	record(t, b, core.KindDetonated, 4*time.Second)
	record(t, b, core.KindCleared, 5*time.Second)

	events, err := b.Recent(2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, core.KindCleared, events[0].Kind)
	assert.Equal(t, core.KindDetonated, events[1].Kind)

	all, err := b.Recent(0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Error(t, b.RecordEvent(nil))
}

func TestClose_WithoutOutputDir(t *testing.T) {
	b := New(config.MemoryConfig{}, "srv", "dev")
	record(t, b, core.KindActivated, 0)

	require.NoError(t, b.Close())
	assert.Empty(t, b.GetExportedFilePath())
	assert.Equal(t, 1, b.Len())
}

func TestClose_ExportsJSON(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir}, "survival 1", "1.2.0")
	record(t, b, core.KindActivated, 0)
	record(t, b, core.KindDetonated, 4*time.Second)

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	path := b.GetExportedFilePath()
	assert.Equal(t, filepath.Join(dir, "survival_1_20260601_201500.json"), path)
	assert.Zero(t, b.Len())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var export JournalExport
	require.NoError(t, json.Unmarshal(data, &export))

	assert.Equal(t, "survival 1", export.Server)
	assert.Equal(t, "1.2.0", export.ExtensionVersion)
	assert.Len(t, export.Events, 2)
	assert.Equal(t, map[string]int{"activated": 1, "detonated": 1}, export.Counts)

	meta := b.GetExportMetadata()
	assert.Equal(t, 2, meta.Events)
	assert.Equal(t, 4.0, meta.Duration)
}

func TestClose_ExportsGzip(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir(), CompressOutput: true}, "", "dev")
	record(t, b, core.KindAborted, 0)
	require.NoError(t, b.Close())

	path := b.GetExportedFilePath()
	assert.True(t, strings.HasSuffix(path, ".json.gz"))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "journal_"))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gr, err := gzip.NewReader(f)
	require.NoError(t, err)

	var export JournalExport
	require.NoError(t, json.NewDecoder(gr).Decode(&export))
	require.Len(t, export.Events, 1)
	assert.Equal(t, "aborted", export.Events[0].Kind)
}

func TestClose_NothingRecorded(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir}, "srv", "dev")
	require.NoError(t, b.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
