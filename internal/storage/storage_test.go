package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itnt/extension/internal/config"
	"github.com/itnt/extension/internal/storage"
	gormstorage "github.com/itnt/extension/internal/storage/gorm"
	"github.com/itnt/extension/internal/storage/memory"
	"github.com/itnt/extension/internal/storage/postgres"
	sqlitestorage "github.com/itnt/extension/internal/storage/sqlite"
	"github.com/itnt/extension/internal/storage/websocket"
)

var (
	_ storage.Backend    = (*memory.Backend)(nil)
	_ storage.Uploadable = (*memory.Backend)(nil)
	_ storage.Querier    = (*memory.Backend)(nil)

	_ storage.Backend = (*gormstorage.Backend)(nil)
	_ storage.Querier = (*gormstorage.Backend)(nil)

	_ storage.Backend = (*sqlitestorage.Backend)(nil)
	_ storage.Querier = (*sqlitestorage.Backend)(nil)

	_ storage.Backend = (*postgres.Backend)(nil)
	_ storage.Querier = (*postgres.Backend)(nil)

	_ storage.Backend = (*websocket.Backend)(nil)
)

func TestNewBackend(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.StorageConfig
		want any
	}{
		{"default", config.StorageConfig{}, &memory.Backend{}},
		{"memory", config.StorageConfig{Type: "memory"}, &memory.Backend{}},
		{"sqlite", config.StorageConfig{Type: "SQLite"}, &sqlitestorage.Backend{}},
		{"postgres", config.StorageConfig{Type: "postgres"}, &postgres.Backend{}},
		{"websocket", config.StorageConfig{Type: "websocket", Websocket: config.WebsocketConfig{URL: "ws://localhost:1"}}, &websocket.Backend{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := storage.NewBackend(tt.cfg, storage.Options{Server: "srv", Version: "dev"})
			require.NoError(t, err)
			assert.IsType(t, tt.want, b)
		})
	}
}

func TestNewBackend_Errors(t *testing.T) {
	_, err := storage.NewBackend(config.StorageConfig{Type: "redis"}, storage.Options{})
	assert.ErrorContains(t, err, "unknown storage type")

	_, err = storage.NewBackend(config.StorageConfig{Type: "websocket"}, storage.Options{})
	assert.Error(t, err)
}
