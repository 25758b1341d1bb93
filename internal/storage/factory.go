package storage

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/rs/zerolog"

	"github.com/itnt/extension/internal/config"
	"github.com/itnt/extension/internal/storage/memory"
	"github.com/itnt/extension/internal/storage/postgres"
	sqlitestorage "github.com/itnt/extension/internal/storage/sqlite"
	"github.com/itnt/extension/internal/storage/websocket"
)

// Options carries what backends need beyond their own config section.
type Options struct {
	DB      config.DBConfig
	Server  string
	Version string
	Logger  *slog.Logger
	// DBLog receives database connection diagnostics.
	DBLog zerolog.Logger
}

// NewBackend creates a storage backend based on configuration. The backend
// is not initialized.
func NewBackend(cfg config.StorageConfig, opts Options) (Backend, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "memory":
		return memory.New(cfg.Memory, opts.Server, opts.Version), nil
	case "sqlite":
		return sqlitestorage.New(cfg.SQLite, opts.Server, opts.Version, opts.Logger)
	case "postgres":
		return postgres.New(postgres.Dependencies{
			Config:       opts.DB,
			FallbackPath: cfg.SQLite.Path,
			Server:       opts.Server,
			Version:      opts.Version,
			Logger:       opts.Logger,
			DBLog:        opts.DBLog,
		}), nil
	case "websocket":
		if cfg.Websocket.URL == "" {
			return nil, fmt.Errorf("websocket storage requires storage.websocket.url")
		}
		return websocket.New(websocket.Config{
			URL:     cfg.Websocket.URL,
			Secret:  cfg.Websocket.Secret,
			Version: opts.Version,
		}, opts.Logger), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
