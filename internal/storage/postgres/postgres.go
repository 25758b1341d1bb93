// Package postgres journals lifecycle events into PostgreSQL through the
// shared gorm batch writer.
package postgres

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/itnt/extension/internal/config"
	"github.com/itnt/extension/internal/database"
	gormstorage "github.com/itnt/extension/internal/storage/gorm"
	"github.com/itnt/extension/pkg/core"
)

// Dependencies holds all dependencies for the postgres backend. A non-nil DB
// is used as is; otherwise Init connects with Config and falls back to a
// sqlite file at FallbackPath when postgres is unreachable.
type Dependencies struct {
	DB           *gorm.DB
	Config       config.DBConfig
	FallbackPath string
	Server       string
	Version      string
	Logger       *slog.Logger
	// DBLog receives connection diagnostics.
	DBLog zerolog.Logger
}

// Backend implements storage.Backend on PostgreSQL.
type Backend struct {
	*gormstorage.Backend
	deps    Dependencies
	manager *database.Manager
}

// New creates a new postgres backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Backend{deps: deps}
}

func (b *Backend) Init() error {
	if b.deps.DB == nil {
		m := database.NewManager(b.deps.DBLog, b.deps.FallbackPath)
		if err := m.Connect(b.deps.Config); err != nil {
			return fmt.Errorf("failed to connect to journal database: %w", err)
		}
		b.manager = m
		b.deps.DB = m.DB
	}

	if err := database.Setup(b.deps.DB, b.deps.Server, b.deps.Version); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.deps.Logger.Info("Journal database ready", "dialect", b.deps.DB.Name())

	b.Backend = gormstorage.New(gormstorage.Dependencies{DB: b.deps.DB, Logger: b.deps.Logger})
	return b.Backend.Init()
}

func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	err := b.Backend.Close()
	if b.manager != nil {
		_ = b.manager.Close()
	}
	return err
}

// Local reports whether postgres was unreachable and the journal went to
// the sqlite fallback.
func (b *Backend) Local() bool {
	return b.manager != nil && b.manager.ShouldSaveLocal
}

// RecordEvent drops events arriving before Init.
func (b *Backend) RecordEvent(e *core.LifecycleEvent) error {
	if b.Backend == nil {
		return nil
	}
	return b.Backend.RecordEvent(e)
}

func (b *Backend) Recent(limit int) ([]core.LifecycleEvent, error) {
	if b.Backend == nil {
		return nil, errors.New("journal not initialized")
	}
	return b.Backend.Recent(limit)
}
