// Package worker binds host commands arriving through the dispatcher to
// the handler service.
package worker

import (
	"context"
	"log/slog"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/itnt/extension/internal/display"
	"github.com/itnt/extension/internal/handlers"
	"github.com/itnt/extension/internal/parser"
	"github.com/itnt/extension/pkg/core"
)

// Roster tracks who is online.
type Roster interface {
	Join(info parser.PlayerInfo) error
	Quit(name string) bool
}

// Invalidator is implemented by label providers that learn about lost
// labels from the host.
type Invalidator interface {
	Invalidate(id core.TrackingID)
}

// Metrics accepts host-submitted points. *influx.Manager satisfies it.
type Metrics interface {
	WritePoint(ctx context.Context, bucket string, point *influxdb2_write.Point) error
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Service *handlers.Service
	Parser  *parser.Parser
	Roster  Roster
	// Labels returns the label provider currently in use.
	Labels func() display.Provider
	// Metrics is optional; :METRIC: is only registered when set.
	Metrics Metrics
	Logger  *slog.Logger
}

// Manager turns dispatcher events into handler calls.
type Manager struct {
	deps   Dependencies
	logger *slog.Logger
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Parser == nil {
		deps.Parser = parser.NewParser(deps.Logger)
	}
	return &Manager{deps: deps, logger: deps.Logger}
}
