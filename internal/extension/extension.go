// Package extension assembles the explosive lifecycle manager and drives its
// enable, reload and disable phases.
package extension

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/itnt/extension/internal/api"
	"github.com/itnt/extension/internal/bridge"
	"github.com/itnt/extension/internal/cache"
	"github.com/itnt/extension/internal/catalog"
	"github.com/itnt/extension/internal/config"
	"github.com/itnt/extension/internal/dispatcher"
	"github.com/itnt/extension/internal/display"
	"github.com/itnt/extension/internal/engine"
	"github.com/itnt/extension/internal/handlers"
	"github.com/itnt/extension/internal/influx"
	"github.com/itnt/extension/internal/logging"
	"github.com/itnt/extension/internal/monitor"
	intOtel "github.com/itnt/extension/internal/otel"
	"github.com/itnt/extension/internal/scheduler"
	"github.com/itnt/extension/internal/storage"
	"github.com/itnt/extension/internal/storage/memory"
	"github.com/itnt/extension/internal/text"
	"github.com/itnt/extension/internal/worker"
	"github.com/itnt/extension/internal/world"
	"github.com/itnt/extension/internal/zone"
)

// ExtensionName prefixes log and journal files.
const ExtensionName = "itnt"

// ErrNotEnabled is returned by operations that need a running extension.
var ErrNotEnabled = errors.New("extension is not enabled")

// Options configure an Extension. World is required.
type Options struct {
	DataDir string
	Version string
	// Server names this instance in journals. Defaults to ExtensionName.
	Server string
	World  world.Simulation
	// Out receives bridge responses and callbacks. Defaults to stdout.
	Out io.Writer
	// Scheduler and Clock default to wall-clock implementations.
	Scheduler scheduler.Scheduler
	Clock     scheduler.Clock
}

// Extension owns every long-lived component. Enable, Reload and Disable are
// serialized.
type Extension struct {
	opts    Options
	started time.Time

	lifecycle sync.Mutex
	enabled   bool

	slog     *logging.SlogManager
	logger   *slog.Logger
	logFile  *os.File
	zlog     zerolog.Logger
	otel     *intOtel.Provider
	gelf     io.Closer
	influx   *influx.Manager
	messages *text.Messages
	catalog  atomic.Pointer[catalog.Catalog]
	sched    scheduler.Scheduler
	zones    *zone.Index
	journal  storage.Backend
	engine   *engine.Engine
	service  *handlers.Service
	disp     *dispatcher.Dispatcher
	bridge   *bridge.Bridge
	players  *bridge.Players
	monitor  *monitor.Service
}

// New creates a disabled extension.
func New(opts Options) (*Extension, error) {
	if opts.World == nil {
		return nil, errors.New("extension: world is required")
	}
	if opts.DataDir == "" {
		opts.DataDir = "."
	}
	if opts.Server == "" {
		opts.Server = ExtensionName
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &Extension{
		opts:   opts,
		slog:   logging.NewSlogManager(),
		logger: slog.Default(),
	}, nil
}

// Enable loads configuration and starts every component.
func (e *Extension) Enable() error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	if e.enabled {
		return nil
	}
	e.started = time.Now()

	if err := os.MkdirAll(e.opts.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	configErr := config.Load(e.opts.DataDir)

	e.setupLogging()
	if configErr != nil {
		e.logger.Warn("Failed to load config, using defaults", "error", configErr)
	} else {
		e.logger.Info("Loaded config", "dir", e.opts.DataDir)
	}

	e.messages = text.NewMessages(config.GetMessages())
	cat, err := catalog.FromConfig(e.logger)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	e.catalog.Store(cat)
	e.logger.Info("Loaded explosive types", "count", cat.Len())

	e.sched = e.opts.Scheduler
	if e.sched == nil {
		e.sched = scheduler.NewTicker(e.logger)
	}

	e.disp, err = dispatcher.New(e.logger)
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}
	e.bridge = bridge.New(e.disp, e.opts.Out, e.opts.Version, e.logger)
	e.players = bridge.NewPlayers(e.bridge)

	e.setupInflux()
	e.journal = e.openJournal()

	var journal engine.Journal = e.journal
	if e.influx != nil {
		journal = &influx.Tee{Next: e.journal, Manager: e.influx}
	}

	engineCfg := config.GetEngineConfig()
	e.zones = zone.NewIndex(e.sched, engineCfg.ZoneLifetime)
	e.engine, err = engine.New(engine.Dependencies{
		World:     e.opts.World,
		Scheduler: e.sched,
		Clock:     e.opts.Clock,
		Zones:     e.zones,
		Display:   e.selectDisplay(),
		Journal:   journal,
		Messages:  e.messages,
		Logger:    e.logger,
	}, settingsFromConfig())
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	e.service = handlers.NewService(handlers.Dependencies{
		Engine:   e.engine,
		Catalog:  e.catalog.Load,
		World:    e.opts.World,
		Placed:   cache.NewPlacedCache(),
		Players:  e.players,
		Console:  bridge.NewConsole(e.bridge),
		Messages: e.messages,
		Reload:   e.Reload,
		Logger:   e.logger,
	})

	deps := worker.Dependencies{
		Service: e.service,
		Roster:  e.players,
		Labels:  e.engine.Display,
		Logger:  e.logger,
	}
	if e.influx != nil {
		deps.Metrics = e.influx
	}
	worker.NewManager(deps).RegisterHandlers(e.disp)
	e.registerLifecycleHandlers()

	e.monitor = monitor.NewService(monitor.Dependencies{
		Engine:  e.engine,
		Zones:   e.zones,
		Labels:  e.engine.Display,
		Queues:  e.disp,
		Pending: e.pending,
		Influx:  e.influx,
		DataDir: e.opts.DataDir,
		Logger:  e.logger,
	})
	if err := e.monitor.Start(); err != nil {
		e.logger.Error("Failed to start status monitor", "error", err)
	}

	go e.checkServerStatus()

	e.enabled = true
	e.logger.Info("Extension enabled", "version", e.opts.Version, "labels", e.engine.Display().Name())
	return nil
}

// Reload clears every active explosive, re-reads the configuration and the
// catalog, and reselects the label provider.
func (e *Extension) Reload() error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()
	return e.reload()
}

func (e *Extension) reload() error {
	if !e.enabled {
		return ErrNotEnabled
	}

	cleared := e.engine.ShutdownAll()

	if err := config.Reload(); err != nil {
		return err
	}
	e.messages.Load(config.GetMessages())

	cat, err := catalog.FromConfig(e.logger)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	e.catalog.Store(cat)

	old := e.engine.Display()
	e.engine.Reconfigure(settingsFromConfig(), e.selectDisplay())
	closeProvider(old, e.logger)

	e.logger.Info("Reloaded", "cleared", cleared, "types", cat.Len(), "labels", e.engine.Display().Name())
	return nil
}

// Disable clears every active explosive and shuts all components down.
func (e *Extension) Disable() error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	if !e.enabled {
		return nil
	}
	e.enabled = false

	// Host commands stop first and the scheduler before the sweep, so an
	// activation racing shutdown is either swept or refused and rolled back.
	var errs []error
	if err := e.disp.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing dispatcher: %w", err))
	}
	e.monitor.Stop()
	e.sched.Stop()
	e.engine.ShutdownAll()

	closeProvider(e.engine.Display(), e.logger)
	if err := e.engine.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing engine: %w", err))
	}

	if err := e.journal.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing journal: %w", err))
	}
	e.uploadJournal()

	if e.influx != nil {
		if err := e.influx.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing influx: %w", err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	e.logger.Info("Extension disabled")
	if err := e.slog.Flush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("flushing logs: %w", err))
	}
	if e.otel != nil {
		if err := e.otel.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutting down otel: %w", err))
		}
	}

	if e.gelf != nil {
		_ = e.gelf.Close()
	}
	if e.logFile != nil {
		_ = e.logFile.Close()
	}
	return errors.Join(errs...)
}

// Bridge returns the host bridge, nil before Enable.
func (e *Extension) Bridge() *bridge.Bridge {
	return e.bridge
}

// Engine returns the countdown engine, nil before Enable.
func (e *Extension) Engine() *engine.Engine {
	return e.engine
}

// Catalog returns the current catalog.
func (e *Extension) Catalog() *catalog.Catalog {
	return e.catalog.Load()
}

// Journal returns the journal backend, nil before Enable.
func (e *Extension) Journal() storage.Backend {
	return e.journal
}

// Logger returns the configured logger.
func (e *Extension) Logger() *slog.Logger {
	return e.logger
}

func (e *Extension) setupLogging() {
	logsDir := e.resolve(config.GetString("logsDir"))
	level := config.GetString("logLevel")
	opts := logging.Options{Level: level}

	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logs dir: %v\n", err)
	}
	path := logging.LogFilePath(logsDir, ExtensionName, e.started)
	if _, err := os.Stat(path); err == nil {
		_ = os.Rename(path, path+".old")
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v\n", path, err)
		// stdout carries the host protocol
		opts.File = os.Stderr
	} else {
		e.logFile = f
		opts.File = f
	}

	if otelCfg := config.GetOTelConfig(); otelCfg.Enabled {
		p, err := intOtel.New(context.Background(), intOtel.Config{
			Enabled:        true,
			ServiceName:    otelCfg.ServiceName,
			ServiceVersion: e.opts.Version,
			Server:         e.opts.Server,
			BatchTimeout:   otelCfg.BatchTimeout,
			LogWriter:      opts.File,
			Endpoint:       otelCfg.Endpoint,
			Insecure:       otelCfg.Insecure,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize OTel provider: %v\n", err)
		} else {
			e.otel = p
			opts.Provider = p.LoggerProvider()
		}
	}

	if gl := config.GetGraylogConfig(); gl.Enabled {
		w, err := logging.NewGelfWriter(gl.Address)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to connect to graylog at %s: %v\n", gl.Address, err)
		} else {
			e.gelf = w
			opts.Gelf = w
		}
	}

	opts.Context = func() []slog.Attr {
		attrs := []slog.Attr{slog.String("server", e.opts.Server)}
		if e.engine != nil {
			attrs = append(attrs, slog.Int("active", e.engine.Len()))
		}
		return attrs
	}

	e.slog.Setup(opts)
	e.logger = e.slog.Logger()
	e.zlog = zerolog.New(opts.File).With().Timestamp().Logger()
	e.logger.Info("Logging to file", "path", path)
}

func (e *Extension) setupInflux() {
	cfg := config.GetInfluxConfig()
	if !cfg.Enabled {
		return
	}

	zl := e.zlog.With().Str("component", "influx").Logger()

	backup := filepath.Join(e.opts.DataDir, fmt.Sprintf("%s_influx_%s.log.gz", ExtensionName, e.started.Format("20060102_150405")))
	m := influx.NewManager(cfg, zl, backup)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.Connect(ctx); err != nil {
		e.logger.Error("Failed to initialize influx", "error", err)
		return
	}
	e.influx = m
}

// openJournal creates the configured backend and falls back to an in-memory
// journal when it cannot start.
func (e *Extension) openJournal() storage.Backend {
	cfg := config.GetStorageConfig()
	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = filepath.Join(e.opts.DataDir, fmt.Sprintf("%s_%s.db", ExtensionName, e.started.Format("20060102_150405")))
	} else {
		cfg.SQLite.Path = e.resolve(cfg.SQLite.Path)
	}
	if cfg.Memory.OutputDir != "" {
		cfg.Memory.OutputDir = e.resolve(cfg.Memory.OutputDir)
	}

	backend, err := storage.NewBackend(cfg, storage.Options{
		DB:      config.GetDBConfig(),
		Server:  e.opts.Server,
		Version: e.opts.Version,
		Logger:  e.logger,
		DBLog:   e.zlog.With().Str("component", "database").Logger(),
	})
	if err == nil {
		err = backend.Init()
	}
	if err != nil {
		e.logger.Error("Failed to initialize journal, keeping it in memory", "type", cfg.Type, "error", err)
		backend = memory.New(cfg.Memory, e.opts.Server, e.opts.Version)
		_ = backend.Init()
		return backend
	}
	e.logger.Info("Journal initialized", "type", cfg.Type)
	return backend
}

func (e *Extension) pending() int {
	if p, ok := e.journal.(interface{ Pending() int }); ok {
		return p.Pending()
	}
	return 0
}

func (e *Extension) selectDisplay() display.Provider {
	h := config.GetHologramConfig()
	avail := display.Availability{
		Callback: e.bridge.Callback,
		Version:  e.opts.Version,
	}
	if host, ok := e.opts.World.(display.EntityHost); ok {
		avail.Entities = host
	}
	return display.Select(display.Settings{
		Enabled:  h.Enabled,
		Provider: h.Provider,
		Stream:   display.StreamConfig{URL: h.Stream.URL, Secret: h.Stream.Secret},
	}, avail, e.logger)
}

func settingsFromConfig() engine.Settings {
	h := config.GetHologramConfig()
	return engine.Settings{
		TickLength: config.GetEngineConfig().TickLength,
		Labels: engine.LabelSettings{
			Enabled: h.Enabled,
			Format:  h.Format,
			OffsetY: h.OffsetY,
		},
	}
}

func closeProvider(p display.Provider, logger *slog.Logger) {
	c, ok := p.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		logger.Warn("Failed to close label provider", "provider", p.Name(), "error", err)
	}
}

// uploadJournal sends the exported journal to the configured server.
func (e *Extension) uploadJournal() {
	up, ok := e.journal.(storage.Uploadable)
	if !ok || up.GetExportedFilePath() == "" {
		return
	}
	apiCfg := config.GetAPIConfig()
	if apiCfg.ServerURL == "" {
		return
	}
	path := up.GetExportedFilePath()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := api.New(apiCfg.ServerURL, apiCfg.APIKey).Upload(ctx, path, up.GetExportMetadata()); err != nil {
		e.logger.Error("Failed to upload journal", "path", path, "error", err)
		return
	}
	e.logger.Info("Uploaded journal", "path", path)
}

func (e *Extension) checkServerStatus() {
	apiCfg := config.GetAPIConfig()
	if apiCfg.ServerURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := api.New(apiCfg.ServerURL, apiCfg.APIKey).Healthcheck(ctx); err != nil {
		e.logger.Warn("Journal server unreachable", "url", apiCfg.ServerURL, "error", err)
		return
	}
	e.logger.Info("Journal server reachable", "url", apiCfg.ServerURL)
}

// resolve makes p relative to the data directory unless it is absolute.
func (e *Extension) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(e.opts.DataDir, p)
}
