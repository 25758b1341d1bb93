// Package monitor periodically writes a status snapshot to status.txt and,
// when influx is connected, records it as a point.
package monitor

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/itnt/extension/internal/display"
	"github.com/itnt/extension/internal/influx"
)

const defaultInterval = time.Second

// Counter is anything that reports a size; the engine and zone index do.
type Counter interface {
	Len() int
}

// QueueReporter reports dispatcher queue lengths.
type QueueReporter interface {
	QueueLens() map[string]int
}

// Dependencies holds all dependencies for the monitor service. Only DataDir
// is required.
type Dependencies struct {
	Engine   Counter
	Zones    Counter
	Labels   func() display.Provider
	Queues   QueueReporter
	Pending  func() int
	Influx   *influx.Manager
	DataDir  string
	Interval time.Duration
	Logger   *slog.Logger
}

// Status is one snapshot.
type Status struct {
	Time           time.Time      `json:"time"`
	Active         int            `json:"active"`
	Zones          int            `json:"zones"`
	Provider       string         `json:"provider"`
	JournalPending int            `json:"journalPending"`
	Queues         map[string]int `json:"queues"`
}

// Service manages status monitoring.
type Service struct {
	deps Dependencies

	mu        sync.Mutex
	isRunning bool
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service.
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = defaultInterval
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running.
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// Snapshot collects the current status.
func (s *Service) Snapshot() Status {
	st := Status{
		Time:     time.Now(),
		Provider: display.None{}.Name(),
		Queues:   map[string]int{},
	}
	if s.deps.Engine != nil {
		st.Active = s.deps.Engine.Len()
	}
	if s.deps.Zones != nil {
		st.Zones = s.deps.Zones.Len()
	}
	if s.deps.Labels != nil {
		if p := s.deps.Labels(); p != nil {
			st.Provider = p.Name()
		}
	}
	if s.deps.Queues != nil {
		st.Queues = s.deps.Queues.QueueLens()
	}
	if s.deps.Pending != nil {
		st.JournalPending = s.deps.Pending()
	}
	return st
}

// Start starts the status monitor goroutine.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}

	if err := os.MkdirAll(s.deps.DataDir, 0o755); err != nil {
		return err
	}
	statusFile, err := os.Create(filepath.Join(s.deps.DataDir, "status.txt"))
	if err != nil {
		return err
	}

	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(statusFile, s.stopChan, s.done)
	return nil
}

func (s *Service) run(statusFile *os.File, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer statusFile.Close()

	s.deps.Logger.Debug("Starting status monitor", "interval", s.deps.Interval)

	ticker := time.NewTicker(s.deps.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.tick(statusFile)
		}
	}
}

func (s *Service) tick(statusFile *os.File) {
	st := s.Snapshot()

	data, err := json.MarshalIndent(st, "", "  ")
	if err == nil {
		if err = statusFile.Truncate(0); err == nil {
			_, err = statusFile.WriteAt(append(data, '\n'), 0)
		}
	}
	if err != nil {
		s.deps.Logger.Error("Error writing status file", "error", err)
	}

	if s.deps.Influx != nil {
		point := influx.StatusPoint(st.Time, st.Active, st.Zones, st.JournalPending, st.Provider, st.Queues)
		if err := s.deps.Influx.WritePoint(context.Background(), influx.BucketStatus, point); err != nil {
			s.deps.Logger.Debug("Error writing status point", "error", err)
		}
	}
}

// Stop stops the status monitor and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()

	<-done
}
