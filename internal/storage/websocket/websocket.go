// Package websocket streams the journal to a remote collector.
package websocket

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/itnt/extension/internal/wsconn"
	"github.com/itnt/extension/pkg/core"
	"github.com/itnt/extension/pkg/streaming"
)

const defaultAckTimeout = 10 * time.Second

// Config holds WebSocket backend configuration.
type Config struct {
	URL     string
	Secret  string
	Version string
	// AckTimeout bounds the wait for journal_end on Close.
	AckTimeout time.Duration
}

// Backend streams lifecycle events over WebSocket. It implements
// storage.Backend but neither Uploadable nor Querier.
type Backend struct {
	conn *wsconn.Conn
	cfg  Config
	log  *slog.Logger
}

// New creates a new WebSocket storage backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = defaultAckTimeout
	}
	return &Backend{
		conn: wsconn.New(logger),
		cfg:  cfg,
		log:  logger,
	}
}

// Init connects to the collector. The hello greeting is replayed on every
// reconnect.
func (b *Backend) Init() error {
	hello, err := streaming.Marshal(streaming.TypeHello, streaming.HelloPayload{
		Client:  "itnt",
		Version: b.cfg.Version,
		Role:    "journal",
	})
	if err != nil {
		return err
	}
	b.conn.SetGreeting(hello)
	if err := b.conn.Dial(b.cfg.URL, b.cfg.Secret); err != nil {
		return fmt.Errorf("connecting journal stream: %w", err)
	}
	return nil
}

// Close sends journal_end, waits for its ack and disconnects.
func (b *Backend) Close() error {
	var err error
	if b.conn.Connected() {
		data, merr := streaming.Marshal(streaming.TypeJournalEnd, nil)
		if merr != nil {
			err = merr
		} else {
			err = b.conn.SendAndWait(data, streaming.TypeJournalEnd, b.cfg.AckTimeout)
		}
		if err != nil {
			b.log.Warn("Journal stream closed without ack", "error", err)
		}
	}
	return errors.Join(err, b.conn.Close())
}

// RecordEvent pushes the event to the write loop without waiting.
func (b *Backend) RecordEvent(e *core.LifecycleEvent) error {
	if e == nil {
		return errors.New("nil lifecycle event")
	}
	data, err := streaming.Marshal(streaming.TypeLifecycle, streaming.NewLifecyclePayload(*e))
	if err != nil {
		return err
	}
	if !b.conn.Send(data) {
		return errors.New("journal stream backlog full")
	}
	return nil
}
