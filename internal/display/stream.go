package display

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/itnt/extension/internal/wsconn"
	"github.com/itnt/extension/pkg/core"
	"github.com/itnt/extension/pkg/streaming"
)

// StreamConfig addresses an external label renderer.
type StreamConfig struct {
	URL    string
	Secret string
	// Backoff is the first reconnect delay; zero keeps the connection default.
	Backoff time.Duration
}

// streamLabel is the last state sent for a label, replayed after a reconnect.
type streamLabel struct {
	pos  core.Position
	text string
}

// Stream pushes labels to an external renderer over a WebSocket. A label is
// alive until it is deleted or the renderer retires it with a label_gone
// message. Losing the connection does not retire labels: after a reconnect
// every tracked label is created again with its last position and text.
type Stream struct {
	cfg    StreamConfig
	conn   *wsconn.Conn
	logger *slog.Logger

	mu     sync.RWMutex
	labels map[core.TrackingID]*streamLabel
}

var _ Provider = (*Stream)(nil)

// NewStream creates an unconnected stream provider.
func NewStream(cfg StreamConfig, logger *slog.Logger) *Stream {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Stream{
		cfg:    cfg,
		conn:   wsconn.New(logger),
		logger: logger,
		labels: make(map[core.TrackingID]*streamLabel),
	}
	s.conn.SetBackoff(cfg.Backoff)
	s.conn.OnMessage(s.handle)
	s.conn.OnReconnect(s.replay)
	return s
}

// Connect dials the renderer.
func (s *Stream) Connect(version string) error {
	hello, err := streaming.Marshal(streaming.TypeHello, streaming.HelloPayload{Client: "itnt", Version: version, Role: "labels"})
	if err != nil {
		return err
	}
	s.conn.SetGreeting(hello)
	if err := s.conn.Dial(s.cfg.URL, s.cfg.Secret); err != nil {
		return fmt.Errorf("connecting label stream: %w", err)
	}
	return nil
}

// Close disconnects from the renderer.
func (s *Stream) Close() error {
	return s.conn.Close()
}

func (s *Stream) handle(env streaming.Envelope) {
	if env.Type != streaming.TypeLabelGone {
		return
	}
	var p streaming.LabelPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		s.logger.Debug("Bad label_gone payload", "error", err)
		return
	}
	id, err := core.ParseTrackingID(p.ID)
	if err != nil {
		s.logger.Debug("Bad label_gone id", "error", err)
		return
	}
	s.mu.Lock()
	delete(s.labels, id)
	s.mu.Unlock()
}

// replay recreates every tracked label on a fresh connection. The renderer
// treats label_create for a known id as a replacement.
func (s *Stream) replay() {
	s.mu.RLock()
	payloads := make([]streaming.LabelPayload, 0, len(s.labels))
	for id, l := range s.labels {
		p := positionPayload(id, l.pos)
		p.Text = l.text
		payloads = append(payloads, p)
	}
	s.mu.RUnlock()

	for _, p := range payloads {
		if err := s.send(streaming.TypeLabelCreate, p); err != nil {
			s.logger.Debug("Failed to replay label", "id", p.ID, "error", err)
		}
	}
	if len(payloads) > 0 {
		s.logger.Info("Replayed labels after reconnect", "count", len(payloads))
	}
}

func (s *Stream) Name() string { return "stream" }

func (s *Stream) send(msgType string, payload any) error {
	data, err := streaming.Marshal(msgType, payload)
	if err != nil {
		return err
	}
	s.conn.Send(data)
	return nil
}

func (s *Stream) tracked(id core.TrackingID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.labels[id]
	return ok
}

// remember applies fn to the stored state of id. It reports false for an
// unknown label.
func (s *Stream) remember(id core.TrackingID, fn func(l *streamLabel)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.labels[id]
	if ok {
		fn(l)
	}
	return ok
}

func positionPayload(id core.TrackingID, pos core.Position) streaming.LabelPayload {
	return streaming.LabelPayload{ID: id.String(), World: pos.World, X: &pos.X, Y: &pos.Y, Z: &pos.Z}
}

func (s *Stream) Create(pos core.Position, text string, id core.TrackingID) error {
	p := positionPayload(id, pos)
	p.Text = text
	if err := s.send(streaming.TypeLabelCreate, p); err != nil {
		return err
	}
	s.mu.Lock()
	s.labels[id] = &streamLabel{pos: pos, text: text}
	s.mu.Unlock()
	return nil
}

func (s *Stream) Update(id core.TrackingID, text string) error {
	if !s.remember(id, func(l *streamLabel) { l.text = text }) {
		return fmt.Errorf("%w: %s", ErrUnknownLabel, id)
	}
	return s.send(streaming.TypeLabelUpdate, streaming.LabelPayload{ID: id.String(), Text: text})
}

func (s *Stream) Move(id core.TrackingID, pos core.Position) error {
	if !s.remember(id, func(l *streamLabel) { l.pos = pos }) {
		return fmt.Errorf("%w: %s", ErrUnknownLabel, id)
	}
	return s.send(streaming.TypeLabelMove, positionPayload(id, pos))
}

func (s *Stream) IsAlive(id core.TrackingID) bool {
	return s.tracked(id)
}

func (s *Stream) Delete(id core.TrackingID) error {
	s.mu.Lock()
	_, ok := s.labels[id]
	delete(s.labels, id)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLabel, id)
	}
	return s.send(streaming.TypeLabelDelete, streaming.LabelPayload{ID: id.String()})
}

func (s *Stream) Clear() {
	s.mu.Lock()
	s.labels = make(map[core.TrackingID]*streamLabel)
	s.mu.Unlock()
	if err := s.send(streaming.TypeLabelClear, nil); err != nil {
		s.logger.Debug("Failed to clear labels", "error", err)
	}
}
