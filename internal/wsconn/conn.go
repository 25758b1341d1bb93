// Package wsconn is a reconnecting WebSocket client shared by the label
// stream and the journal stream. Each connection runs one reader and one
// writer; when either fails the connection is retired and redialed with
// backoff while queued messages wait.
package wsconn

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/itnt/extension/pkg/streaming"
)

const (
	sendChSize   = 4096
	ackChSize    = 16
	maxReconnect = 10
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
)

// session is one live connection. end is idempotent.
type session struct {
	conn *ws.Conn
	stop chan struct{}
	once sync.Once
}

func (s *session) end() {
	s.once.Do(func() {
		close(s.stop)
		_ = s.conn.Close()
	})
}

// Conn is a client connection that survives server restarts.
type Conn struct {
	mu       sync.Mutex
	sess     *session
	closed   bool
	greeting []byte

	sendCh  chan []byte
	ackCh   chan streaming.AckMessage
	done    chan struct{}
	dropped atomic.Int64

	target      *url.URL
	backoff     time.Duration
	onMessage   func(streaming.Envelope)
	onReconnect func()

	logger *slog.Logger
}

// New creates an unconnected Conn.
func New(logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.Default()
	}
	return &Conn{
		sendCh:  make(chan []byte, sendChSize),
		ackCh:   make(chan streaming.AckMessage, ackChSize),
		done:    make(chan struct{}),
		backoff: time.Second,
		logger:  logger,
	}
}

// OnMessage registers the handler for inbound non-ack envelopes. Set it
// before Dial.
func (c *Conn) OnMessage(fn func(streaming.Envelope)) {
	c.onMessage = fn
}

// OnReconnect registers fn to run after every successful reconnect, once the
// new session is attached. Set it before Dial.
func (c *Conn) OnReconnect(fn func()) {
	c.onReconnect = fn
}

// SetBackoff sets the first reconnect delay. It doubles per failed attempt
// up to 30s.
func (c *Conn) SetBackoff(d time.Duration) {
	if d > 0 {
		c.backoff = d
	}
}

// SetGreeting sets the message written first on every connect.
func (c *Conn) SetGreeting(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.greeting = data
}

// Dial connects to rawURL, passing secret as a query parameter.
func (c *Conn) Dial(rawURL, secret string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid websocket URL: %w", err)
	}
	if secret != "" {
		q := u.Query()
		q.Set("secret", secret)
		u.RawQuery = q.Encode()
	}
	c.target = u

	conn, err := c.dial()
	if err != nil {
		return err
	}
	if !c.attach(conn) {
		_ = conn.Close()
		return fmt.Errorf("websocket closed during dial")
	}
	return nil
}

func (c *Conn) dial() (*ws.Conn, error) {
	conn, _, err := ws.DefaultDialer.Dial(c.target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}

	c.mu.Lock()
	greeting := c.greeting
	c.mu.Unlock()
	if greeting == nil {
		return conn, nil
	}

	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err == nil {
		err = conn.WriteMessage(ws.TextMessage, greeting)
	}
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("websocket greeting failed: %w", err)
	}
	return conn, nil
}

// attach starts the loops for conn unless the Conn was closed meanwhile.
func (c *Conn) attach(conn *ws.Conn) bool {
	s := &session{conn: conn, stop: make(chan struct{})}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.sess = s
	go c.writeLoop(s)
	go c.readLoop(s)
	return true
}

// lost retires s and starts one reconnect, however many loops report it.
func (c *Conn) lost(s *session, err error) {
	s.end()

	c.mu.Lock()
	current := c.sess == s && !c.closed
	if current {
		c.sess = nil
	}
	c.mu.Unlock()

	if current {
		c.logger.Warn("WebSocket connection lost", "url", c.target.Redacted(), "error", err)
		go c.reconnect()
	}
}

func (c *Conn) writeLoop(s *session) {
	for {
		select {
		case <-c.done:
			return
		case <-s.stop:
			return
		case data := <-c.sendCh:
			err := s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err == nil {
				err = s.conn.WriteMessage(ws.TextMessage, data)
			}
			if err != nil {
				c.lost(s, err)
				return
			}
		}
	}
}

// readLoop routes acks to ackCh and everything else to the message handler.
func (c *Conn) readLoop(s *session) {
	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			c.lost(s, err)
			return
		}

		var ack streaming.AckMessage
		if json.Unmarshal(message, &ack) == nil && ack.Type == "ack" {
			select {
			case c.ackCh <- ack:
			default:
				c.logger.Debug("Ack channel full, dropping", "for", ack.For)
			}
			continue
		}

		var env streaming.Envelope
		if err := json.Unmarshal(message, &env); err != nil || env.Type == "" {
			c.logger.Debug("Unrecognized message received", "raw", string(message))
			continue
		}
		if c.onMessage != nil {
			c.onMessage(env)
		}
	}
}

func (c *Conn) reconnect() {
	wait := c.backoff
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		select {
		case <-c.done:
			return
		case <-time.After(wait):
		}

		conn, err := c.dial()
		if err != nil {
			c.logger.Warn("Reconnect failed", "attempt", attempt, "error", err)
			wait = min(wait*2, maxBackoff)
			continue
		}
		if !c.attach(conn) {
			_ = conn.Close()
			return
		}
		c.logger.Info("WebSocket reconnected", "attempt", attempt)
		if c.onReconnect != nil {
			c.onReconnect()
		}
		return
	}
	c.logger.Error("Giving up on WebSocket", "url", c.target.Redacted(), "attempts", maxReconnect)
}

// Connected reports whether a live connection is held.
func (c *Conn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess != nil && !c.closed
}

// Send queues data for the writer. It never blocks; when the queue is full
// the message is dropped and false returned.
func (c *Conn) Send(data []byte) bool {
	select {
	case c.sendCh <- data:
		return true
	default:
		if c.dropped.Add(1) == 1 {
			c.logger.Warn("WebSocket send queue full, dropping messages")
		}
		return false
	}
}

// Dropped returns how many messages Send refused.
func (c *Conn) Dropped() int64 {
	return c.dropped.Load()
}

// SendAndWait sends data and blocks until the server acknowledges ackFor or
// the timeout expires.
func (c *Conn) SendAndWait(data []byte, ackFor string, timeout time.Duration) error {
	if !c.Send(data) {
		return fmt.Errorf("send queue full, %q not sent", ackFor)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case ack := <-c.ackCh:
			if ack.For == ackFor {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", ackFor)
		case <-c.done:
			return fmt.Errorf("connection closed while waiting for ack of %q", ackFor)
		}
	}
}

// Close says goodbye to the server and stops all goroutines.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	s := c.sess
	c.sess = nil
	c.mu.Unlock()

	if s == nil {
		return nil
	}
	err := s.conn.WriteControl(ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(time.Second))
	s.end()
	if err != nil && err != ws.ErrCloseSent {
		return err
	}
	return nil
}
