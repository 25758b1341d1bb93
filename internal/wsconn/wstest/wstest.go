// Package wstest provides an in-process WebSocket peer for tests.
package wstest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	ws "github.com/gorilla/websocket"

	"github.com/itnt/extension/pkg/streaming"
)

// TestServer is an in-process WebSocket peer that records envelopes, acks
// the configured types and can push messages back to the client.
type TestServer struct {
	*httptest.Server

	mu       sync.Mutex
	received []streaming.Envelope
	peers    []*ws.Conn
	connects int
	ackTypes map[string]bool
}

// NewTestServer starts a recording server. Callers must Close it.
func NewTestServer(ackTypes ...string) *TestServer {
	s := &TestServer{ackTypes: make(map[string]bool)}
	for _, t := range ackTypes {
		s.ackTypes[t] = true
	}

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		s.mu.Lock()
		s.peers = append(s.peers, c)
		s.connects++
		s.mu.Unlock()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			s.mu.Lock()
			s.received = append(s.received, env)
			ack := s.ackTypes[env.Type]
			s.mu.Unlock()

			if ack {
				data, _ := json.Marshal(streaming.AckMessage{Type: "ack", For: env.Type})
				s.mu.Lock()
				err := c.WriteMessage(ws.TextMessage, data)
				s.mu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}))
	return s
}

// URL returns the ws:// address of the server.
func (s *TestServer) URL() string {
	return "ws" + strings.TrimPrefix(s.Server.URL, "http")
}

// Received returns a copy of everything received so far.
func (s *TestServer) Received() []streaming.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]streaming.Envelope, len(s.received))
	copy(out, s.received)
	return out
}

// Push writes raw data to every connected client.
func (s *TestServer) Push(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.peers {
		_ = p.WriteMessage(ws.TextMessage, data)
	}
}

// Drop closes every client connection from the server side.
func (s *TestServer) Drop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.peers {
		_ = p.Close()
	}
	s.peers = nil
}

// Peers returns how many clients have connected so far, dropped or not.
func (s *TestServer) Peers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connects
}
