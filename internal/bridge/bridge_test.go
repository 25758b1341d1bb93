package bridge

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itnt/extension/internal/dispatcher"
	"github.com/itnt/extension/internal/parser"
	"github.com/itnt/extension/pkg/core"
)

// syncBuffer is a bytes.Buffer safe for the callback writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Split(strings.TrimRight(s.buf.String(), "\n"), "\n")
}

func newTestBridge(t *testing.T) (*Bridge, *dispatcher.Dispatcher, *syncBuffer) {
	t.Helper()
	d, err := dispatcher.New(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	out := &syncBuffer{}
	return New(d, out, "1.2.0", nil), d, out
}

func TestFormatResponse(t *testing.T) {
	tests := []struct {
		name     string
		result   any
		err      error
		expected string
	}{
		{"string", "ok", nil, `["ok", "ok"]`},
		{"nil", nil, nil, `["ok"]`},
		{"error", nil, errors.New("queue full: :PLACE:"), `["error", "queue full: :PLACE:"]`},
		{"string slice", []string{"give", "help"}, nil, `["ok", ["give","help"]]`},
		{"struct", struct {
			Cancel bool `json:"cancel"`
		}{true}, nil, `["ok", {"cancel":true}]`},
		{"map", map[string]int{"count": 42}, nil, `["ok", {"count":42}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatResponse(":TEST:", tt.result, tt.err))
		})
	}
}

func TestHandle_Builtins(t *testing.T) {
	b, _, _ := newTestBridge(t)

	assert.Equal(t, `["ok", "1.2.0"]`, b.Handle(":VERSION:"))
	assert.True(t, strings.HasPrefix(b.Handle(":TIMESTAMP:\r\n"), `["ok", "`))
}

func TestHandle_RoutesArgs(t *testing.T) {
	b, d, _ := newTestBridge(t)

	var got []string
	d.Register(":ECHO:", func(e dispatcher.Event) (any, error) {
		got = e.Args
		return len(e.Args), nil
	})

	assert.Equal(t, `["ok", 3]`, b.Handle(":ECHO:|a|b|10,64,-4"))
	assert.Equal(t, []string{"a", "b", "10,64,-4"}, got)

	assert.Equal(t, `["ok", 0]`, b.Handle(":ECHO:"))
}

func TestHandle_UnknownCommand(t *testing.T) {
	b, _, _ := newTestBridge(t)
	assert.Equal(t, `["error", "no handler registered for :NOPE:"]`, b.Handle(":NOPE:|x"))
}

func TestServe(t *testing.T) {
	b, d, out := newTestBridge(t)
	d.Register(":PING:", func(e dispatcher.Event) (any, error) { return "pong", nil })

	in := strings.NewReader("# comment\n:PING:\n\n:VERSION:\n:MISSING:\n")
	require.NoError(t, b.Serve(context.Background(), in))

	assert.Equal(t, []string{
		`["ok", "pong"]`,
		`["ok", "1.2.0"]`,
		`["error", "no handler registered for :MISSING:"]`,
	}, out.lines())
}

func TestServe_Cancelled(t *testing.T) {
	b, _, _ := newTestBridge(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, b.Serve(ctx, strings.NewReader(":VERSION:\n")), context.Canceled)
}

func TestPlayers(t *testing.T) {
	b, _, out := newTestBridge(t)
	roster := NewPlayers(b)

	require.NoError(t, roster.Join(parser.PlayerInfo{Name: "steve", Permissions: []string{"itnt.place.*"}}))
	require.NoError(t, roster.Join(parser.PlayerInfo{Name: "alex", Creative: true}))
	assert.Equal(t, []string{"alex", "steve"}, roster.Names())

	p, ok := roster.Player("steve")
	require.True(t, ok)
	assert.True(t, p.HasPermission("itnt.place.basic"))
	assert.False(t, p.HasPermission("itnt.give"))
	assert.False(t, p.Creative())

	p.SendMessage("hello")
	p.GiveItem(core.ItemStack{TypeID: "basic", Amount: 3})
	NewConsole(b).SendMessage("reloaded")

	assert.Equal(t, []string{
		"itnt|:MESSAGE:|steve|hello",
		"itnt|:GIVE:|steve|basic|3",
		"itnt|:MESSAGE:|console|reloaded",
	}, out.lines())

	assert.True(t, roster.Quit("steve"))
	assert.False(t, roster.Quit("steve"))
	assert.Equal(t, 1, roster.Len())
}
