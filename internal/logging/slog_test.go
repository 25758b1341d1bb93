package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = orig })
	return &buf
}

func TestSetup_FileOnly_NoStdout(t *testing.T) {
	out := captureStdout(t)

	var fileBuf bytes.Buffer
	m := NewSlogManager()
	m.Setup(Options{File: &fileBuf, Level: "info"})
	m.Logger().Info("hello file")

	assert.Contains(t, fileBuf.String(), "hello file")
	assert.Empty(t, out.String(), "nothing should be written to stdout when file is provided")
}

func TestSetup_NoFile_WritesToStdout(t *testing.T) {
	out := captureStdout(t)

	m := NewSlogManager()
	m.Setup(Options{Level: "info"})
	m.Logger().Info("hello console")

	assert.Contains(t, out.String(), "hello console")
}

func TestSetup_Levels(t *testing.T) {
	var debug, info bytes.Buffer

	m := NewSlogManager()
	m.Setup(Options{File: &debug, Level: "debug"})
	m.Logger().Debug("debug msg")
	assert.Contains(t, debug.String(), "debug msg")

	m.Setup(Options{File: &info, Level: "info"})
	m.Logger().Debug("should be filtered")
	m.Logger().Info("should appear")
	assert.NotContains(t, info.String(), "should be filtered")
	assert.Contains(t, info.String(), "should appear")
	assert.NotContains(t, debug.String(), "should appear", "old file should not receive new logs")
}

func TestSetup_ContextProvider(t *testing.T) {
	var buf bytes.Buffer
	active := 0
	m := NewSlogManager()
	m.Setup(Options{File: &buf, Level: "info", Context: func() []slog.Attr {
		return []slog.Attr{slog.Int("active", active)}
	}})

	active = 3
	m.Logger().Info("countdown")
	assert.Contains(t, buf.String(), "active=3")
}

func TestSetup_WithOTelProvider(t *testing.T) {
	provider := sdklog.NewLoggerProvider()

	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(Options{File: &buf, Level: "info", Provider: provider})

	m.Logger().Info("otel integrated")
	assert.Contains(t, buf.String(), "otel integrated")
	assert.NoError(t, m.Flush(context.Background()))
}

func TestLogger_DefaultBeforeSetup(t *testing.T) {
	m := NewSlogManager()
	assert.Equal(t, slog.Default(), m.Logger())
	assert.NoError(t, m.Flush(context.Background()))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"invalid", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

type memGelf struct {
	mu       sync.Mutex
	messages []*gelf.Message
	err      error
}

func (g *memGelf) WriteMessage(m *gelf.Message) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.messages = append(g.messages, m)
	return g.err
}

func TestGelfHandler(t *testing.T) {
	g := &memGelf{}
	logger := slog.New(NewGelfHandler(g, slog.LevelInfo)).With("provider", "entity")

	logger.Debug("dropped")
	logger.WithGroup("instance").Warn("Countdown aborted", "reason", "object-lost")

	require.Len(t, g.messages, 1)
	msg := g.messages[0]
	assert.Equal(t, "Countdown aborted", msg.Short)
	assert.Equal(t, int32(4), msg.Level)
	assert.Equal(t, ServiceName, msg.Facility)
	assert.Equal(t, "entity", msg.Extra["_provider"])
	assert.Equal(t, "object-lost", msg.Extra["_instance.reason"])
}

func TestSetup_GelfSink(t *testing.T) {
	g := &memGelf{}
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(Options{File: &buf, Level: "info", Gelf: g})

	m.Logger().Error("Journal write failed")
	require.Len(t, g.messages, 2, "init message plus the error")
	assert.Equal(t, int32(3), g.messages[1].Level)
}

func TestGelfHandler_WriteError(t *testing.T) {
	g := &memGelf{err: errors.New("unreachable")}
	h := NewGelfHandler(g, slog.LevelInfo)
	err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "x", 0))
	assert.ErrorContains(t, err, "unreachable")
}
