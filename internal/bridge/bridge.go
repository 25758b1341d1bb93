// Package bridge speaks the host line protocol. The host writes one call per
// line as COMMAND|arg|arg; every call gets exactly one reply line. Calls from
// the extension back to the host are written as itnt|:CALLBACK:|arg lines.
package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/itnt/extension/internal/dispatcher"
)

// CallbackPrefix starts every line the extension sends unprompted.
const CallbackPrefix = "itnt"

// Built-in calls answered without the dispatcher.
const (
	CmdVersion   = ":VERSION:"
	CmdTimestamp = ":TIMESTAMP:"
)

// Callbacks sent to the host.
const (
	CallbackMessage = ":MESSAGE:"
	CallbackGive    = ":GIVE:"
)

const maxLine = 64 * 1024

// Bridge routes host calls to a dispatcher and serializes all writes to
// the host.
type Bridge struct {
	dispatcher *dispatcher.Dispatcher
	version    string
	logger     *slog.Logger

	mu  sync.Mutex
	out io.Writer
}

// New creates a bridge that answers on out.
func New(d *dispatcher.Dispatcher, out io.Writer, version string, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{dispatcher: d, out: out, version: version, logger: logger}
}

// Handle answers a single call line.
func (b *Bridge) Handle(line string) string {
	line = strings.TrimRight(line, "\r\n")
	parts := strings.Split(line, "|")
	command, args := parts[0], parts[1:]

	switch command {
	case CmdVersion:
		return formatResponse(command, b.version, nil)
	case CmdTimestamp:
		return formatResponse(command, strconv.FormatInt(time.Now().UTC().UnixNano(), 10), nil)
	}

	if b.dispatcher == nil || !b.dispatcher.HasHandler(command) {
		return formatResponse(command, nil, fmt.Errorf("no handler registered for %s", command))
	}

	result, err := b.dispatcher.Dispatch(dispatcher.Event{
		Command:   command,
		Args:      args,
		Timestamp: time.Now(),
	})
	return formatResponse(command, result, err)
}

// Serve reads calls from r until EOF or ctx is done, writing one reply per
// call.
func (b *Bridge) Serve(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLine)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := b.write(b.Handle(line)); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading host calls: %w", err)
	}
	return nil
}

// Callback sends an unprompted call to the host. Its signature matches
// display.Callback.
func (b *Bridge) Callback(command string, args ...string) {
	fields := append([]string{CallbackPrefix, command}, args...)
	if err := b.write(strings.Join(fields, "|")); err != nil {
		b.logger.Warn("Failed to send callback", "command", command, "error", err)
	}
}

func (b *Bridge) write(line string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := io.WriteString(b.out, line+"\n"); err != nil {
		return fmt.Errorf("writing to host: %w", err)
	}
	return nil
}

// formatResponse renders a dispatch result for the host. Strings are sent
// verbatim, everything else as JSON.
func formatResponse(command string, result any, err error) string {
	if err != nil {
		return fmt.Sprintf(`["error", "%s"]`, err.Error())
	}
	if result == nil {
		return `["ok"]`
	}
	if s, ok := result.(string); ok {
		return fmt.Sprintf(`["ok", "%s"]`, s)
	}
	data, jerr := json.Marshal(result)
	if jerr != nil {
		return fmt.Sprintf(`["error", "%s: %s"]`, command, jerr.Error())
	}
	return fmt.Sprintf(`["ok", %s]`, data)
}
