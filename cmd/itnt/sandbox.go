package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/itnt/extension/internal/extension"
	"github.com/itnt/extension/internal/parser"
	"github.com/itnt/extension/internal/worker"
	"github.com/itnt/extension/internal/world"
	"github.com/itnt/extension/internal/world/memworld"
)

type sandboxConfig struct {
	dataDir string
	server  string
}

func newSandboxCmd() *cobra.Command {
	cfg := &sandboxConfig{}

	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Run the extension against an in-memory world",
		Long: `Run the extension against an in-memory world. Host calls are read
from stdin one per line (COMMAND|arg|arg); replies and callbacks are written
to stdout. Placements and breaks that are not cancelled are applied to the
world so later calls see them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSandbox(ctx, cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&cfg.dataDir, "data-dir", ".", "directory holding config.yml, logs and journals")
	cmd.Flags().StringVar(&cfg.server, "server", "sandbox", "server name written to journals")

	return cmd
}

// lineWriter serializes whole-line writes from replies and callbacks.
type lineWriter struct {
	mu  sync.Mutex
	out io.Writer
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.out.Write(p)
}

func runSandbox(ctx context.Context, cfg *sandboxConfig, in io.Reader, out io.Writer) error {
	w := memworld.New()
	lw := &lineWriter{out: out}

	ext, err := extension.New(extension.Options{
		DataDir: cfg.dataDir,
		Version: version,
		Server:  cfg.server,
		World:   w,
		Out:     lw,
	})
	if err != nil {
		return err
	}
	if err := ext.Enable(); err != nil {
		return fmt.Errorf("enabling extension: %w", err)
	}

	host := &sandboxHost{world: w, parser: parser.NewParser(ext.Logger())}
	serveErr := serve(ctx, in, lw, func(line string) string {
		reply := ext.Bridge().Handle(line)
		host.apply(line, reply)
		return reply
	})

	if err := ext.Disable(); err != nil {
		return fmt.Errorf("disabling extension: %w", err)
	}
	return serveErr
}

// serve answers one line at a time until in is exhausted or ctx is done.
// Lines are read on their own goroutine so a signal is not held up by a
// blocked read.
func serve(ctx context.Context, in io.Reader, out io.Writer, handle func(string) string) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 4096), 64*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case raw, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			line := strings.TrimSpace(raw)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			if _, err := io.WriteString(out, handle(line)+"\n"); err != nil {
				return err
			}
		}
	}
}

// sandboxHost plays the part of the server for block changes the extension
// only rules on.
type sandboxHost struct {
	world  *memworld.World
	parser *parser.Parser
}

func (h *sandboxHost) apply(line, reply string) {
	if !strings.HasPrefix(reply, `["ok"`) || strings.Contains(reply, `"cancel":true`) {
		return
	}
	parts := strings.Split(line, "|")
	switch parts[0] {
	case worker.CmdPlace:
		ev, err := h.parser.ParsePlace(parts[1:])
		if err != nil {
			return
		}
		h.world.SetMaterial(ev.Cell, world.Material(ev.Item.Material))
	case worker.CmdBreak:
		ev, err := h.parser.ParseBreak(parts[1:])
		if err != nil {
			return
		}
		h.world.SetMaterial(ev.Cell, world.Air)
	}
}
