// Package dispatcher routes bridge commands to their handlers. Synchronous
// commands run on the caller's goroutine and return the handler's verdict;
// buffered commands are queued and answered with "queued".
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrClosed is returned by Dispatch after Close.
	ErrClosed = errors.New("dispatcher closed")
	// ErrUnknownCommand is returned for commands nobody registered.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrQueueFull is returned when a non-blocking queue refuses an event.
	ErrQueueFull = errors.New("queue full")
)

// Event is one command received from the host.
type Event struct {
	Command   string
	Args      []string
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger is the subset of *slog.Logger the dispatcher uses.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures a registration.
type Option func(*route)

// Buffered queues events for a background worker; size bounds the queue.
func Buffered(size int) Option {
	return func(r *route) { r.size = size }
}

// Blocking makes a full buffered queue wait instead of dropping.
func Blocking() Option {
	return func(r *route) { r.blocking = true }
}

// Logged logs each event at debug level and failures at error level.
func Logged() Option {
	return func(r *route) { r.logged = true }
}

type route struct {
	command  string
	handler  HandlerFunc
	size     int
	blocking bool
	logged   bool
	queue    chan Event
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	logger Logger
	inst   *instruments

	mu      sync.RWMutex
	routes  map[string]*route
	closed  bool
	workers sync.WaitGroup
}

// New creates a Dispatcher logging to logger, slog.Default if nil.
func New(logger Logger) (*Dispatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{logger: logger, routes: make(map[string]*route)}

	inst, err := newInstruments(d.QueueLens)
	if err != nil {
		return nil, err
	}
	d.inst = inst
	return d, nil
}

// Register adds the handler for command. Registering a command again
// replaces the earlier handler and retires its queue.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	r := &route{command: command, handler: h}
	for _, opt := range opts {
		opt(r)
	}
	if r.size > 0 {
		r.queue = make(chan Event, r.size)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if old, ok := d.routes[command]; ok && old.queue != nil {
		close(old.queue)
	}
	d.routes[command] = r
	if r.queue != nil {
		d.workers.Add(1)
		go d.drain(r)
	}
}

// Dispatch routes an event to its handler.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return nil, ErrClosed
	}
	r, ok := d.routes[e.Command]
	if !ok {
		d.mu.RUnlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, e.Command)
	}
	if r.queue != nil {
		// enqueue holds the read lock so Close cannot close the queue mid-send
		defer d.mu.RUnlock()
		return d.enqueue(r, e)
	}
	d.mu.RUnlock()

	start := time.Now()
	result, err := d.call(r, e)
	d.inst.duration.Record(context.Background(), float64(time.Since(start).Microseconds())/1000,
		metric.WithAttributes(commandAttr(r.command)))
	return result, err
}

func (d *Dispatcher) enqueue(r *route, e Event) (any, error) {
	if r.blocking {
		r.queue <- e
		return "queued", nil
	}
	select {
	case r.queue <- e:
		return "queued", nil
	default:
		d.inst.dropped.Add(context.Background(), 1, metric.WithAttributes(commandAttr(r.command)))
		return nil, fmt.Errorf("%w: %s", ErrQueueFull, r.command)
	}
}

func (d *Dispatcher) drain(r *route) {
	defer d.workers.Done()
	for e := range r.queue {
		if _, err := d.call(r, e); err != nil && !r.logged {
			d.logger.Error("Buffered event failed", "command", r.command, "error", err)
		}
		d.inst.processed.Add(context.Background(), 1, metric.WithAttributes(commandAttr(r.command)))
	}
}

func (d *Dispatcher) call(r *route, e Event) (any, error) {
	if !r.logged {
		return r.handler(e)
	}

	start := time.Now()
	d.logger.Debug("Handling event", "command", r.command, "args", len(e.Args))
	result, err := r.handler(e)
	if err != nil {
		d.logger.Error("Event failed", "command", r.command, "duration", time.Since(start), "error", err)
	} else {
		d.logger.Debug("Event complete", "command", r.command, "duration", time.Since(start))
	}
	return result, err
}

// HasHandler reports whether command is registered.
func (d *Dispatcher) HasHandler(command string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.routes[command]
	return ok
}

// Commands lists the registered commands, sorted.
func (d *Dispatcher) Commands() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.routes))
	for cmd := range d.routes {
		out = append(out, cmd)
	}
	slices.Sort(out)
	return out
}

// QueueLens returns the backlog of every buffered command.
func (d *Dispatcher) QueueLens() map[string]int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]int)
	for cmd, r := range d.routes {
		if r.queue != nil {
			out[cmd] = len(r.queue)
		}
	}
	return out
}

// Close stops accepting events and waits for buffered handlers to drain
// their queues. It is safe to call more than once.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	for _, r := range d.routes {
		if r.queue != nil {
			close(r.queue)
		}
	}
	d.mu.Unlock()

	d.workers.Wait()
	return d.inst.registration.Unregister()
}
