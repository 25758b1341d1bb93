package dispatcher

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/itnt/extension/internal/dispatcher"

// instruments live on the global meter provider and are no-ops until the
// process installs one.
type instruments struct {
	queued       metric.Int64ObservableGauge
	processed    metric.Int64Counter
	dropped      metric.Int64Counter
	duration     metric.Float64Histogram
	registration metric.Registration
}

func newInstruments(lens func() map[string]int) (*instruments, error) {
	m := otel.Meter(instrumentationName)
	in := &instruments{}

	var err error
	if in.queued, err = m.Int64ObservableGauge("itnt.dispatcher.queue.size",
		metric.WithDescription("Events waiting in a buffered command queue")); err != nil {
		return nil, fmt.Errorf("creating queue gauge: %w", err)
	}
	if in.processed, err = m.Int64Counter("itnt.dispatcher.events.processed",
		metric.WithDescription("Buffered events handled")); err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}
	if in.dropped, err = m.Int64Counter("itnt.dispatcher.events.dropped",
		metric.WithDescription("Events refused by a full queue")); err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}
	if in.duration, err = m.Float64Histogram("itnt.dispatcher.handle.duration",
		metric.WithDescription("Time the host waited for a synchronous verdict"),
		metric.WithUnit("ms")); err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	in.registration, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		for cmd, n := range lens() {
			o.ObserveInt64(in.queued, int64(n), metric.WithAttributes(commandAttr(cmd)))
		}
		return nil
	}, in.queued)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}
	return in, nil
}

func commandAttr(cmd string) attribute.KeyValue {
	return attribute.String("command", cmd)
}
