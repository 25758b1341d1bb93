package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/itnt/extension/pkg/core"
)

const instrumentationName = "github.com/itnt/extension/internal/engine"

type instruments struct {
	activated metric.Int64Counter
	detonated metric.Int64Counter
	aborted   metric.Int64Counter
	rejected  metric.Int64Counter

	active       metric.Int64ObservableGauge
	zones        metric.Int64ObservableGauge
	registration metric.Registration
}

func newInstruments(e *Engine) (*instruments, error) {
	m := otel.Meter(instrumentationName)
	in := &instruments{}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&in.activated, "itnt.instances.activated", "Instances that started counting down"},
		{&in.detonated, "itnt.instances.detonated", "Instances that reached the end of their fuse"},
		{&in.aborted, "itnt.instances.aborted", "Instances that lost their world object or label"},
		{&in.rejected, "itnt.instances.rejected", "Activations refused before anything was spawned"},
	}
	for _, c := range counters {
		*c.dst, err = m.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("creating %s counter: %w", c.name, err)
		}
	}

	in.active, err = m.Int64ObservableGauge(
		"itnt.instances.active",
		metric.WithDescription("Instances currently counting down"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating active gauge: %w", err)
	}
	in.zones, err = m.Int64ObservableGauge(
		"itnt.zones.active",
		metric.WithDescription("Live damage suppression zones"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating zones gauge: %w", err)
	}

	in.registration, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(in.active, int64(e.registry.Len()))
			o.ObserveInt64(in.zones, int64(e.zones.Len()))
			return nil
		},
		in.active, in.zones,
	)
	if err != nil {
		return nil, fmt.Errorf("registering gauge callback: %w", err)
	}
	return in, nil
}

func (in *instruments) count(kind core.LifecycleKind, typeID string) {
	var c metric.Int64Counter
	switch kind {
	case core.KindActivated:
		c = in.activated
	case core.KindDetonated:
		c = in.detonated
	case core.KindAborted:
		c = in.aborted
	case core.KindRejected:
		c = in.rejected
	default:
		return
	}
	c.Add(context.Background(), 1, metric.WithAttributes(attribute.String("type", typeID)))
}
