package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/itnt/extension/internal/dispatcher"
	"github.com/itnt/extension/internal/handlers"
	"github.com/itnt/extension/internal/influx"
	"github.com/itnt/extension/internal/util"
	"github.com/itnt/extension/pkg/core"
)

// Bridge commands handled by the manager.
const (
	CmdPlace      = ":PLACE:"
	CmdInteract   = ":INTERACT:"
	CmdBreak      = ":BREAK:"
	CmdDamage     = ":DAMAGE:"
	CmdCommand    = ":COMMAND:"
	CmdComplete   = ":COMPLETE:"
	CmdPlayerJoin = ":PLAYER:JOIN:"
	CmdPlayerQuit = ":PLAYER:QUIT:"
	CmdLabelGone  = ":LABEL:GONE:"
	CmdMetric     = ":METRIC:"
)

// RegisterHandlers registers all event handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Gameplay events - sync, the host waits for the verdict
	d.Register(CmdPlace, m.handlePlace, dispatcher.Logged())
	d.Register(CmdInteract, m.handleInteract, dispatcher.Logged())
	d.Register(CmdBreak, m.handleBreak, dispatcher.Logged())
	d.Register(CmdDamage, m.handleDamage)

	// Commands - sync
	d.Register(CmdCommand, m.handleCommand, dispatcher.Logged())
	d.Register(CmdComplete, m.handleComplete)

	// Roster - sync so commands see the player immediately
	d.Register(CmdPlayerJoin, m.handlePlayerJoin, dispatcher.Logged())
	d.Register(CmdPlayerQuit, m.handlePlayerQuit, dispatcher.Logged())

	// Label loss reports - buffered, nobody waits on them
	d.Register(CmdLabelGone, m.handleLabelGone, dispatcher.Buffered(1000), dispatcher.Logged())

	if m.deps.Metrics != nil {
		d.Register(CmdMetric, m.handleMetric, dispatcher.Buffered(1000))
	}
}

func (m *Manager) handlePlace(e dispatcher.Event) (any, error) {
	ev, err := m.deps.Parser.ParsePlace(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse place: %w", err)
	}
	return m.deps.Service.OnPlace(ev)
}

func (m *Manager) handleInteract(e dispatcher.Event) (any, error) {
	ev, err := m.deps.Parser.ParseInteract(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse interact: %w", err)
	}
	return m.deps.Service.OnInteract(ev)
}

func (m *Manager) handleBreak(e dispatcher.Event) (any, error) {
	ev, err := m.deps.Parser.ParseBreak(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse break: %w", err)
	}
	return m.deps.Service.OnBreak(ev)
}

func (m *Manager) handleDamage(e dispatcher.Event) (any, error) {
	ev, err := m.deps.Parser.ParseDamage(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse damage: %w", err)
	}
	return m.deps.Service.OnDamage(ev), nil
}

// rejection reports whether err is a command outcome already explained to
// the sender, as opposed to a failure worth logging.
func rejection(err error) bool {
	return errors.Is(err, handlers.ErrNoPermission) ||
		errors.Is(err, handlers.ErrUnknownPlayer) ||
		errors.Is(err, handlers.ErrInvalidAmount) ||
		errors.Is(err, handlers.ErrUnknownCommand)
}

func (m *Manager) handleCommand(e dispatcher.Event) (any, error) {
	name, args, err := m.deps.Parser.ParseCommand(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse command: %w", err)
	}
	sender, err := m.deps.Service.Sender(name)
	if err != nil {
		return nil, err
	}

	if err := m.deps.Service.Execute(sender, args); err != nil {
		if rejection(err) {
			m.logger.Debug("Command rejected", "sender", name, "args", args, "reason", err)
			return "rejected", nil
		}
		return nil, err
	}
	return "ok", nil
}

func (m *Manager) handleComplete(e dispatcher.Event) (any, error) {
	name, args, err := m.deps.Parser.ParseCommand(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse completion: %w", err)
	}
	sender, err := m.deps.Service.Sender(name)
	if err != nil {
		return nil, err
	}
	return m.deps.Service.Complete(sender, args), nil
}

func (m *Manager) handlePlayerJoin(e dispatcher.Event) (any, error) {
	if m.deps.Roster == nil {
		return nil, nil
	}
	info, err := m.deps.Parser.ParseJoin(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse player join: %w", err)
	}
	if err := m.deps.Roster.Join(info); err != nil {
		return nil, fmt.Errorf("registering %s: %w", info.Name, err)
	}
	return "ok", nil
}

func (m *Manager) handlePlayerQuit(e dispatcher.Event) (any, error) {
	if m.deps.Roster == nil {
		return nil, nil
	}
	name, err := m.deps.Parser.ParseName(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse player quit: %w", err)
	}
	if !m.deps.Roster.Quit(name) {
		m.logger.Debug("Quit for unknown player", "name", name)
	}
	return "ok", nil
}

func (m *Manager) handleLabelGone(e dispatcher.Event) (any, error) {
	if len(e.Args) < 1 {
		return nil, fmt.Errorf("label gone: missing tracking id")
	}
	id, err := core.ParseTrackingID(util.Clean(e.Args[0]))
	if err != nil {
		return nil, fmt.Errorf("label gone: %w", err)
	}
	if m.deps.Labels == nil {
		return nil, nil
	}
	if inv, ok := m.deps.Labels().(Invalidator); ok {
		inv.Invalidate(id)
	}
	return nil, nil
}

func (m *Manager) handleMetric(e dispatcher.Event) (any, error) {
	data := make([]string, len(e.Args))
	for i, a := range e.Args {
		data[i] = util.Clean(a)
	}
	bucket, point, err := influx.ProcessMetricData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse metric: %w", err)
	}
	return nil, m.deps.Metrics.WritePoint(context.Background(), bucket, point)
}
