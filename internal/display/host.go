package display

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/itnt/extension/pkg/core"
)

// Callback sends a command back to the host process.
type Callback func(command string, args ...string)

// Host-bound label commands.
const (
	CmdLabelCreate = ":LABEL:CREATE:"
	CmdLabelUpdate = ":LABEL:UPDATE:"
	CmdLabelMove   = ":LABEL:MOVE:"
	CmdLabelDelete = ":LABEL:DELETE:"
	CmdLabelClear  = ":LABEL:CLEAR:"
)

// Host delegates labels to a hologram plugin on the host side. The host
// reports labels it lost through Invalidate.
type Host struct {
	emit Callback

	mu    sync.RWMutex
	alive map[core.TrackingID]struct{}
}

var _ Provider = (*Host)(nil)

// NewHost creates a provider that emits label commands through emit.
func NewHost(emit Callback) *Host {
	return &Host{emit: emit, alive: make(map[core.TrackingID]struct{})}
}

func (h *Host) Name() string { return "host" }

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', 3, 64)
}

func (h *Host) tracked(id core.TrackingID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.alive[id]
	return ok
}

func (h *Host) Create(pos core.Position, text string, id core.TrackingID) error {
	h.mu.Lock()
	h.alive[id] = struct{}{}
	h.mu.Unlock()

	h.emit(CmdLabelCreate, id.String(), pos.World, formatCoord(pos.X), formatCoord(pos.Y), formatCoord(pos.Z), text)
	return nil
}

func (h *Host) Update(id core.TrackingID, text string) error {
	if !h.tracked(id) {
		return fmt.Errorf("%w: %s", ErrUnknownLabel, id)
	}
	h.emit(CmdLabelUpdate, id.String(), text)
	return nil
}

func (h *Host) Move(id core.TrackingID, pos core.Position) error {
	if !h.tracked(id) {
		return fmt.Errorf("%w: %s", ErrUnknownLabel, id)
	}
	h.emit(CmdLabelMove, id.String(), pos.World, formatCoord(pos.X), formatCoord(pos.Y), formatCoord(pos.Z))
	return nil
}

func (h *Host) IsAlive(id core.TrackingID) bool {
	return h.tracked(id)
}

func (h *Host) Delete(id core.TrackingID) error {
	h.mu.Lock()
	_, ok := h.alive[id]
	delete(h.alive, id)
	h.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLabel, id)
	}
	h.emit(CmdLabelDelete, id.String())
	return nil
}

func (h *Host) Clear() {
	h.mu.Lock()
	h.alive = make(map[core.TrackingID]struct{})
	h.mu.Unlock()
	h.emit(CmdLabelClear)
}

// Invalidate marks a label as gone, as reported by the host.
func (h *Host) Invalidate(id core.TrackingID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.alive, id)
}
