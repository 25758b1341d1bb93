package bridge

import (
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/itnt/extension/internal/handlers"
	"github.com/itnt/extension/internal/parser"
	"github.com/itnt/extension/internal/permission"
	"github.com/itnt/extension/pkg/core"
)

// Player is an online player whose messages and items travel back to the
// host as callbacks.
type Player struct {
	bridge   *Bridge
	name     string
	perms    *permission.Set
	creative bool
}

var _ handlers.Player = (*Player)(nil)

func (p *Player) Name() string                   { return p.name }
func (p *Player) HasPermission(node string) bool { return p.perms.Has(node) }
func (p *Player) Creative() bool                 { return p.creative }

func (p *Player) SendMessage(msg string) {
	p.bridge.Callback(CallbackMessage, p.name, msg)
}

func (p *Player) GiveItem(item core.ItemStack) {
	p.bridge.Callback(CallbackGive, p.name, item.TypeID, strconv.Itoa(item.Amount))
}

// Console is the server console. It holds every permission.
type Console struct {
	bridge *Bridge
}

var _ handlers.Sender = (*Console)(nil)

// NewConsole creates the console sender.
func NewConsole(b *Bridge) *Console { return &Console{bridge: b} }

func (c *Console) Name() string              { return handlers.ConsoleName }
func (c *Console) HasPermission(string) bool { return true }

func (c *Console) SendMessage(msg string) {
	c.bridge.Callback(CallbackMessage, handlers.ConsoleName, msg)
}

// Players is the roster of online players as announced by the host.
type Players struct {
	bridge *Bridge

	mu      sync.RWMutex
	players map[string]*Player
}

var _ handlers.Directory = (*Players)(nil)

// NewPlayers creates an empty roster.
func NewPlayers(b *Bridge) *Players {
	return &Players{bridge: b, players: make(map[string]*Player)}
}

// Join registers a player, replacing any earlier entry with the same name.
func (r *Players) Join(info parser.PlayerInfo) error {
	perms, err := permission.NewSet(info.Permissions...)
	if err != nil {
		return fmt.Errorf("permissions of %s: %w", info.Name, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.players[info.Name] = &Player{bridge: r.bridge, name: info.Name, perms: perms, creative: info.Creative}
	return nil
}

// Quit forgets a player and reports whether it was online.
func (r *Players) Quit(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.players[name]
	delete(r.players, name)
	return ok
}

func (r *Players) Player(name string) (handlers.Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.players[name]
	if !ok {
		return nil, false
	}
	return p, true
}

// Names lists online players in sorted order.
func (r *Players) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.players))
	for name := range r.players {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Len returns the number of online players.
func (r *Players) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}
