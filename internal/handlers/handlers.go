// Package handlers translates host events and commands into engine calls.
package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/itnt/extension/internal/cache"
	"github.com/itnt/extension/internal/catalog"
	"github.com/itnt/extension/internal/engine"
	"github.com/itnt/extension/internal/permission"
	"github.com/itnt/extension/internal/text"
	"github.com/itnt/extension/internal/world"
	"github.com/itnt/extension/pkg/core"
)

var (
	ErrNoPermission   = errors.New("no permission")
	ErrUnknownPlayer  = errors.New("unknown player")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrUnknownCommand = errors.New("unknown command")
)

// Sender is anyone who can run commands.
type Sender interface {
	Name() string
	SendMessage(msg string)
	HasPermission(node string) bool
}

// Player is an online player.
type Player interface {
	Sender
	GiveItem(item core.ItemStack)
	Creative() bool
}

// Directory finds online players.
type Directory interface {
	Player(name string) (Player, bool)
	Names() []string
}

// Engine is the part of the countdown engine the handlers drive.
type Engine interface {
	Activate(loc core.BlockPos, t *core.InstanceType, igniter engine.Igniter) (core.TrackingID, error)
	IsSuppressed(pos core.Position) bool
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Engine   Engine
	Catalog  func() *catalog.Catalog
	World    world.Simulation
	Placed   *cache.PlacedCache
	Players  Directory
	Console  Sender
	Messages *text.Messages
	// Reload re-reads configuration. The reload command reports its error.
	Reload func() error
	Logger *slog.Logger
}

// Result tells the host how to finish the event it reported.
type Result struct {
	Cancel      bool `json:"cancel,omitempty"`
	CancelDrops bool `json:"cancelDrops,omitempty"`
	// Consume is how many items to take from the hand.
	Consume int `json:"consume,omitempty"`
	// ToolDamage is durability to take from the held tool.
	ToolDamage int `json:"toolDamage,omitempty"`
}

// Service reacts to host events.
type Service struct {
	deps   Dependencies
	logger *slog.Logger
}

// NewService creates a new handler service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Messages == nil {
		deps.Messages = text.NewMessages(nil)
	}
	if deps.Placed == nil {
		deps.Placed = cache.NewPlacedCache()
	}
	return &Service{deps: deps, logger: deps.Logger}
}

func (s *Service) lookup(key string) (*core.InstanceType, bool) {
	if s.deps.Catalog == nil {
		return nil, false
	}
	c := s.deps.Catalog()
	if c == nil {
		return nil, false
	}
	return c.Lookup(key)
}

func (s *Service) player(name string) (Player, error) {
	if s.deps.Players != nil {
		if p, ok := s.deps.Players.Player(name); ok {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownPlayer, name)
}

// ConsoleName is the sender name the host uses for the server console.
const ConsoleName = "console"

// Sender resolves a command sender by name.
func (s *Service) Sender(name string) (Sender, error) {
	if strings.EqualFold(name, ConsoleName) && s.deps.Console != nil {
		return s.deps.Console, nil
	}
	return s.player(name)
}

func canPlace(p Sender, typeID string) bool {
	return p.HasPermission(permission.Place(typeID)) || p.HasPermission(permission.PlaceAll)
}

// activate runs an activation and keeps expected rejections out of the
// error path; the engine already told the igniter about them.
func (s *Service) activate(loc core.BlockPos, t *core.InstanceType, p Player) error {
	_, err := s.deps.Engine.Activate(loc, t, p)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, engine.ErrDisabledZone), errors.Is(err, engine.ErrExtinguished):
		s.logger.Debug("Activation rejected", "type", t.ID, "cell", loc, "player", p.Name(), "reason", err)
		return nil
	default:
		return fmt.Errorf("activating %s at %s: %w", t.ID, loc, err)
	}
}

// OnPlace handles a custom explosive placed as a block. Auto-ignite types
// never land as blocks; OnInteract activates them instead.
func (s *Service) OnPlace(e core.PlaceEvent) (Result, error) {
	if e.Item.TypeID == "" {
		return Result{}, nil
	}
	p, err := s.player(e.Player)
	if err != nil {
		return Result{}, err
	}
	t, ok := s.lookup(e.Item.TypeID)
	if !ok {
		s.logger.Warn("Player placed an unknown explosive type", "player", e.Player, "type", e.Item.TypeID)
		return Result{}, nil
	}

	if !canPlace(p, t.ID) {
		p.SendMessage(s.deps.Messages.Get(text.MsgNoPermission, nil))
		return Result{Cancel: true}, nil
	}
	if t.AutoIgnite {
		return Result{Cancel: true}, nil
	}
	s.deps.Placed.Tag(e.Cell, t.ID)
	return Result{}, nil
}

// OnInteract handles right clicks: throwing down an auto-ignite explosive,
// or lighting a placed one with a flint and steel or a fire charge.
func (s *Service) OnInteract(e core.InteractEvent) (Result, error) {
	if e.Action != core.ActionRightClickBlock || e.Hand != core.HandMain {
		return Result{}, nil
	}
	if e.Item.TypeID != "" {
		return s.autoIgnite(e)
	}
	if e.Item.Material == core.MaterialFlintAndSteel || e.Item.Material == core.MaterialFireCharge {
		return s.ignite(e)
	}
	return Result{}, nil
}

func (s *Service) autoIgnite(e core.InteractEvent) (Result, error) {
	t, ok := s.lookup(e.Item.TypeID)
	if !ok || !t.AutoIgnite {
		return Result{}, nil
	}
	p, err := s.player(e.Player)
	if err != nil {
		return Result{Cancel: true}, err
	}
	if !canPlace(p, t.ID) {
		p.SendMessage(s.deps.Messages.Get(text.MsgNoPermission, nil))
		return Result{Cancel: true}, nil
	}

	loc := e.Face.Neighbor(e.Clicked)
	if !s.deps.World.Material(loc).Replaceable() {
		return Result{Cancel: true}, nil
	}
	res := Result{Cancel: true}
	if err := s.activate(loc, t, p); err != nil {
		return res, err
	}
	if !p.Creative() {
		res.Consume = 1
	}
	return res, nil
}

func (s *Service) ignite(e core.InteractEvent) (Result, error) {
	if s.deps.World.Material(e.Clicked) != world.TNT {
		return Result{}, nil
	}
	typeID, ok := s.deps.Placed.Get(e.Clicked)
	if !ok {
		return Result{}, nil
	}
	t, ok := s.lookup(typeID)
	if !ok {
		return Result{}, nil
	}
	p, err := s.player(e.Player)
	if err != nil {
		return Result{}, err
	}

	res := Result{Cancel: true}
	s.deps.Placed.Untag(e.Clicked)
	if err := s.activate(e.Clicked, t, p); err != nil {
		return res, err
	}
	if !p.Creative() {
		if e.Item.Material == core.MaterialFlintAndSteel {
			res.ToolDamage = 1
		} else {
			res.Consume = 1
		}
	}
	return res, nil
}

// OnBreak swaps the vanilla drop of a tagged block for the custom item.
func (s *Service) OnBreak(e core.BreakEvent) (Result, error) {
	if s.deps.World.Material(e.Cell) != world.TNT {
		return Result{}, nil
	}
	typeID, ok := s.deps.Placed.Untag(e.Cell)
	if !ok {
		return Result{}, nil
	}
	t, ok := s.lookup(typeID)
	if !ok {
		s.logger.Warn("Broken explosive has an unknown type", "type", typeID, "cell", e.Cell)
		return Result{}, nil
	}
	s.deps.World.DropItem(e.Cell.Center(), core.ItemStack{TypeID: t.ID, Amount: 1})
	return Result{CancelDrops: true}, nil
}

// OnDamage vetoes explosion damage inside a suppression zone.
func (s *Service) OnDamage(e core.DamageEvent) Result {
	if e.Cause.IsExplosion() && s.deps.Engine.IsSuppressed(e.Position) {
		return Result{Cancel: true}
	}
	return Result{}
}
