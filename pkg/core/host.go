package core

// Hand is the hand an interaction was made with.
type Hand string

const (
	HandMain Hand = "main"
	HandOff  Hand = "off"
)

// Action is the kind of click reported by the host.
type Action string

const (
	ActionRightClickBlock Action = "right_click_block"
	ActionRightClickAir   Action = "right_click_air"
	ActionLeftClickBlock  Action = "left_click_block"
	ActionLeftClickAir    Action = "left_click_air"
)

// DamageCause is why a creature took damage.
type DamageCause string

const (
	CauseEntityExplosion DamageCause = "entity_explosion"
	CauseBlockExplosion  DamageCause = "block_explosion"
)

// IsExplosion reports whether the damage came from any explosion.
func (c DamageCause) IsExplosion() bool {
	return c == CauseEntityExplosion || c == CauseBlockExplosion
}

// Face is the side of a block that was clicked.
type Face string

const (
	FaceUp    Face = "up"
	FaceDown  Face = "down"
	FaceNorth Face = "north"
	FaceSouth Face = "south"
	FaceEast  Face = "east"
	FaceWest  Face = "west"
)

// Neighbor returns the cell adjacent to b across face f. An unknown face
// yields b itself.
func (f Face) Neighbor(b BlockPos) BlockPos {
	switch f {
	case FaceUp:
		return b.Offset(0, 1, 0)
	case FaceDown:
		return b.Offset(0, -1, 0)
	case FaceNorth:
		return b.Offset(0, 0, -1)
	case FaceSouth:
		return b.Offset(0, 0, 1)
	case FaceEast:
		return b.Offset(1, 0, 0)
	case FaceWest:
		return b.Offset(-1, 0, 0)
	}
	return b
}

// HeldItem describes the item in a player's hand.
type HeldItem struct {
	// Material is the host item material, e.g. "tnt" or "flint_and_steel".
	Material string
	// TypeID is the explosive type the item carries, empty for plain items.
	TypeID string
	Amount int
}

// Tools that ignite a placed explosive block.
const (
	MaterialFlintAndSteel = "flint_and_steel"
	MaterialFireCharge    = "fire_charge"
)

// PlaceEvent is a block placement by a player.
type PlaceEvent struct {
	Player string
	Item   HeldItem
	Cell   BlockPos
}

// InteractEvent is a click by a player.
type InteractEvent struct {
	Player  string
	Action  Action
	Hand    Hand
	Item    HeldItem
	Clicked BlockPos
	Face    Face
}

// BreakEvent is a block broken by a player.
type BreakEvent struct {
	Player string
	Cell   BlockPos
}

// DamageEvent is damage about to be applied to a creature.
type DamageEvent struct {
	Cause    DamageCause
	Position Position
}
