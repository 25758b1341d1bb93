package parser

import (
	"fmt"
	"strings"

	"github.com/itnt/extension/pkg/core"
)

// ParsePlace parses a block placement.
// Args: [player, material, typeId, amount, world, "x,y,z"]
func (p *Parser) ParsePlace(data []string) (core.PlaceEvent, error) {
	var result core.PlaceEvent
	if err := need(data, 6); err != nil {
		return result, err
	}
	data = clean(data)

	item, err := parseHeld(data[1], data[2], data[3])
	if err != nil {
		return result, err
	}
	cell, err := parseCell(data[4], data[5])
	if err != nil {
		return result, err
	}

	result.Player = data[0]
	result.Item = item
	result.Cell = cell
	return result, nil
}

// ParseInteract parses a click.
// Args: [player, action, hand, material, typeId, amount, world, "x,y,z", face]
func (p *Parser) ParseInteract(data []string) (core.InteractEvent, error) {
	var result core.InteractEvent
	if err := need(data, 9); err != nil {
		return result, err
	}
	data = clean(data)

	item, err := parseHeld(data[3], data[4], data[5])
	if err != nil {
		return result, err
	}
	cell, err := parseCell(data[6], data[7])
	if err != nil {
		return result, err
	}

	result.Player = data[0]
	result.Action = core.Action(strings.ToLower(data[1]))
	result.Hand = core.Hand(strings.ToLower(data[2]))
	result.Item = item
	result.Clicked = cell
	result.Face = core.Face(strings.ToLower(data[8]))

	if result.Hand != core.HandMain && result.Hand != core.HandOff {
		return result, fmt.Errorf("unknown hand %q", data[2])
	}
	return result, nil
}

// ParseBreak parses a block broken by a player.
// Args: [player, world, "x,y,z"]
func (p *Parser) ParseBreak(data []string) (core.BreakEvent, error) {
	var result core.BreakEvent
	if err := need(data, 3); err != nil {
		return result, err
	}
	data = clean(data)

	cell, err := parseCell(data[1], data[2])
	if err != nil {
		return result, err
	}
	result.Player = data[0]
	result.Cell = cell
	return result, nil
}

// ParseDamage parses damage about to hit a creature.
// Args: [cause, world, "x,y,z"]
func (p *Parser) ParseDamage(data []string) (core.DamageEvent, error) {
	var result core.DamageEvent
	if err := need(data, 3); err != nil {
		return result, err
	}
	data = clean(data)

	pos, err := parsePosition(data[1], data[2])
	if err != nil {
		return result, err
	}
	result.Cause = core.DamageCause(strings.ToLower(data[0]))
	result.Position = pos
	return result, nil
}
