// Package parser converts raw bridge arguments into host events.
package parser

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/itnt/extension/internal/util"
	"github.com/itnt/extension/pkg/core"
)

// parseIntFromFloat parses a string that may be an integer ("32") or an
// integral float ("32.00"). Hosts that only have a number type send the latter.
func parseIntFromFloat(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("parseIntFromFloat: %q is not a valid int64", s)
	}
	return int64(f), nil
}

// Parser provides pure []string -> event conversion.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

func clean(data []string) []string {
	out := make([]string, len(data))
	for i, v := range data {
		out[i] = util.Clean(v)
	}
	return out
}

func need(data []string, n int) error {
	if len(data) < n {
		return fmt.Errorf("insufficient data fields: got %d, need %d", len(data), n)
	}
	return nil
}

// parseCell parses a world name and an "x,y,z" triple into a cell. Non
// integral coordinates are floored onto the cell that contains them.
func parseCell(world, coords string) (core.BlockPos, error) {
	pos, err := parsePosition(world, coords)
	if err != nil {
		return core.BlockPos{}, err
	}
	return pos.Block(), nil
}

func parsePosition(world, coords string) (core.Position, error) {
	if world == "" {
		return core.Position{}, fmt.Errorf("empty world name")
	}
	x, y, z, err := util.ParseTriple(coords)
	if err != nil {
		return core.Position{}, fmt.Errorf("error parsing position %q: %w", coords, err)
	}
	return core.Position{World: world, X: x, Y: y, Z: z}, nil
}

func parseHeld(material, typeID, amount string) (core.HeldItem, error) {
	n, err := parseIntFromFloat(amount)
	if err != nil {
		return core.HeldItem{}, fmt.Errorf("error parsing amount: %w", err)
	}
	return core.HeldItem{
		Material: strings.ToLower(material),
		TypeID:   strings.ToLower(typeID),
		Amount:   int(n),
	}, nil
}
