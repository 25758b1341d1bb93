// Package catalog holds the configured explosive types.
package catalog

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/itnt/extension/pkg/core"
)

const (
	DefaultFuseSeconds = 4
	DefaultPower       = 4.0
)

// Definition is one entry of the tnt section as written in config.yml.
// Pointer fields distinguish an omitted key from an explicit zero.
type Definition struct {
	DisplayName    string   `mapstructure:"display-name"`
	Lore           []string `mapstructure:"lore"`
	FuseTime       *int     `mapstructure:"fuse-time"`
	AutoIgnite     bool     `mapstructure:"auto-ignite"`
	Power          *float64 `mapstructure:"power"`
	BlockDamage    *bool    `mapstructure:"block-damage"`
	EntityDamage   *bool    `mapstructure:"entity-damage"`
	ExplodeInWater bool     `mapstructure:"explode-in-water"`
	BreakObsidian  bool     `mapstructure:"break-obsidian"`
	DisabledWorlds []string `mapstructure:"disabled-worlds"`
	Aliases        []string `mapstructure:"aliases"`
}

func (d Definition) toType(id string) (*core.InstanceType, error) {
	t := &core.InstanceType{
		ID:                id,
		DisplayName:       d.DisplayName,
		Lore:              d.Lore,
		FuseSeconds:       DefaultFuseSeconds,
		AutoIgnite:        d.AutoIgnite,
		Power:             DefaultPower,
		DestroysTerrain:   true,
		DamagesCreatures:  true,
		DetonatesInLiquid: d.ExplodeInWater,
		DestroysHardened:  d.BreakObsidian,
		DisabledZones:     d.DisabledWorlds,
	}
	if t.DisplayName == "" {
		t.DisplayName = id
	}
	if d.FuseTime != nil {
		t.FuseSeconds = *d.FuseTime
	}
	if d.Power != nil {
		t.Power = *d.Power
	}
	if d.BlockDamage != nil {
		t.DestroysTerrain = *d.BlockDamage
	}
	if d.EntityDamage != nil {
		t.DamagesCreatures = *d.EntityDamage
	}

	if t.Power <= 0 {
		return nil, fmt.Errorf("power must be positive, got %v", t.Power)
	}
	if t.FuseSeconds < 0 {
		return nil, fmt.Errorf("fuse-time must not be negative, got %d", t.FuseSeconds)
	}
	return t, nil
}

// Catalog is an immutable set of types. Swap the whole catalog on reload.
type Catalog struct {
	types   map[string]*core.InstanceType
	aliases map[string]string
}

// New builds a catalog from definitions keyed by type id. Invalid types and
// conflicting aliases are logged and skipped.
func New(defs map[string]Definition, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Catalog{
		types:   make(map[string]*core.InstanceType, len(defs)),
		aliases: make(map[string]string),
	}

	ids := make([]string, 0, len(defs))
	for id := range defs {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	// every id is indexed before any alias
	for _, raw := range ids {
		id := strings.ToLower(raw)
		t, err := defs[raw].toType(id)
		if err != nil {
			logger.Warn("Skipping explosive type", "type", id, "error", err)
			continue
		}
		c.types[id] = t
	}

	for _, raw := range ids {
		id := strings.ToLower(raw)
		t, ok := c.types[id]
		if !ok {
			continue
		}
		kept := make([]string, 0, len(defs[raw].Aliases))
		for _, a := range defs[raw].Aliases {
			alias := strings.ToLower(a)
			if _, dup := c.aliases[alias]; dup {
				logger.Warn("Duplicate alias ignored", "alias", alias, "type", id)
				continue
			}
			if _, clash := c.types[alias]; clash {
				logger.Warn("Alias collides with a type id, ignored", "alias", alias, "type", id)
				continue
			}
			c.aliases[alias] = id
			kept = append(kept, alias)
		}
		t.Aliases = kept
	}
	return c
}

// FromConfig decodes the tnt section of the loaded configuration.
func FromConfig(logger *slog.Logger) (*Catalog, error) {
	defs := make(map[string]Definition)
	if err := viper.UnmarshalKey("tnt", &defs); err != nil {
		return nil, fmt.Errorf("decoding tnt section: %w", err)
	}
	if len(defs) == 0 && logger != nil {
		logger.Warn("No explosive types configured, the tnt section is empty or missing")
	}
	return New(defs, logger), nil
}

// Lookup finds a type by alias or id, ignoring case.
func (c *Catalog) Lookup(key string) (*core.InstanceType, bool) {
	key = strings.ToLower(key)
	if id, ok := c.aliases[key]; ok {
		key = id
	}
	t, ok := c.types[key]
	return t, ok
}

// Keys lists every id and alias, sorted, for command completion.
func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.types)+len(c.aliases))
	for id := range c.types {
		keys = append(keys, id)
	}
	for alias := range c.aliases {
		keys = append(keys, alias)
	}
	slices.Sort(keys)
	return keys
}

// Types returns the types sorted by id.
func (c *Catalog) Types() []*core.InstanceType {
	out := make([]*core.InstanceType, 0, len(c.types))
	for _, t := range c.types {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b *core.InstanceType) int { return strings.Compare(a.ID, b.ID) })
	return out
}

func (c *Catalog) Len() int {
	return len(c.types)
}
