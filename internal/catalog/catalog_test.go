package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itnt/extension/internal/config"
)

func ptr[T any](v T) *T { return &v }

func TestNew_Defaults(t *testing.T) {
	c := New(map[string]Definition{"Basic": {}}, nil)

	typ, ok := c.Lookup("basic")
	require.True(t, ok)
	assert.Equal(t, "basic", typ.ID)
	assert.Equal(t, "basic", typ.DisplayName)
	assert.Equal(t, DefaultFuseSeconds, typ.FuseSeconds)
	assert.Equal(t, DefaultPower, typ.Power)
	assert.True(t, typ.DestroysTerrain)
	assert.True(t, typ.DamagesCreatures)
	assert.False(t, typ.DetonatesInLiquid)
	assert.False(t, typ.DestroysHardened)
	assert.False(t, typ.AutoIgnite)
}

func TestNew_ExplicitValues(t *testing.T) {
	c := New(map[string]Definition{
		"nuke": {
			DisplayName:    "&cNuke",
			FuseTime:       ptr(0),
			Power:          ptr(12.5),
			BlockDamage:    ptr(false),
			EntityDamage:   ptr(false),
			ExplodeInWater: true,
			BreakObsidian:  true,
			AutoIgnite:     true,
			DisabledWorlds: []string{"lobby"},
		},
	}, nil)

	typ, ok := c.Lookup("NUKE")
	require.True(t, ok)
	assert.Equal(t, "&cNuke", typ.DisplayName)
	assert.Equal(t, 0, typ.FuseSeconds)
	assert.Equal(t, 12.5, typ.Power)
	assert.False(t, typ.DestroysTerrain)
	assert.False(t, typ.DamagesCreatures)
	assert.True(t, typ.DetonatesInLiquid)
	assert.True(t, typ.DestroysHardened)
	assert.True(t, typ.AutoIgnite)
	assert.True(t, typ.DisabledIn("lobby"))
}

func TestNew_RejectsInvalidTypes(t *testing.T) {
	c := New(map[string]Definition{
		"dud":      {Power: ptr(0.0)},
		"negative": {FuseTime: ptr(-1)},
		"ok":       {},
	}, nil)

	assert.Equal(t, 1, c.Len())
	_, ok := c.Lookup("dud")
	assert.False(t, ok)
	_, ok = c.Lookup("negative")
	assert.False(t, ok)
}

func TestNew_Aliases(t *testing.T) {
	c := New(map[string]Definition{
		"alpha": {Aliases: []string{"A", "shared", "beta"}},
		"beta":  {Aliases: []string{"shared", "b"}},
	}, nil)

	alpha, ok := c.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "alpha", alpha.ID)

	shared, ok := c.Lookup("SHARED")
	require.True(t, ok)
	assert.Equal(t, "alpha", shared.ID, "first declaration in id order wins")

	beta, ok := c.Lookup("beta")
	require.True(t, ok)
	assert.Equal(t, "beta", beta.ID, "an alias never shadows an id")

	assert.Equal(t, []string{"a", "shared"}, alpha.Aliases)
	assert.Equal(t, []string{"b"}, beta.Aliases)
	assert.Equal(t, []string{"a", "alpha", "b", "beta", "shared"}, c.Keys())
}

func TestLookup_Unknown(t *testing.T) {
	c := New(nil, nil)
	_, ok := c.Lookup("anything")
	assert.False(t, ok)
	assert.Empty(t, c.Types())
}

func TestTypes_Sorted(t *testing.T) {
	c := New(map[string]Definition{"zeta": {}, "alpha": {}, "mid": {}}, nil)
	types := c.Types()
	require.Len(t, types, 3)
	assert.Equal(t, "alpha", types[0].ID)
	assert.Equal(t, "mid", types[1].ID)
	assert.Equal(t, "zeta", types[2].ID)
}

func TestFromConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	yml := `
tnt:
  mega:
    display-name: "&#FF0000Mega TNT"
    lore:
      - "&7Big."
    fuse-time: 6
    power: 8.0
    break-obsidian: true
    aliases: [m, big]
  harmless:
    entity-damage: false
    block-damage: false
    disabled-worlds: [spawn]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(yml), 0644))
	require.NoError(t, config.Load(dir))

	c, err := FromConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	mega, ok := c.Lookup("Big")
	require.True(t, ok)
	assert.Equal(t, "&#FF0000Mega TNT", mega.DisplayName)
	assert.Equal(t, []string{"&7Big."}, mega.Lore)
	assert.Equal(t, 6, mega.FuseSeconds)
	assert.Equal(t, int64(120), mega.FuseTicks())
	assert.Equal(t, 8.0, mega.Power)
	assert.True(t, mega.DestroysHardened)

	harmless, ok := c.Lookup("harmless")
	require.True(t, ok)
	assert.False(t, harmless.DamagesCreatures)
	assert.False(t, harmless.DestroysTerrain)
	assert.Equal(t, []string{"spawn"}, harmless.DisabledZones)
}

func TestFromConfig_EmptySection(t *testing.T) {
	t.Cleanup(viper.Reset)

	c, err := FromConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}
