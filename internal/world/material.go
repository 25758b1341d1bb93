package world

// Material identifies what fills a cell.
type Material string

const (
	Air            Material = "air"
	CaveAir        Material = "cave_air"
	Water          Material = "water"
	Lava           Material = "lava"
	ShortGrass     Material = "short_grass"
	Dirt           Material = "dirt"
	GrassBlock     Material = "grass_block"
	Sand           Material = "sand"
	Gravel         Material = "gravel"
	Glass          Material = "glass"
	OakPlanks      Material = "oak_planks"
	Stone          Material = "stone"
	Cobblestone    Material = "cobblestone"
	TNT            Material = "tnt"
	Obsidian       Material = "obsidian"
	CryingObsidian Material = "crying_obsidian"
	AncientDebris  Material = "ancient_debris"
	NetheriteBlock Material = "netherite_block"
	Bedrock        Material = "bedrock"
	Barrier        Material = "barrier"
)

// Traits are the physical properties the resolver cares about.
type Traits struct {
	Resistance  float64
	Liquid      bool
	Air         bool
	Replaceable bool
}

var traits = map[Material]Traits{
	Air:            {Air: true, Replaceable: true},
	CaveAir:        {Air: true, Replaceable: true},
	Water:          {Resistance: 100, Liquid: true, Replaceable: true},
	Lava:           {Resistance: 100, Liquid: true, Replaceable: true},
	ShortGrass:     {Replaceable: true},
	Dirt:           {Resistance: 0.5},
	GrassBlock:     {Resistance: 0.6},
	Sand:           {Resistance: 0.5},
	Gravel:         {Resistance: 0.6},
	Glass:          {Resistance: 0.3},
	OakPlanks:      {Resistance: 3},
	Stone:          {Resistance: 6},
	Cobblestone:    {Resistance: 6},
	TNT:            {},
	Obsidian:       {Resistance: 1200},
	CryingObsidian: {Resistance: 1200},
	AncientDebris:  {Resistance: 1200},
	NetheriteBlock: {Resistance: 1200},
	Bedrock:        {Resistance: 3600000},
	Barrier:        {Resistance: 3600000.8},
}

// unknown materials behave like plain stone
var defaultTraits = Traits{Resistance: 6}

// TraitsOf returns the known traits of m.
func TraitsOf(m Material) Traits {
	if t, ok := traits[m]; ok {
		return t
	}
	return defaultTraits
}

func (m Material) IsAir() bool {
	return m == "" || TraitsOf(m).Air
}

func (m Material) IsLiquid() bool {
	return TraitsOf(m).Liquid
}

func (m Material) Resistance() float64 {
	return TraitsOf(m).Resistance
}

func (m Material) Replaceable() bool {
	return m == "" || TraitsOf(m).Replaceable
}
