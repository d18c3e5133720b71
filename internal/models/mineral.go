package models

// MineralType is the stratum a journal entry settles into. It is derived
// from the entry's mood score and fixed for the lifetime of the entry.
type MineralType string

const (
	MineralObsidian  MineralType = "OBSIDIAN"
	MineralLapis     MineralType = "LAPIS"
	MineralMoonstone MineralType = "MOONSTONE"
	MineralSandstone MineralType = "SANDSTONE" // legacy fallback
	MineralCitrine   MineralType = "CITRINE"
	MineralGold      MineralType = "GOLD"
)

// Minerals lists every mineral type in stratum order, darkest first.
var Minerals = []MineralType{
	MineralObsidian,
	MineralLapis,
	MineralMoonstone,
	MineralSandstone,
	MineralCitrine,
	MineralGold,
}

// Tone selects one of the four colors of a palette.
type Tone string

const (
	ToneBase      Tone = "base"
	ToneDark      Tone = "dark"
	ToneLight     Tone = "light"
	ToneHighlight Tone = "highlight"
)

// Palette holds the four display tones of a mineral.
type Palette struct {
	Base      string `json:"base" yaml:"base"`
	Dark      string `json:"dark" yaml:"dark"`
	Light     string `json:"light" yaml:"light"`
	Highlight string `json:"highlight" yaml:"highlight"`
}

// Color returns the hex color for the given tone. Unknown tones return Base.
func (p Palette) Color(t Tone) string {
	switch t {
	case ToneDark:
		return p.Dark
	case ToneLight:
		return p.Light
	case ToneHighlight:
		return p.Highlight
	default:
		return p.Base
	}
}

var palettes = map[MineralType]Palette{
	MineralObsidian: {
		Base:      "#2d1b2e",
		Dark:      "#1a0f1a",
		Light:     "#4a2c4a",
		Highlight: "#6d4c6d",
	},
	MineralLapis: {
		Base:      "#1e3a8a",
		Dark:      "#172554",
		Light:     "#3b82f6",
		Highlight: "#60a5fa",
	},
	MineralMoonstone: {
		Base:      "#cfd8dc",
		Dark:      "#90a4ae",
		Light:     "#eceff1",
		Highlight: "#ffffff",
	},
	MineralSandstone: {
		Base:      "#d9a066",
		Dark:      "#8b5a2b",
		Light:     "#e6b98a",
		Highlight: "#f4d0a3",
	},
	MineralCitrine: {
		Base:      "#ffb300",
		Dark:      "#c68400",
		Light:     "#ffca28",
		Highlight: "#ffe082",
	},
	MineralGold: {
		Base:      "#ffd700",
		Dark:      "#c79100",
		Light:     "#ffe57f",
		Highlight: "#fff8e1",
	},
}

var mineralNames = map[MineralType]string{
	MineralObsidian:  "黑曜石层",
	MineralLapis:     "青金石层",
	MineralMoonstone: "月光石层",
	MineralSandstone: "砂岩层",
	MineralCitrine:   "黄水晶层",
	MineralGold:      "金矿脉",
}

// Valid reports whether m is one of the known mineral types.
func (m MineralType) Valid() bool {
	_, ok := palettes[m]
	return ok
}

// Palette returns the mineral's palette. Unknown minerals get the sandstone palette.
func (m MineralType) Palette() Palette {
	if p, ok := palettes[m]; ok {
		return p
	}
	return palettes[MineralSandstone]
}

// DisplayName returns the stratum label shown to users.
func (m MineralType) DisplayName() string {
	if n, ok := mineralNames[m]; ok {
		return n
	}
	return mineralNames[MineralSandstone]
}

// String returns the string representation of the mineral type.
func (m MineralType) String() string {
	return string(m)
}

// LookupColor finds the mineral and tone a palette color belongs to.
// Colors are unique across the palette table.
func LookupColor(color string) (MineralType, Tone, bool) {
	for _, m := range Minerals {
		p := palettes[m]
		for _, t := range []Tone{ToneBase, ToneDark, ToneLight, ToneHighlight} {
			if p.Color(t) == color {
				return m, t, true
			}
		}
	}
	return "", "", false
}
