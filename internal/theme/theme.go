package theme

import "sort"

// Token is a semantic color name. Callers never hold literal colors;
// the active Palette resolves a Token to a hex value.
type Token string

const (
	Primary       Token = "primary"
	Secondary     Token = "secondary"
	Background    Token = "background"
	Surface       Token = "surface"
	Text          Token = "text"
	TextSecondary Token = "textSecondary"
	Border        Token = "border"
	Success       Token = "success"
	Warning       Token = "warning"
	Error         Token = "error"
	Info          Token = "info"
)

// Preset names a palette in the registry.
type Preset string

const (
	PresetDefault Preset = "default"
	PresetOcean   Preset = "ocean"
	PresetSunset  Preset = "sunset"
)

type Palette map[Token]string

// Color resolves t, falling back to the TextSecondary entry.
func (p Palette) Color(t Token) string {
	if c, ok := p[t]; ok {
		return c
	}
	return p[TextSecondary]
}

var registry = map[Preset]Palette{
	PresetDefault: {
		Primary:       "#2563EB",
		Secondary:     "#64748B",
		Background:    "#FFFFFF",
		Surface:       "#F8FAFC",
		Text:          "#0F172A",
		TextSecondary: "#64748B",
		Border:        "#E2E8F0",
		Success:       "#16A34A",
		Warning:       "#F59E0B",
		Error:         "#DC2626",
		Info:          "#0EA5E9",
	},
	PresetOcean: {
		Primary:       "#0077B6",
		Secondary:     "#00B4D8",
		Background:    "#F0F9FF",
		Surface:       "#E0F2FE",
		Text:          "#03045E",
		TextSecondary: "#4A6FA5",
		Border:        "#BAE6FD",
		Success:       "#2A9D8F",
		Warning:       "#E9C46A",
		Error:         "#E63946",
		Info:          "#48CAE4",
	},
	PresetSunset: {
		Primary:       "#F4511E",
		Secondary:     "#FB8C00",
		Background:    "#FFF8F1",
		Surface:       "#FFEDD5",
		Text:          "#431407",
		TextSecondary: "#9A3412",
		Border:        "#FED7AA",
		Success:       "#65A30D",
		Warning:       "#F59E0B",
		Error:         "#B91C1C",
		Info:          "#C2410C",
	},
}

// Lookup returns a copy of the palette registered under p.
func Lookup(p Preset) (Palette, bool) {
	pal, ok := registry[p]
	if !ok {
		return nil, false
	}
	out := make(Palette, len(pal))
	for k, v := range pal {
		out[k] = v
	}
	return out, true
}

// PaletteFor is Lookup with the default palette as fallback.
func PaletteFor(p Preset) Palette {
	if pal, ok := Lookup(p); ok {
		return pal
	}
	pal, _ := Lookup(PresetDefault)
	return pal
}

func ParsePreset(s string) (Preset, bool) {
	p := Preset(s)
	_, ok := registry[p]
	return p, ok
}

func Presets() []Preset {
	out := make([]Preset, 0, len(registry))
	for p := range registry {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
