package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresets_Sorted(t *testing.T) {
	assert.Equal(t, []Preset{PresetDefault, PresetOcean, PresetSunset}, Presets())
}

func TestEveryPresetDefinesEveryToken(t *testing.T) {
	tokens := []Token{Primary, Secondary, Background, Surface, Text, TextSecondary, Border, Success, Warning, Error, Info}
	for _, p := range Presets() {
		pal, ok := Lookup(p)
		require.True(t, ok, p)
		for _, tok := range tokens {
			assert.NotEmpty(t, pal[tok], "%s/%s", p, tok)
		}
	}
}

func TestLookup_ReturnsCopy(t *testing.T) {
	pal, ok := Lookup(PresetOcean)
	require.True(t, ok)
	pal[Primary] = "#000000"

	again, _ := Lookup(PresetOcean)
	assert.Equal(t, "#0077B6", again[Primary])
}

func TestPaletteFor_UnknownFallsBackToDefault(t *testing.T) {
	want, _ := Lookup(PresetDefault)
	assert.Equal(t, want, PaletteFor("neon"))
}

func TestParsePreset(t *testing.T) {
	p, ok := ParsePreset("sunset")
	assert.True(t, ok)
	assert.Equal(t, PresetSunset, p)

	_, ok = ParsePreset("neon")
	assert.False(t, ok)
}

func TestPalette_ColorFallback(t *testing.T) {
	pal := PaletteFor(PresetDefault)
	assert.Equal(t, pal[TextSecondary], pal.Color("nope"))
	assert.Equal(t, pal[Warning], pal.Color(Warning))
	assert.Equal(t, "", Palette{}.Color(Primary))
}
