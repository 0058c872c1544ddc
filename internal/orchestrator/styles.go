package orchestrator

import "math/rand"

// stylePresets is the fixed pool a style is drawn from when the request
// leaves the style blank. Draw happens once per submit; the chosen style is
// stored on the attempt and never resampled within it.
var stylePresets = []string{
	"Made of swirling storm clouds, dramatic sky, volumetric light",
	"Formed from roaring flames and glowing embers, dark background",
	"Carved from thick white smoke curling against black",
	"Liquid water splashing and freezing mid-air, crystal clear droplets",
	"Neon tubes glowing in a rainy cyberpunk alley, reflections on wet asphalt",
	"Overgrown with moss and wildflowers, golden hour forest light",
	"Brushed titanium with machined edges, studio product lighting",
	"Molten gold dripping over black marble",
	"Frozen in a block of cracked glacier ice, cold blue light",
	"Built from stacked vintage neon signs, dusk city backdrop",
}

// RandomStyle returns one preset drawn uniformly at random.
func RandomStyle() string {
	return stylePresets[rand.Intn(len(stylePresets))]
}

// StylePresets returns a copy of the preset pool.
func StylePresets() []string {
	out := make([]string, len(stylePresets))
	copy(out, stylePresets)
	return out
}

// typographyPresets is the finite list of typography directives offered
// alongside free text.
var typographyPresets = []string{
	"Bold condensed sans-serif, tight tracking, uppercase",
	"Elegant high-contrast serif, editorial fashion look",
	"Hand-painted brush script, imperfect strokes",
	"Retro 70s rounded type, warm colors",
	"Futuristic geometric type, thin strokes, wide spacing",
	"Heavy slab serif, industrial stencil texture",
}

// TypographyPresets returns a copy of the typography directive list.
func TypographyPresets() []string {
	out := make([]string, len(typographyPresets))
	copy(out, typographyPresets)
	return out
}
