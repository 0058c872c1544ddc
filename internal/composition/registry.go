package composition

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Composition registry
// A composition is a named, parameterized, frame-indexed animation definition.
// The registry is pure data: entries are declared at process start and are
// never mutated afterwards, so concurrent render jobs can share it freely.
// ---------------------------------------------------------------------------

// ErrUnknownComposition is returned when a render job references a
// composition id that is not in the registry. Unresolved ids are a hard
// error — they are never silently defaulted.
var ErrUnknownComposition = errors.New("unknown composition")

// Spec describes one registered composition.
type Spec struct {
	ID             string
	FPS            int
	Width          int
	Height         int
	DurationFrames int
	Defaults       map[string]interface{}
}

// Bound is a composition resolved against a set of input parameters.
// Params holds the spec defaults with caller overrides merged on top.
type Bound struct {
	Spec
	Params map[string]interface{}
}

// MoodTheme is the color palette associated with a visualizer mood.
type MoodTheme struct {
	Primary    string
	Secondary  string
	Background string
	Accent     string
}

var moodThemes = map[string]MoodTheme{
	"chill":       {Primary: "#F4A261", Secondary: "#2A9D8F", Background: "#1a1a2e", Accent: "#E76F51"},
	"melancholic": {Primary: "#6C5CE7", Secondary: "#74B9FF", Background: "#0f0f1a", Accent: "#A29BFE"},
	"dreamy":      {Primary: "#FF6B9D", Secondary: "#C44569", Background: "#1a0a1a", Accent: "#F8B500"},
}

// ThemeFor returns the palette for a mood, falling back to the chill theme
// so the renderer always has usable colors.
func ThemeFor(mood string) MoodTheme {
	if theme, ok := moodThemes[mood]; ok {
		return theme
	}
	return moodThemes["chill"]
}

// Registry maps composition ids to their specs. Read-only after New.
type Registry struct {
	specs map[string]Spec
}

// New builds the registry with every known composition.
func New() *Registry {
	specs := map[string]Spec{
		"MatteSciFi": {
			ID:             "MatteSciFi",
			FPS:            30,
			Width:          1920,
			Height:         1080,
			DurationFrames: 150,
			Defaults: map[string]interface{}{
				"title":           "NotebookLM A to Z",
				"subtitle":        "Reading Weapon for Non-Readers",
				"backgroundImage": nil,
			},
		},
		"PromoVideo": {
			ID:             "PromoVideo",
			FPS:            30,
			Width:          1920,
			Height:         1080,
			DurationFrames: 1100,
			Defaults: map[string]interface{}{
				"title":    "",
				"subtitle": "",
			},
		},
		"LofiVisualizer": {
			ID:             "LofiVisualizer",
			FPS:            30,
			Width:          1920,
			Height:         1080,
			DurationFrames: 300,
			Defaults: map[string]interface{}{
				"title":    "",
				"mood":     "chill",
				"audioUrl": nil,
			},
		},
	}

	return &Registry{specs: specs}
}

// IDs returns the registered composition ids.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.specs))
	for id := range r.specs {
		ids = append(ids, id)
	}
	return ids
}

// Get returns the raw spec for an id.
func (r *Registry) Get(id string) (Spec, bool) {
	spec, ok := r.specs[id]
	return spec, ok
}

// Resolve binds a composition to input parameters. Overrides win over the
// spec's defaults on key collision. An absent id fails with
// ErrUnknownComposition — never a partially-defaulted composition.
func (r *Registry) Resolve(id string, overrides map[string]interface{}) (*Bound, error) {
	spec, ok := r.specs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownComposition, id)
	}

	params := make(map[string]interface{}, len(spec.Defaults)+len(overrides))
	for k, v := range spec.Defaults {
		params[k] = v
	}
	for k, v := range overrides {
		params[k] = v
	}

	return &Bound{Spec: spec, Params: params}, nil
}
