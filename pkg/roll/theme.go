package roll

import (
	"fmt"
	"image/color"
	"os"

	"gopkg.in/yaml.v3"
)

// Theme holds the colors of the piano-roll view. Colors are given as
// "#rrggbb" hex strings in the YAML file.
type Theme struct {
	Background  string `yaml:"background"`
	GridBeat    string `yaml:"grid_beat"`
	GridBar     string `yaml:"grid_bar"`
	NoteIdle    string `yaml:"note_idle"`
	NotePlaying string `yaml:"note_playing"`
	Playhead    string `yaml:"playhead"`
	Root        string `yaml:"root"`
	Stable      string `yaml:"stable"`
	ColorTone   string `yaml:"color_tone"`
	Chromatic   string `yaml:"chromatic"`
	Label       string `yaml:"label"`
}

// DefaultTheme mirrors the palette of the web player this engine replaces:
// dark grid, blue idle notes, white sounding notes, and the cyan / blue /
// purple / pink / gray theory categories.
func DefaultTheme() Theme {
	return Theme{
		Background:  "#111827",
		GridBeat:    "#1f2937",
		GridBar:     "#374151",
		NoteIdle:    "#60a5fa",
		NotePlaying: "#ffffff",
		Playhead:    "#ffffff",
		Root:        "#06b6d4",
		Stable:      "#3b82f6",
		ColorTone:   "#ec4899",
		Chromatic:   "#4b5563",
		Label:       "#9ca3af",
	}
}

// LoadTheme reads a YAML theme file, filling missing fields from the
// default theme.
func LoadTheme(path string) (Theme, error) {
	t := DefaultTheme()
	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("failed to read theme file: %w", err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return DefaultTheme(), fmt.Errorf("failed to parse theme file: %w", err)
	}
	return t, nil
}

// Validate checks that every color in the theme parses.
func (t Theme) Validate() error {
	for _, c := range []string{
		t.Background, t.GridBeat, t.GridBar, t.NoteIdle, t.NotePlaying,
		t.Playhead, t.Root, t.Stable, t.ColorTone, t.Chromatic, t.Label,
	} {
		if _, err := ParseColor(c); err != nil {
			return err
		}
	}
	return nil
}

// ParseColor converts a "#rrggbb" hex string into a color.
func ParseColor(s string) (color.RGBA, error) {
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}

// mustColor parses a color, falling back to opaque gray for unparseable
// values so drawing never fails mid-frame.
func mustColor(s string) color.RGBA {
	c, err := ParseColor(s)
	if err != nil {
		return color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}
	}
	return c
}

// classColor picks the theory-mode color for an interval class.
func (t Theme) classColor(class IntervalClass) color.RGBA {
	switch class {
	case ClassRoot:
		return mustColor(t.Root)
	case ClassStable:
		return mustColor(t.Stable)
	case ClassColor:
		return mustColor(t.ColorTone)
	default:
		return mustColor(t.Chromatic)
	}
}
