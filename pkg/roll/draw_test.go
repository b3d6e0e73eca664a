package roll

import (
	"testing"

	"github.com/patternlab/midiroll/pkg/midi"
)

func TestSounding(t *testing.T) {
	n := midi.Note{Pitch: 60, Start: 1.0, Duration: 0.5, Velocity: 0.8}
	tests := []struct {
		pos  float64
		want bool
	}{
		{0.0, false},
		{0.999, false},
		{1.0, true}, // start bound is inclusive
		{1.25, true},
		{1.499, true},
		{1.5, false}, // end bound is exclusive
		{2.0, false},
	}
	for _, tt := range tests {
		if got := Sounding(n, tt.pos); got != tt.want {
			t.Errorf("Sounding at %v = %v, want %v", tt.pos, got, tt.want)
		}
	}
}

func TestSounding_ClampedMinimumDuration(t *testing.T) {
	n := midi.Note{Pitch: 60, Start: 1.0, Duration: midi.MinNoteDuration, Velocity: 0.8}
	if !Sounding(n, 1.0) {
		t.Error("clamped 1ms note must sound at its onset")
	}
	if Sounding(n, 1.0+midi.MinNoteDuration) {
		t.Error("clamped note sounding past its end")
	}
}

func TestNoteFill(t *testing.T) {
	theme := DefaultTheme()
	n := midi.Note{Pitch: 64, Start: 1.0, Duration: 0.5, Velocity: 0.8} // E: major 3rd over C

	plain := ViewConfig{Mode: ModePlain}
	theory := ViewConfig{Mode: ModeTheoryColored, RootPitchClass: 0}

	if got := NoteFill(n, 0.0, plain, theme); got != mustColor(theme.NoteIdle) {
		t.Errorf("idle plain fill = %v, want %v", got, mustColor(theme.NoteIdle))
	}
	if got := NoteFill(n, 1.25, plain, theme); got != mustColor(theme.NotePlaying) {
		t.Errorf("sounding fill = %v, want %v", got, mustColor(theme.NotePlaying))
	}
	if got := NoteFill(n, 0.0, theory, theme); got != mustColor(theme.Stable) {
		t.Errorf("theory fill = %v, want stable %v", got, mustColor(theme.Stable))
	}
	// The sounding highlight wins over the theory color.
	if got := NoteFill(n, 1.25, theory, theme); got != mustColor(theme.NotePlaying) {
		t.Errorf("sounding theory fill = %v, want %v", got, mustColor(theme.NotePlaying))
	}
	// At the exact end the note has gone back to its resting color.
	if got := NoteFill(n, 1.5, plain, theme); got != mustColor(theme.NoteIdle) {
		t.Errorf("fill at end bound = %v, want idle", got)
	}
}

func TestNoteFill_TheoryClasses(t *testing.T) {
	theme := DefaultTheme()
	view := ViewConfig{Mode: ModeTheoryColored, RootPitchClass: 0}
	tests := []struct {
		pitch int
		want  string
	}{
		{60, theme.Root},      // C
		{67, theme.Stable},    // G, perfect 5th
		{70, theme.ColorTone}, // Bb, minor 7th
		{66, theme.Chromatic}, // F#, tritone
	}
	for _, tt := range tests {
		n := midi.Note{Pitch: tt.pitch, Start: 1.0, Duration: 0.5, Velocity: 0.8}
		if got := NoteFill(n, 0.0, view, theme); got != mustColor(tt.want) {
			t.Errorf("pitch %d fill = %v, want %v", tt.pitch, got, mustColor(tt.want))
		}
	}
}
