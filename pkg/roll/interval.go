// Package roll renders a pitch-by-time piano-roll view of a MIDI document
// synchronized to the transport clock, and maps clicks back to seek times.
package roll

import (
	"fmt"
	"strings"
)

// IntervalClass groups an interval relative to the selected root into the
// categories used by the theory-coloring mode.
type IntervalClass int

const (
	ClassRoot IntervalClass = iota
	ClassStable
	ClassColor
	ClassChromatic
)

// noteOffsets maps key names to pitch classes.
var noteOffsets = map[string]int{
	"C": 0, "C#": 1, "DB": 1, "D": 2, "D#": 3, "EB": 3, "E": 4, "F": 5,
	"F#": 6, "GB": 6, "G": 7, "G#": 8, "AB": 8, "A": 9, "A#": 10, "BB": 10, "B": 11,
}

// intervalLabels names all twelve intervals from the root.
var intervalLabels = [12]string{
	"Root", "Minor 2nd", "Major 2nd (9th)", "Minor 3rd", "Major 3rd",
	"Perfect 4th", "Tritone", "Perfect 5th", "Minor 6th", "Major 6th (13th)",
	"Minor 7th", "Major 7th",
}

// ParseKey converts a key name such as "C" or "F#" into a pitch class.
func ParseKey(name string) (int, error) {
	pc, ok := noteOffsets[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown key name: %q", name)
	}
	return pc, nil
}

// Classify categorizes a pitch by its interval from the root pitch class:
// the root itself, stable chord tones (3rds and the 5th), color tones
// (7ths, 9th, 13th) and everything else as chromatic.
func Classify(pitch, rootPitchClass int) (IntervalClass, string) {
	interval := ((pitch-rootPitchClass)%12 + 12) % 12
	label := intervalLabels[interval]
	switch interval {
	case 0:
		return ClassRoot, label
	case 3, 4, 7:
		return ClassStable, label
	case 2, 9, 10, 11:
		return ClassColor, label
	default:
		return ClassChromatic, label
	}
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// PitchName renders a pitch as scientific notation, middle C = C4.
func PitchName(pitch int) string {
	if pitch < 0 || pitch > 127 {
		return fmt.Sprintf("?%d", pitch)
	}
	return fmt.Sprintf("%s%d", noteNames[pitch%12], pitch/12-1)
}
