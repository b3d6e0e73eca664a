package roll

import (
	"github.com/patternlab/midiroll/pkg/midi"
)

// RenderMode selects note coloring.
type RenderMode int

const (
	// ModePlain colors all idle notes the same.
	ModePlain RenderMode = iota
	// ModeTheoryColored colors notes by their interval from the root.
	ModeTheoryColored
)

const (
	// DefaultPixelsPerBar fixes the visual width of one 4/4 bar regardless
	// of BPM, so patterns at different tempos stay visually comparable.
	DefaultPixelsPerBar = 160.0

	pitchPad        = 2  // semitones of padding around the fitted range
	minPitchSpan    = 12 // never zoom tighter than an octave
	defaultCenter   = 60 // middle C, used when the document has no notes
	defaultHalfSpan = 12 // two octaves total
)

// ViewConfig is the caller-controlled portion of the view.
type ViewConfig struct {
	Width          int
	Height         int
	PixelsPerBar   float64 // 0 means DefaultPixelsPerBar
	Zoom           float64 // horizontal zoom factor, 0 or 1 = unzoomed
	Mode           RenderMode
	RootPitchClass int
	FollowPlayhead bool
}

// Layout is the resolved time/pitch-to-pixel mapping for one frame. It is
// a pure function of (document, transport position, view config) and holds
// no references into either.
type Layout struct {
	PixelsPerSecond float64
	RowHeight       float64
	MinPitch        int
	MaxPitch        int
	ScrollX         float64
	TotalWidth      float64
	BeatSeconds     float64
}

// ComputeLayout resolves the mapping for the current frame. It never
// mutates the document and is safe with an empty one: the pitch range then
// falls back to two octaves centered on middle C instead of dividing by
// zero.
func ComputeLayout(doc *midi.Document, view ViewConfig, positionSeconds float64) Layout {
	tempo := midi.DefaultTempoBPM
	duration := 0.0
	if doc != nil {
		if doc.TempoBPM > 0 {
			tempo = doc.TempoBPM
		}
		duration = doc.DurationSeconds
	}

	ppb := view.PixelsPerBar
	if ppb <= 0 {
		ppb = DefaultPixelsPerBar
	}
	if view.Zoom > 0 {
		ppb *= view.Zoom
	}

	beatSeconds := 60.0 / tempo
	secondsPerBar := beatSeconds * 4
	pps := ppb / secondsPerBar

	lo, hi := defaultCenter-defaultHalfSpan, defaultCenter+defaultHalfSpan
	if doc != nil {
		if min, max, ok := doc.PitchRange(); ok {
			lo, hi = min-pitchPad, max+pitchPad
			for hi-lo < minPitchSpan {
				if lo > 0 {
					lo--
				}
				if hi < 127 {
					hi++
				}
				if lo == 0 && hi == 127 {
					break
				}
			}
		}
	}
	if lo < 0 {
		lo = 0
	}
	if hi > 127 {
		hi = 127
	}

	l := Layout{
		PixelsPerSecond: pps,
		MinPitch:        lo,
		MaxPitch:        hi,
		TotalWidth:      duration * pps,
		BeatSeconds:     beatSeconds,
	}
	if view.Height > 0 {
		l.RowHeight = float64(view.Height) / float64(hi-lo+1)
	}

	if view.FollowPlayhead && view.Width > 0 {
		// Keep the playhead in the left third once it would scroll off.
		playheadX := positionSeconds * pps
		lead := float64(view.Width) / 3
		if playheadX > lead {
			l.ScrollX = playheadX - lead
		}
		if max := l.TotalWidth - float64(view.Width); l.ScrollX > max {
			if max < 0 {
				max = 0
			}
			l.ScrollX = max
		}
	}

	return l
}

// XAt maps a transport time to a screen x coordinate under the layout.
func (l Layout) XAt(seconds float64) float64 {
	return seconds*l.PixelsPerSecond - l.ScrollX
}

// TimeAt inverts XAt, mapping a click's x coordinate back to a transport
// time for seek-by-click. The result may exceed the document duration; the
// controller clamps it.
func (l Layout) TimeAt(x float64) float64 {
	if l.PixelsPerSecond <= 0 {
		return 0
	}
	t := (x + l.ScrollX) / l.PixelsPerSecond
	if t < 0 {
		t = 0
	}
	return t
}

// YAt maps a pitch to the top y coordinate of its row. Higher pitches sit
// higher on screen.
func (l Layout) YAt(pitch int) float64 {
	return float64(l.MaxPitch-pitch) * l.RowHeight
}
