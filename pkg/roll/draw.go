package roll

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/basicfont"

	"github.com/patternlab/midiroll/pkg/midi"
)

// Sounding reports whether the transport position lies within the note's
// sounding interval [start, end). The end bound is exclusive so a note is
// never highlighted at the exact moment it goes silent.
func Sounding(n midi.Note, positionSeconds float64) bool {
	return positionSeconds >= n.Start && positionSeconds < n.End()
}

// NoteFill resolves a note's fill color for the current frame: the playing
// color while the note sounds, its interval color in theory mode, the idle
// color otherwise.
func NoteFill(n midi.Note, positionSeconds float64, view ViewConfig, theme Theme) color.RGBA {
	if Sounding(n, positionSeconds) {
		return mustColor(theme.NotePlaying)
	}
	if view.Mode == ModeTheoryColored {
		class, _ := Classify(n.Pitch, view.RootPitchClass)
		return theme.classColor(class)
	}
	return mustColor(theme.NoteIdle)
}

// Draw renders one frame of the piano roll: grid behind notes, notes
// colored by state, then the playhead. It reads the document and transport
// position but never mutates either. Passing a nil document draws the
// empty grid only.
func Draw(dst *ebiten.Image, doc *midi.Document, positionSeconds float64, view ViewConfig, theme Theme) Layout {
	layout := ComputeLayout(doc, view, positionSeconds)

	dst.Fill(mustColor(theme.Background))
	drawGrid(dst, layout, view, theme)
	if doc != nil {
		drawNotes(dst, doc, layout, positionSeconds, view, theme)
	}
	drawPitchLabels(dst, layout, theme)
	drawPlayhead(dst, layout, positionSeconds, view, theme)

	return layout
}

// drawGrid draws beat lines with a stronger line every 4th beat (the bar
// line), covering the visible window only.
func drawGrid(dst *ebiten.Image, layout Layout, view ViewConfig, theme Theme) {
	if layout.BeatSeconds <= 0 || view.Width <= 0 {
		return
	}
	beatColor := mustColor(theme.GridBeat)
	barColor := mustColor(theme.GridBar)

	firstBeat := int(layout.ScrollX / (layout.BeatSeconds * layout.PixelsPerSecond))
	for beat := firstBeat; ; beat++ {
		x := layout.XAt(float64(beat) * layout.BeatSeconds)
		if x > float64(view.Width) {
			break
		}
		if x < 0 {
			continue
		}
		clr := beatColor
		width := float32(1)
		if beat%4 == 0 {
			clr = barColor
			width = 2
		}
		vector.StrokeLine(dst, float32(x), 0, float32(x), float32(view.Height), width, clr, false)
	}
}

// drawNotes draws one rectangle per note, colored by NoteFill.
func drawNotes(dst *ebiten.Image, doc *midi.Document, layout Layout, positionSeconds float64, view ViewConfig, theme Theme) {
	for _, track := range doc.Tracks {
		for _, n := range track.Notes {
			x := layout.XAt(n.Start)
			w := n.Duration * layout.PixelsPerSecond
			if x+w < 0 || x > float64(view.Width) {
				continue
			}
			if w < 2 {
				w = 2 // keep clamped 1ms notes visible
			}
			y := layout.YAt(n.Pitch)
			h := layout.RowHeight - 2
			if h < 2 {
				h = 2
			}

			clr := NoteFill(n, positionSeconds, view, theme)
			vector.DrawFilledRect(dst, float32(x), float32(y+1), float32(w), float32(h), clr, false)
		}
	}
}

// drawPitchLabels labels the C of each octave along the left edge.
func drawPitchLabels(dst *ebiten.Image, layout Layout, theme Theme) {
	if layout.RowHeight <= 0 {
		return
	}
	clr := mustColor(theme.Label)
	for pitch := layout.MinPitch; pitch <= layout.MaxPitch; pitch++ {
		if pitch%12 != 0 {
			continue
		}
		y := int(layout.YAt(pitch) + layout.RowHeight)
		text.Draw(dst, PitchName(pitch), basicfont.Face7x13, 2, y, clr)
	}
}

// drawPlayhead draws the moving position line.
func drawPlayhead(dst *ebiten.Image, layout Layout, positionSeconds float64, view ViewConfig, theme Theme) {
	x := layout.XAt(positionSeconds)
	if x < 0 || x > float64(view.Width) {
		return
	}
	vector.StrokeLine(dst, float32(x), 0, float32(x), float32(view.Height), 2, mustColor(theme.Playhead), false)
}
