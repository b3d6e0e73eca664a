// Package midi parses Standard MIDI File bytes into an immutable in-memory
// document of tracks and note events, with times in seconds.
package midi

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"
)

// DefaultTempoBPM is used when the file carries no tempo event.
const DefaultTempoBPM = 120.0

// MinNoteDuration is the clamp applied to zero or negative note lengths so
// malformed notes stay audible and visible.
const MinNoteDuration = 0.001

// ErrInvalidFormat is returned when the bytes are not a parseable SMF stream.
var ErrInvalidFormat = errors.New("invalid MIDI file format")

// ErrNoTracks is returned when the file contains no tracks at all.
var ErrNoTracks = errors.New("MIDI file contains no tracks")

// Note is a single note event. Times are in seconds from document zero.
type Note struct {
	Pitch    int     // semitone number, 0..127
	Start    float64 // onset, >= 0
	Duration float64 // > 0, clamped to MinNoteDuration
	Velocity float64 // 0..1
}

// End returns the note-off time in seconds.
func (n Note) End() float64 {
	return n.Start + n.Duration
}

// Track is an ordered sequence of notes belonging to one SMF track.
// Parse emits notes sorted by onset, but consumers must tolerate unsorted
// notes in tracks built by other means.
type Track struct {
	Name  string
	Notes []Note
}

// Document is the parsed, immutable form of one MIDI file. It is created
// once per successful load and replaced wholesale on the next load.
type Document struct {
	DurationSeconds float64
	TempoBPM        float64
	Tracks          []Track
}

// PitchRange reports the lowest and highest pitch over all notes.
// ok is false when the document contains no notes.
func (d *Document) PitchRange() (lo, hi int, ok bool) {
	lo, hi = 127, 0
	for _, t := range d.Tracks {
		for _, n := range t.Notes {
			if n.Pitch < lo {
				lo = n.Pitch
			}
			if n.Pitch > hi {
				hi = n.Pitch
			}
			ok = true
		}
	}
	if !ok {
		return 0, 0, false
	}
	return lo, hi, true
}

// NoteCount returns the total number of notes over all tracks.
func (d *Document) NoteCount() int {
	count := 0
	for _, t := range d.Tracks {
		count += len(t.Notes)
	}
	return count
}

// pendingNote tracks an open note-on waiting for its note-off.
type pendingNote struct {
	key      uint8
	channel  uint8
	start    float64
	velocity float64
}

// Parse decodes Standard MIDI File bytes (format 0 or 1) into a Document.
//
// Tolerated inputs: tracks with zero notes, missing tempo (falls back to
// 120 BPM), unordered events, out-of-range velocities (clamped to [0,1])
// and zero-length notes (clamped to MinNoteDuration). Only the first tempo
// event is honored; mid-file tempo changes are out of scope.
func Parse(data []byte) (*Document, error) {
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if len(s.Tracks) == 0 {
		return nil, ErrNoTracks
	}

	ticks, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported time format %v", ErrInvalidFormat, s.TimeFormat)
	}

	tempo := firstTempo(s)

	doc := &Document{TempoBPM: tempo}
	for _, tr := range s.Tracks {
		doc.Tracks = append(doc.Tracks, parseTrack(tr, ticks, tempo))
	}

	for _, t := range doc.Tracks {
		for _, n := range t.Notes {
			if end := n.End(); end > doc.DurationSeconds {
				doc.DurationSeconds = end
			}
		}
	}

	return doc, nil
}

// firstTempo returns the BPM of the earliest tempo event in the file, or
// DefaultTempoBPM when no track carries one.
func firstTempo(s *smf.SMF) float64 {
	bestTick := int64(-1)
	tempo := DefaultTempoBPM
	for _, tr := range s.Tracks {
		var absTicks int64
		for _, ev := range tr {
			absTicks += int64(ev.Delta)
			var bpm float64
			if ev.Message.GetMetaTempo(&bpm) && bpm > 0 {
				if bestTick < 0 || absTicks < bestTick {
					bestTick = absTicks
					tempo = bpm
				}
				break // only the first tempo event per track matters
			}
		}
	}
	return tempo
}

// parseTrack converts one SMF track into a Track, pairing note-on and
// note-off events per channel and key. Overlapping note-ons on the same key
// are closed first-in first-out. Note-ons left open at end of track are
// closed at the track's final tick.
func parseTrack(tr smf.Track, ticks smf.MetricTicks, tempo float64) Track {
	out := Track{}
	var absTicks uint32
	var pending []pendingNote

	secondsAt := func(tick uint32) float64 {
		return ticks.Duration(tempo, tick).Seconds()
	}

	closeNote := func(idx int, end float64) {
		p := pending[idx]
		dur := end - p.start
		if dur < MinNoteDuration {
			dur = MinNoteDuration
		}
		out.Notes = append(out.Notes, Note{
			Pitch:    int(p.key),
			Start:    p.start,
			Duration: dur,
			Velocity: p.velocity,
		})
		pending = append(pending[:idx], pending[idx+1:]...)
	}

	for _, ev := range tr {
		absTicks += ev.Delta

		var name string
		if ev.Message.GetMetaTrackName(&name) && out.Name == "" {
			out.Name = name
			continue
		}

		var channel, key, velocity uint8
		if ev.Message.GetNoteStart(&channel, &key, &velocity) {
			if key > 127 {
				continue // not renderable, drop the note
			}
			vel := float64(velocity) / 127.0
			if vel > 1 {
				vel = 1
			}
			pending = append(pending, pendingNote{
				key:      key,
				channel:  channel,
				start:    secondsAt(absTicks),
				velocity: vel,
			})
			continue
		}
		if ev.Message.GetNoteEnd(&channel, &key) {
			for i, p := range pending {
				if p.key == key && p.channel == channel {
					closeNote(i, secondsAt(absTicks))
					break
				}
			}
		}
	}

	// Close dangling note-ons at the end of the track.
	endOfTrack := secondsAt(absTicks)
	for len(pending) > 0 {
		closeNote(0, endOfTrack)
	}

	sort.SliceStable(out.Notes, func(i, j int) bool {
		return out.Notes[i].Start < out.Notes[j].Start
	})
	return out
}
