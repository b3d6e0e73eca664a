package midi

import (
	"bytes"
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

type genNote struct {
	key       uint8
	startTick int
	durTick   int
}

// buildSMFFromNotes serializes arbitrary notes into a single-track SMF,
// ordering the on/off events by absolute tick.
func buildSMFFromNotes(t *testing.T, notes []genNote) []byte {
	t.Helper()

	type event struct {
		tick int
		on   bool
		key  uint8
	}
	var events []event
	for _, n := range notes {
		events = append(events, event{tick: n.startTick, on: true, key: n.key})
		events = append(events, event{tick: n.startTick + n.durTick, on: false, key: n.key})
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].tick < events[j].tick })

	var tr smf.Track
	tr.Add(0, smf.MetaTempo(120))
	prev := 0
	for _, ev := range events {
		delta := uint32(ev.tick - prev)
		prev = ev.tick
		if ev.on {
			tr.Add(delta, gomidi.NoteOn(0, ev.key, 100))
		} else {
			tr.Add(delta, gomidi.NoteOff(0, ev.key))
		}
	}
	tr.Close(0)

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(480)
	if err := s.Add(tr); err != nil {
		t.Fatalf("failed to add track: %v", err)
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		t.Fatalf("failed to serialize SMF: %v", err)
	}
	return buf.Bytes()
}

func TestParseProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	noteGen := gopter.CombineGens(
		gen.IntRange(30, 100), // key
		gen.IntRange(0, 4000), // start tick
		gen.IntRange(1, 2000), // duration ticks
	).Map(func(vals []interface{}) genNote {
		return genNote{
			key:       uint8(vals[0].(int)),
			startTick: vals[1].(int),
			durTick:   vals[2].(int),
		}
	})

	properties.Property("document duration covers every note", prop.ForAll(
		func(notes []genNote) bool {
			doc, err := Parse(buildSMFFromNotes(t, notes))
			if err != nil {
				return false
			}
			for _, track := range doc.Tracks {
				for _, n := range track.Notes {
					if n.End() > doc.DurationSeconds+1e-9 {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOfN(8, noteGen),
	))

	properties.Property("all notes survive parsing with valid fields", prop.ForAll(
		func(notes []genNote) bool {
			doc, err := Parse(buildSMFFromNotes(t, notes))
			if err != nil {
				return false
			}
			if doc.NoteCount() != len(notes) {
				return false
			}
			for _, track := range doc.Tracks {
				for _, n := range track.Notes {
					if n.Start < 0 || n.Duration < MinNoteDuration {
						return false
					}
					if n.Velocity < 0 || n.Velocity > 1 {
						return false
					}
					if n.Pitch < 0 || n.Pitch > 127 {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOfN(8, noteGen),
	))

	properties.Property("parsed tracks are sorted by onset", prop.ForAll(
		func(notes []genNote) bool {
			doc, err := Parse(buildSMFFromNotes(t, notes))
			if err != nil {
				return false
			}
			for _, track := range doc.Tracks {
				for i := 1; i < len(track.Notes); i++ {
					if track.Notes[i].Start < track.Notes[i-1].Start {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOfN(8, noteGen),
	))

	properties.TestingRun(t)
}
