// Package sched binds a track's note events to the transport clock so that
// voices are triggered at the correct offsets, with support for seeking,
// cancellation and idempotent teardown.
package sched

import (
	"sort"
	"sync"

	"github.com/patternlab/midiroll/pkg/midi"
	"github.com/patternlab/midiroll/pkg/transport"
)

// Voice is the trigger surface the scheduler drives. offset is the delay in
// seconds from the moment of the call until the note must sound; it is
// always >= 0.
type Voice interface {
	Trigger(pitch int, duration, velocity, offset float64)
}

// Trigger is one scheduled note command: fire the bound voice at At seconds
// from clock zero.
type Trigger struct {
	At       float64
	Duration float64
	Velocity float64
	Pitch    int
}

// Binding connects one track's triggers to one voice. It is the cancel
// handle for that track: after Cancel no trigger fires until the binding is
// re-armed by Rebase.
type Binding struct {
	mu        sync.Mutex
	voice     Voice
	triggers  []Trigger // sorted by At
	cursor    int
	cancelled bool
}

// newBinding builds the sorted trigger list for a track. The source track
// may carry unsorted notes.
func newBinding(track *midi.Track, voice Voice) *Binding {
	b := &Binding{voice: voice}
	b.triggers = make([]Trigger, 0, len(track.Notes))
	for _, n := range track.Notes {
		b.triggers = append(b.triggers, Trigger{
			At:       n.Start,
			Duration: n.Duration,
			Velocity: n.Velocity,
			Pitch:    n.Pitch,
		})
	}
	sort.SliceStable(b.triggers, func(i, j int) bool {
		return b.triggers[i].At < b.triggers[j].At
	})
	return b
}

// pump fires every pending trigger whose At falls in [from, to). Offsets
// are computed relative to from and clamped to zero, so resuming within
// floating-point epsilon of a note's exact start cannot produce a negative
// delay.
func (b *Binding) pump(from, to float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancelled {
		return
	}
	for b.cursor < len(b.triggers) && b.triggers[b.cursor].At < to {
		tr := b.triggers[b.cursor]
		b.cursor++
		offset := tr.At - from
		if offset < 0 {
			offset = 0
		}
		b.voice.Trigger(tr.Pitch, tr.Duration, tr.Velocity, offset)
	}
}

// Rebase re-arms the binding so that triggers before t never fire and all
// triggers at or after t are pending again. Used on seek and on play.
func (b *Binding) Rebase(t float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancelled = false
	b.cursor = sort.Search(len(b.triggers), func(i int) bool {
		return b.triggers[i].At >= t
	})
}

// Cancel drops all pending triggers. Idempotent; cancelling an empty or
// already-cancelled binding is a no-op.
func (b *Binding) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancelled = true
	b.cursor = len(b.triggers)
}

// Pending returns the number of triggers still due to fire.
func (b *Binding) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancelled {
		return 0
	}
	return len(b.triggers) - b.cursor
}

// Scheduler owns the bindings of one loaded document. All bindings share
// the one transport clock; the audio render path calls Pump with the
// interval the clock just advanced over.
type Scheduler struct {
	mu       sync.Mutex
	clock    *transport.Clock
	bindings []*Binding
}

// NewScheduler creates an empty scheduler on the given clock.
func NewScheduler(clock *transport.Clock) *Scheduler {
	return &Scheduler{clock: clock}
}

// Bind registers a track with its voice and returns the binding as a
// cancel handle. The binding starts armed from clock zero.
func (s *Scheduler) Bind(track *midi.Track, voice Voice) *Binding {
	b := newBinding(track, voice)
	s.mu.Lock()
	s.bindings = append(s.bindings, b)
	s.mu.Unlock()
	return b
}

// Pump fires all triggers due in [from, to) across every binding.
func (s *Scheduler) Pump(from, to float64) {
	if to <= from {
		return
	}
	s.mu.Lock()
	bindings := s.bindings
	s.mu.Unlock()
	for _, b := range bindings {
		b.pump(from, to)
	}
}

// Rebase re-arms every binding at position t.
func (s *Scheduler) Rebase(t float64) {
	s.mu.Lock()
	bindings := s.bindings
	s.mu.Unlock()
	for _, b := range bindings {
		b.Rebase(t)
	}
}

// Cancel drops all pending triggers on every binding. Idempotent, and safe
// on an empty scheduler.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	bindings := s.bindings
	s.mu.Unlock()
	for _, b := range bindings {
		b.Cancel()
	}
}

// Pending returns the total number of triggers still due across bindings.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	bindings := s.bindings
	s.mu.Unlock()
	total := 0
	for _, b := range bindings {
		total += b.Pending()
	}
	return total
}
