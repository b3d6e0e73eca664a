package sched

import (
	"sync"
	"testing"

	"github.com/patternlab/midiroll/pkg/midi"
	"github.com/patternlab/midiroll/pkg/transport"
)

// recordingVoice captures triggers for inspection.
type recordingVoice struct {
	mu    sync.Mutex
	fired []firedNote
}

type firedNote struct {
	pitch    int
	duration float64
	velocity float64
	offset   float64
}

func (v *recordingVoice) Trigger(pitch int, duration, velocity, offset float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.fired = append(v.fired, firedNote{pitch, duration, velocity, offset})
}

func (v *recordingVoice) count() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.fired)
}

func (v *recordingVoice) pitches() []int {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]int, len(v.fired))
	for i, f := range v.fired {
		out[i] = f.pitch
	}
	return out
}

func testTrack(starts ...float64) *midi.Track {
	tr := &midi.Track{}
	for i, s := range starts {
		tr.Notes = append(tr.Notes, midi.Note{
			Pitch:    60 + i,
			Start:    s,
			Duration: 0.25,
			Velocity: 0.8,
		})
	}
	return tr
}

func newTestScheduler() *Scheduler {
	return NewScheduler(transport.NewClock(44100))
}

func TestPump_FiresWithinWindow(t *testing.T) {
	s := newTestScheduler()
	v := &recordingVoice{}
	s.Bind(testTrack(0.0, 0.5, 1.0), v)

	s.Pump(0, 0.6)
	if got := v.count(); got != 2 {
		t.Fatalf("fired %d triggers, want 2", got)
	}
	if s.Pending() != 1 {
		t.Errorf("Pending = %d, want 1", s.Pending())
	}

	s.Pump(0.6, 1.1)
	if got := v.count(); got != 3 {
		t.Fatalf("fired %d triggers, want 3", got)
	}
	if s.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", s.Pending())
	}
}

func TestPump_WindowIsHalfOpen(t *testing.T) {
	s := newTestScheduler()
	v := &recordingVoice{}
	s.Bind(testTrack(0.5), v)

	// [0, 0.5) excludes the note at exactly 0.5.
	s.Pump(0, 0.5)
	if v.count() != 0 {
		t.Fatalf("trigger at window end fired, want excluded")
	}
	s.Pump(0.5, 1.0)
	if v.count() != 1 {
		t.Fatalf("trigger at window start did not fire")
	}
}

func TestPump_OffsetsRelativeToWindowStart(t *testing.T) {
	s := newTestScheduler()
	v := &recordingVoice{}
	s.Bind(testTrack(0.3), v)

	s.Pump(0.1, 0.5)
	if v.count() != 1 {
		t.Fatalf("fired %d triggers, want 1", v.count())
	}
	if off := v.fired[0].offset; off < 0.199 || off > 0.201 {
		t.Errorf("offset = %v, want ~0.2", off)
	}
}

func TestPump_OffsetNeverNegative(t *testing.T) {
	s := newTestScheduler()
	v := &recordingVoice{}
	s.Bind(testTrack(0.5), v)

	// Rebase slightly past the trigger time, then pump from before it. The
	// stale trigger is skipped; only clamping protects the in-window one.
	s.Rebase(0.4999999)
	s.Pump(0.4999999, 1.0)
	for _, f := range v.fired {
		if f.offset < 0 {
			t.Errorf("negative offset %v", f.offset)
		}
	}
}

func TestPump_UnsortedTrack(t *testing.T) {
	s := newTestScheduler()
	v := &recordingVoice{}
	tr := &midi.Track{Notes: []midi.Note{
		{Pitch: 64, Start: 1.0, Duration: 0.1, Velocity: 0.5},
		{Pitch: 60, Start: 0.0, Duration: 0.1, Velocity: 0.5},
		{Pitch: 62, Start: 0.5, Duration: 0.1, Velocity: 0.5},
	}}
	s.Bind(tr, v)

	s.Pump(0, 2)
	want := []int{60, 62, 64}
	got := v.pitches()
	if len(got) != len(want) {
		t.Fatalf("fired %d triggers, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pitch[%d] = %d, want %d (ordered by onset)", i, got[i], want[i])
		}
	}
}

func TestCancel_DropsAllPending(t *testing.T) {
	s := newTestScheduler()
	v := &recordingVoice{}
	s.Bind(testTrack(0.5, 1.0, 1.5), v)

	s.Cancel()
	if s.Pending() != 0 {
		t.Errorf("Pending = %d after Cancel, want 0", s.Pending())
	}
	s.Pump(0, 10)
	if v.count() != 0 {
		t.Errorf("%d triggers fired after Cancel, want 0", v.count())
	}
}

func TestCancel_Idempotent(t *testing.T) {
	s := newTestScheduler()
	s.Bind(testTrack(0.5), &recordingVoice{})

	s.Cancel()
	s.Cancel()
	s.Cancel()
	if s.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", s.Pending())
	}
}

func TestCancel_EmptyScheduler(t *testing.T) {
	s := newTestScheduler()
	s.Cancel() // must not panic
	if s.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", s.Pending())
	}
}

func TestRebase_SkipsEarlierTriggers(t *testing.T) {
	s := newTestScheduler()
	v := &recordingVoice{}
	s.Bind(testTrack(0.0, 0.5, 1.0, 1.5), v)

	s.Rebase(0.75)
	if s.Pending() != 2 {
		t.Fatalf("Pending = %d after Rebase(0.75), want 2", s.Pending())
	}
	s.Pump(0.75, 2.0)
	got := v.pitches()
	if len(got) != 2 || got[0] != 62 || got[1] != 63 {
		t.Errorf("fired pitches %v, want [62 63]", got)
	}
}

func TestRebase_ReArmsCancelledBinding(t *testing.T) {
	s := newTestScheduler()
	v := &recordingVoice{}
	s.Bind(testTrack(0.5), v)

	s.Cancel()
	s.Rebase(0)
	if s.Pending() != 1 {
		t.Fatalf("Pending = %d after Rebase, want 1", s.Pending())
	}
	s.Pump(0, 1)
	if v.count() != 1 {
		t.Errorf("re-armed trigger did not fire")
	}
}

func TestRebase_ExactTriggerTimeIncluded(t *testing.T) {
	s := newTestScheduler()
	s.Bind(testTrack(0.5), &recordingVoice{})

	s.Rebase(0.5)
	if s.Pending() != 1 {
		t.Errorf("Pending = %d, want 1 (trigger at rebase point stays pending)", s.Pending())
	}
}

func TestBindingCancel_IsolatedPerBinding(t *testing.T) {
	s := newTestScheduler()
	va, vb := &recordingVoice{}, &recordingVoice{}
	ba := s.Bind(testTrack(0.5), va)
	s.Bind(testTrack(0.5), vb)

	ba.Cancel()
	s.Pump(0, 1)
	if va.count() != 0 {
		t.Errorf("cancelled binding fired %d triggers", va.count())
	}
	if vb.count() != 1 {
		t.Errorf("live binding fired %d triggers, want 1", vb.count())
	}
}

func TestRepositionWithPausedClock_RenderFiresNothing(t *testing.T) {
	clock := transport.NewClock(44100)
	s := NewScheduler(clock)
	v := &recordingVoice{}
	s.Bind(testTrack(1.0, 2.0, 3.0, 4.0), v)
	clock.Start(0)

	// Forward seek in the playback controller's order: pause the clock,
	// move it, rebase, then resume. A render block pulled by the audio
	// goroutine between the move and the rebase must cover an empty
	// interval, or every note between the old and new positions would
	// fire at once with offset 0.
	running := clock.Running()
	clock.Pause()
	clock.Seek(4.5)

	from, to := clock.Advance(4410)
	s.Pump(from, to)

	s.Rebase(4.5)
	if running {
		clock.Start(4.5)
	}

	if v.count() != 0 {
		t.Errorf("render during reposition fired %d triggers (pitches %v), want 0",
			v.count(), v.pitches())
	}
	if s.Pending() != 0 {
		t.Errorf("Pending = %d, want 0 past the last note", s.Pending())
	}
	if !clock.Running() {
		t.Error("clock not resumed after reposition")
	}
	if got := clock.CurrentSeconds(); got < 4.499 || got > 4.501 {
		t.Errorf("CurrentSeconds = %v, want 4.5", got)
	}
}

func TestSwapDocuments_NoStaleTriggers(t *testing.T) {
	s := newTestScheduler()
	va := &recordingVoice{}
	s.Bind(testTrack(0.1, 0.2), va)

	// Teardown of document A, then a fresh scheduler for document B.
	s.Cancel()
	s2 := newTestScheduler()
	vb := &recordingVoice{}
	s2.Bind(&midi.Track{Notes: []midi.Note{
		{Pitch: 72, Start: 0.1, Duration: 0.2, Velocity: 0.9},
	}}, vb)

	s.Pump(0, 1)
	s2.Pump(0, 1)

	if va.count() != 0 {
		t.Errorf("old document fired %d triggers after teardown", va.count())
	}
	if vb.count() != 1 {
		t.Errorf("new document fired %d triggers, want 1", vb.count())
	}
}
