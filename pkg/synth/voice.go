// Package synth implements the audio voice pool: one software synthesizer
// voice per track, mixed into a single stream for the platform audio player.
package synth

import (
	"math"
	"sync"
)

// Timbre selects the waveform of an oscillator voice. The assignment per
// track is a cosmetic policy for audible differentiation, not a correctness
// requirement.
type Timbre int

const (
	TimbreTriangle Timbre = iota
	TimbreSine
	TimbreSquare
	TimbrePercussive
)

// TimbreForTrack rotates tonal timbres by track index so adjacent tracks
// sound distinct.
func TimbreForTrack(index int) Timbre {
	switch index % 3 {
	case 0:
		return TimbreTriangle
	case 1:
		return TimbreSine
	default:
		return TimbreSquare
	}
}

// Voice is one polyphonic synthesizer voice. Trigger schedules a note-on /
// note-off pair offset seconds into the future relative to the render
// position; it does not play immediately. All methods are safe for
// concurrent use with the audio render path.
type Voice interface {
	Trigger(pitch int, duration, velocity, offset float64)
	SetVolume(db float64)
	// ReleaseAll cuts every sounding and pending note immediately.
	ReleaseAll()
	// Dispose releases the voice's resources. Safe to call on a voice that
	// never played, and safe to call twice.
	Dispose()
	// Render mixes the voice's output additively into the stereo buffers.
	Render(left, right []float32)
}

// Envelope constants, matching the short pluck envelope of the web player
// this engine replaces (attack 5ms, decay 100ms to 0.3 sustain, release
// 100ms).
const (
	envAttack  = 0.005
	envDecay   = 0.1
	envSustain = 0.3
	envRelease = 0.1
)

// oscNote is one scheduled or sounding note inside an OscVoice.
type oscNote struct {
	delay     int // samples until onset
	remaining int // sounding samples left before release
	release   int // samples into the release tail, once remaining == 0
	elapsed   int // samples since onset
	freq      float64
	phase     float64
	velocity  float64
	noise     uint32 // per-note PRNG state for the percussive timbre
}

// OscVoice is a simple polyphonic oscillator voice with an ADSR envelope.
type OscVoice struct {
	mu         sync.Mutex
	sampleRate int
	timbre     Timbre
	gain       float64
	notes      []*oscNote
	disposed   bool
}

// NewOscVoice creates a voice at unity gain (0 dB).
func NewOscVoice(sampleRate int, timbre Timbre) *OscVoice {
	return &OscVoice{sampleRate: sampleRate, timbre: timbre, gain: 1}
}

// Trigger schedules one note. Negative offsets are clamped to zero and
// non-positive durations to a single sample, so float rounding around a
// note's exact start cannot panic or drop the note.
func (v *OscVoice) Trigger(pitch int, duration, velocity, offset float64) {
	if pitch < 0 || pitch > 127 {
		return
	}
	if offset < 0 || math.IsNaN(offset) {
		offset = 0
	}
	durSamples := int(duration * float64(v.sampleRate))
	if durSamples < 1 {
		durSamples = 1
	}
	if velocity < 0 {
		velocity = 0
	} else if velocity > 1 {
		velocity = 1
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.disposed {
		return
	}
	v.notes = append(v.notes, &oscNote{
		delay:     int(offset * float64(v.sampleRate)),
		remaining: durSamples,
		freq:      440 * math.Pow(2, float64(pitch-69)/12),
		velocity:  velocity,
		noise:     uint32(pitch)*2654435761 + 1,
	})
}

// SetVolume sets the voice gain in decibels, applied immediately to already
// sounding notes as well.
func (v *OscVoice) SetVolume(db float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gain = math.Pow(10, db/20)
}

// ReleaseAll drops every pending and sounding note.
func (v *OscVoice) ReleaseAll() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notes = nil
}

// Dispose silences the voice permanently. Idempotent.
func (v *OscVoice) Dispose() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notes = nil
	v.disposed = true
}

// Active returns the number of scheduled or sounding notes. Used by tests
// and the debug HUD.
func (v *OscVoice) Active() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.notes)
}

// Render mixes the voice additively into the buffers.
func (v *OscVoice) Render(left, right []float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.disposed || len(v.notes) == 0 {
		return
	}

	attack := int(envAttack * float64(v.sampleRate))
	decay := int(envDecay * float64(v.sampleRate))
	release := int(envRelease * float64(v.sampleRate))

	alive := v.notes[:0]
	for _, n := range v.notes {
		if v.renderNote(n, left, right, attack, decay, release) {
			alive = append(alive, n)
		}
	}
	v.notes = alive
}

// renderNote advances one note through the block, reporting whether it is
// still alive afterwards.
func (v *OscVoice) renderNote(n *oscNote, left, right []float32, attack, decay, release int) bool {
	step := n.freq / float64(v.sampleRate)
	for i := range left {
		if n.delay > 0 {
			n.delay--
			continue
		}
		if n.remaining == 0 && n.release >= release {
			return false
		}

		env := envSustain
		switch {
		case n.remaining == 0:
			env = envSustain * (1 - float64(n.release)/float64(release))
			n.release++
		case n.elapsed < attack:
			env = float64(n.elapsed) / float64(attack)
		case n.elapsed < attack+decay:
			env = 1 - (1-envSustain)*float64(n.elapsed-attack)/float64(decay)
		}

		sample := float32(v.oscillate(n) * env * n.velocity * v.gain)
		left[i] += sample
		right[i] += sample

		n.elapsed++
		if n.remaining > 0 {
			n.remaining--
		}
		n.phase += step
		if n.phase >= 1 {
			n.phase -= 1
		}
	}
	return true
}

// oscillate produces one raw waveform sample for the note.
func (v *OscVoice) oscillate(n *oscNote) float64 {
	switch v.timbre {
	case TimbreSine:
		return math.Sin(2 * math.Pi * n.phase)
	case TimbreSquare:
		if n.phase < 0.5 {
			return 0.4 // squares are loud, tame them a little
		}
		return -0.4
	case TimbrePercussive:
		// White noise with a fast exponential decay; pitch only seeds the
		// generator.
		n.noise = n.noise*1664525 + 1013904223
		raw := float64(int32(n.noise)) / math.MaxInt32
		decay := math.Exp(-8 * float64(n.elapsed) / float64(v.sampleRate))
		return raw * decay
	default: // TimbreTriangle
		return 4*math.Abs(n.phase-0.5) - 1
	}
}
