package synth

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/sinshu/go-meltysynth/meltysynth"
)

// sfEvent is a sample-delayed note-on or note-off for the shared
// SoundFont synthesizer.
type sfEvent struct {
	delay    int64
	channel  int32
	key      int32
	velocity int32
	on       bool
}

// SoundFontBank renders every track through one shared meltysynth
// synthesizer, one MIDI channel per track. It is the SoundFont-backed
// alternative to the oscillator voices, used when an .sf2 file is supplied.
type SoundFontBank struct {
	mu         sync.Mutex
	synth      *meltysynth.Synthesizer
	sampleRate int
	pending    []sfEvent
	gain       float64

	scratchL []float32
	scratchR []float32
}

// NewSoundFontBank creates a bank on an already parsed SoundFont.
func NewSoundFontBank(sf *meltysynth.SoundFont, sampleRate int) (*SoundFontBank, error) {
	settings := meltysynth.NewSynthesizerSettings(int32(sampleRate))
	s, err := meltysynth.NewSynthesizer(sf, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesizer: %w", err)
	}
	return &SoundFontBank{synth: s, sampleRate: sampleRate, gain: 1}, nil
}

// Voice returns the per-track voice for the given MIDI channel.
func (b *SoundFontBank) Voice(channel int) Voice {
	return &sfVoice{bank: b, channel: int32(channel)}
}

func (b *SoundFontBank) schedule(channel int32, pitch int, duration, velocity, offset float64) {
	if pitch < 0 || pitch > 127 {
		return
	}
	if offset < 0 || math.IsNaN(offset) {
		offset = 0
	}
	if duration <= 0 {
		duration = 1.0 / float64(b.sampleRate)
	}
	vel := int32(velocity * 127)
	if vel < 1 {
		vel = 1
	} else if vel > 127 {
		vel = 127
	}
	onAt := int64(offset * float64(b.sampleRate))
	offAt := int64((offset + duration) * float64(b.sampleRate))

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.synth == nil {
		return
	}
	b.pending = append(b.pending,
		sfEvent{delay: onAt, channel: channel, key: int32(pitch), velocity: vel, on: true},
		sfEvent{delay: offAt, channel: channel, key: int32(pitch), on: false},
	)
}

// SetVolume sets the bank gain in decibels. The gain is shared across
// channels, matching the uniform volume policy of the transport.
func (b *SoundFontBank) SetVolume(db float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gain = math.Pow(10, db/20)
}

// ReleaseAll cuts every sounding and pending note on every channel.
func (b *SoundFontBank) ReleaseAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = nil
	if b.synth != nil {
		b.synth.NoteOffAll(true)
	}
}

// Dispose silences the bank and drops the synthesizer. Idempotent.
func (b *SoundFontBank) Dispose() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = nil
	if b.synth != nil {
		b.synth.NoteOffAll(true)
		b.synth = nil
	}
}

// Render mixes the bank additively into the buffers, applying pending
// note-ons and note-offs at their exact sample offsets within the block.
func (b *SoundFontBank) Render(left, right []float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.synth == nil {
		return
	}

	n := len(left)
	if cap(b.scratchL) < n {
		b.scratchL = make([]float32, n)
		b.scratchR = make([]float32, n)
	}
	scratchL := b.scratchL[:n]
	scratchR := b.scratchR[:n]

	sort.SliceStable(b.pending, func(i, j int) bool {
		return b.pending[i].delay < b.pending[j].delay
	})

	idx := 0
	pos := 0
	for pos < n {
		for idx < len(b.pending) && b.pending[idx].delay <= int64(pos) {
			ev := b.pending[idx]
			idx++
			if ev.on {
				b.synth.NoteOn(ev.channel, ev.key, ev.velocity)
			} else {
				b.synth.NoteOff(ev.channel, ev.key)
			}
		}
		next := n
		if idx < len(b.pending) && b.pending[idx].delay < int64(n) {
			next = int(b.pending[idx].delay)
		}
		if next > pos {
			seg := next - pos
			b.synth.Render(scratchL[:seg], scratchR[:seg])
			for i := 0; i < seg; i++ {
				left[pos+i] += scratchL[i] * float32(b.gain)
				right[pos+i] += scratchR[i] * float32(b.gain)
			}
			pos = next
		}
	}

	// Keep events beyond this block, shifted to the next block's origin.
	rest := b.pending[idx:]
	for i := range rest {
		rest[i].delay -= int64(n)
	}
	b.pending = append(b.pending[:0], rest...)
}

// sfVoice adapts one MIDI channel of the shared bank to the Voice
// interface. Rendering happens once per block at the bank level, so the
// per-voice Render is a no-op.
type sfVoice struct {
	bank    *SoundFontBank
	channel int32
}

func (v *sfVoice) Trigger(pitch int, duration, velocity, offset float64) {
	v.bank.schedule(v.channel, pitch, duration, velocity, offset)
}

func (v *sfVoice) SetVolume(db float64)         { v.bank.SetVolume(db) }
func (v *sfVoice) ReleaseAll()                  { v.bank.ReleaseAll() }
func (v *sfVoice) Dispose()                     {}
func (v *sfVoice) Render(left, right []float32) {}
