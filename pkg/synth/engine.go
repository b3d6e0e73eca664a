package synth

import (
	"encoding/binary"
	"sync"

	"github.com/patternlab/midiroll/pkg/sched"
	"github.com/patternlab/midiroll/pkg/transport"
)

// Engine owns the voices of one loaded document and renders them against
// the transport clock. Each render block advances the clock, pumps the
// scheduler over the covered interval and mixes every voice into the
// output, so audio timing is derived from the one shared clock only.
type Engine struct {
	mu         sync.Mutex
	sampleRate int
	clock      *transport.Clock
	scheduler  *sched.Scheduler
	voices     []Voice
	bank       *SoundFontBank
	disposed   bool

	scratchL []float32
	scratchR []float32
}

// NewEngine creates an engine on the given clock and scheduler.
func NewEngine(sampleRate int, clock *transport.Clock, scheduler *sched.Scheduler) *Engine {
	return &Engine{sampleRate: sampleRate, clock: clock, scheduler: scheduler}
}

// AddVoice registers a voice for mixing.
func (e *Engine) AddVoice(v Voice) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.voices = append(e.voices, v)
}

// SetBank attaches the shared SoundFont bank, rendered once per block in
// addition to the per-voice output.
func (e *Engine) SetBank(b *SoundFontBank) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bank = b
}

// SetVolume applies a gain in decibels uniformly to every voice.
func (e *Engine) SetVolume(db float64) {
	e.mu.Lock()
	voices := e.voices
	bank := e.bank
	e.mu.Unlock()
	for _, v := range voices {
		v.SetVolume(db)
	}
	if bank != nil {
		bank.SetVolume(db)
	}
}

// ReleaseAll cuts every sounding and pending note on every voice. Called
// on pause and stop: the documented policy is that pausing cuts notes
// rather than letting them ring out.
func (e *Engine) ReleaseAll() {
	e.mu.Lock()
	voices := e.voices
	bank := e.bank
	e.mu.Unlock()
	for _, v := range voices {
		v.ReleaseAll()
	}
	if bank != nil {
		bank.ReleaseAll()
	}
}

// Dispose releases every voice and the bank. Safe to call twice; after
// Dispose the engine renders silence.
func (e *Engine) Dispose() {
	e.mu.Lock()
	voices := e.voices
	bank := e.bank
	e.voices = nil
	e.bank = nil
	e.disposed = true
	e.mu.Unlock()
	for _, v := range voices {
		v.Dispose()
	}
	if bank != nil {
		bank.Dispose()
	}
}

// RenderFloat fills the stereo buffers with the next block of audio. It is
// the only place the clock advances and the scheduler fires, keeping the
// one-writer discipline on transport position.
func (e *Engine) RenderFloat(left, right []float32) {
	for i := range left {
		left[i] = 0
		right[i] = 0
	}

	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	voices := e.voices
	bank := e.bank
	e.mu.Unlock()

	from, to := e.clock.Advance(len(left))
	if e.scheduler != nil && to > from {
		e.scheduler.Pump(from, to)
	}

	for _, v := range voices {
		v.Render(left, right)
	}
	if bank != nil {
		bank.Render(left, right)
	}
}

// Pump renders and discards dt seconds of audio. Used in headless mode and
// tests, where no platform audio player pulls the stream.
func (e *Engine) Pump(dt float64) {
	n := int(dt * float64(e.sampleRate))
	if n <= 0 {
		return
	}
	e.mu.Lock()
	if cap(e.scratchL) < n {
		e.scratchL = make([]float32, n)
		e.scratchR = make([]float32, n)
	}
	left := e.scratchL[:n]
	right := e.scratchR[:n]
	e.mu.Unlock()
	e.RenderFloat(left, right)
}

// Stream adapts the engine to io.Reader for the platform audio player,
// emitting 16-bit little-endian interleaved stereo. After Stop it returns
// silence, so a stale platform player can never pull audio from a torn
// down session.
type Stream struct {
	mu      sync.Mutex
	engine  *Engine
	stopped bool
}

// NewStream wraps the engine for audio output.
func NewStream(engine *Engine) *Stream {
	return &Stream{engine: engine}
}

// Read renders the next block of samples.
func (s *Stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()

	// 16-bit stereo, 4 bytes per sample frame.
	samples := len(p) / 4
	if samples == 0 {
		return 0, nil
	}

	if stopped {
		for i := range p[:samples*4] {
			p[i] = 0
		}
		return samples * 4, nil
	}

	left := make([]float32, samples)
	right := make([]float32, samples)
	s.engine.RenderFloat(left, right)

	for i := 0; i < samples; i++ {
		l := int16(clamp(left[i], -1, 1) * 32767)
		r := int16(clamp(right[i], -1, 1) * 32767)
		binary.LittleEndian.PutUint16(p[i*4:], uint16(l))
		binary.LittleEndian.PutUint16(p[i*4+2:], uint16(r))
	}

	return samples * 4, nil
}

// Stop marks the stream as stopped, causing Read to return silence.
func (s *Stream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

// clamp restricts a value to the range [min, max].
func clamp(v, min, max float32) float32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
