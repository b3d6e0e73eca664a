// Package player is the playback controller: it owns the lifecycle of the
// document, clock, scheduler and voice pool for at most one active session,
// and exposes the transport surface (load, play, pause, stop, seek).
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sinshu/go-meltysynth/meltysynth"

	"github.com/patternlab/midiroll/pkg/midi"
	"github.com/patternlab/midiroll/pkg/sched"
	"github.com/patternlab/midiroll/pkg/synth"
	"github.com/patternlab/midiroll/pkg/transport"
)

// ErrSuperseded is returned from a Load whose result was discarded because
// a newer Load started while it was in flight. Only the last load wins.
var ErrSuperseded = errors.New("load superseded by a newer load")

// ErrAudioEngine is returned when the platform audio subsystem cannot be
// initialized or resumed. Recoverable: retrying Play after a user gesture
// is expected to succeed.
var ErrAudioEngine = errors.New("audio engine failure")

// Status is the transport state of the controller.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusPlaying
	StatusPaused
	StatusStopped
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusStopped:
		return "stopped"
	default:
		return "error"
	}
}

// Fetcher retrieves MIDI bytes for a URL. The backend API client satisfies
// it; tests substitute their own.
type Fetcher interface {
	FetchMIDI(ctx context.Context, url string) ([]byte, error)
}

// AudioHandle is a playing platform audio stream.
type AudioHandle interface {
	Play()
	Pause()
	Close() error
}

// AudioSink creates platform audio players on a sample stream. It is nil
// in headless mode, where the update loop pumps the engine instead.
type AudioSink interface {
	NewPlayer(r io.Reader) (AudioHandle, error)
}

// Player is the playback controller. All exported methods are safe for
// concurrent use; the audio render path never takes the Player's lock.
type Player struct {
	mu      sync.Mutex
	log     *slog.Logger
	fetcher Fetcher
	audio   AudioSink

	soundFont *meltysynth.SoundFont // optional, nil selects oscillator voices
	volumeDB  float64

	status    Status
	loadGen   uint64
	sessionID string

	doc       *midi.Document
	raw       []byte
	sourceURL string
	clock     *transport.Clock
	scheduler *sched.Scheduler
	engine    *synth.Engine
	stream    *synth.Stream
	handle    AudioHandle
}

// New creates an idle player. audio may be nil for headless operation.
func New(log *slog.Logger, fetcher Fetcher, audio AudioSink) *Player {
	if log == nil {
		log = slog.Default()
	}
	return &Player{log: log, fetcher: fetcher, audio: audio}
}

// SetSoundFont selects SoundFont synthesis for subsequently loaded
// documents. A nil SoundFont selects the built-in oscillator voices.
func (p *Player) SetSoundFont(sf *meltysynth.SoundFont) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.soundFont = sf
}

// Load fetches, parses and provisions a document. Any previous session is
// torn down synchronously before the fetch starts, so no binding of the
// old document can fire once Load has begun. Concurrent Loads serialize:
// an overtaken call returns ErrSuperseded and leaves no trace.
func (p *Player) Load(ctx context.Context, url string) error {
	p.mu.Lock()
	p.loadGen++
	gen := p.loadGen
	p.teardownLocked()
	p.status = StatusLoading
	p.mu.Unlock()

	data, err := p.fetcher.FetchMIDI(ctx, url)

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.loadGen {
		return ErrSuperseded
	}
	if err != nil {
		p.status = StatusError
		p.log.Error("MIDI fetch failed", "url", url, "error", err)
		return err
	}
	return p.buildSessionLocked(url, data)
}

// LoadData provisions a session from already fetched bytes, bypassing the
// network. Used for local files and by tests.
func (p *Player) LoadData(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loadGen++
	p.teardownLocked()
	p.status = StatusLoading
	return p.buildSessionLocked("", data)
}

// buildSessionLocked parses the bytes and provisions clock, voices and
// bindings. On failure the controller ends in StatusError with no voices
// allocated.
func (p *Player) buildSessionLocked(url string, data []byte) error {
	doc, err := midi.Parse(data)
	if err != nil {
		p.status = StatusError
		p.log.Error("MIDI parse failed", "url", url, "error", err)
		return err
	}

	clock := transport.NewClock(transport.DefaultSampleRate)
	scheduler := sched.NewScheduler(clock)
	engine := synth.NewEngine(transport.DefaultSampleRate, clock, scheduler)

	var bank *synth.SoundFontBank
	if p.soundFont != nil {
		bank, err = synth.NewSoundFontBank(p.soundFont, transport.DefaultSampleRate)
		if err != nil {
			p.status = StatusError
			return fmt.Errorf("%w: %v", ErrAudioEngine, err)
		}
		engine.SetBank(bank)
	}

	for i := range doc.Tracks {
		track := &doc.Tracks[i]
		var voice synth.Voice
		if bank != nil {
			voice = bank.Voice(i % 16)
		} else {
			voice = synth.NewOscVoice(transport.DefaultSampleRate, timbreFor(track, i))
		}
		engine.AddVoice(voice)
		scheduler.Bind(track, voice)
	}
	engine.SetVolume(p.volumeDB)

	p.doc = doc
	p.raw = data
	p.sourceURL = url
	p.clock = clock
	p.scheduler = scheduler
	p.engine = engine
	p.stream = synth.NewStream(engine)
	p.sessionID = uuid.NewString()
	p.status = StatusReady

	p.log.Info("MIDI document loaded",
		"session", p.sessionID,
		"tracks", len(doc.Tracks),
		"notes", doc.NoteCount(),
		"duration", doc.DurationSeconds,
		"bpm", doc.TempoBPM)
	return nil
}

// timbreFor picks the voice timbre: percussive for drum-named tracks,
// otherwise a tonal waveform rotated by track index.
func timbreFor(track *midi.Track, index int) synth.Timbre {
	name := strings.ToLower(track.Name)
	for _, hint := range []string{"drum", "perc", "kick", "hat", "snare"} {
		if strings.Contains(name, hint) {
			return synth.TimbrePercussive
		}
	}
	return synth.TimbreForTrack(index)
}

// Play starts or resumes playback from the current position. A no-op while
// already playing or before a document is loaded. Playing after the end of
// the document restarts from zero.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil || p.status == StatusPlaying || p.status == StatusLoading {
		return nil
	}

	pos := p.clock.CurrentSeconds()
	if pos >= p.doc.DurationSeconds {
		pos = 0
	}

	// The platform audio context may be created only on a user gesture;
	// this is that integration point.
	if p.audio != nil && p.handle == nil {
		handle, err := p.audio.NewPlayer(p.stream)
		if err != nil {
			p.scheduler.Cancel()
			p.engine.ReleaseAll()
			p.clock.Pause()
			p.status = StatusError
			return fmt.Errorf("%w: %v", ErrAudioEngine, err)
		}
		p.handle = handle
		handle.Play()
	}

	p.scheduler.Rebase(pos)
	p.clock.Start(pos)
	p.status = StatusPlaying
	return nil
}

// Pause freezes the transport. Sounding notes are cut immediately rather
// than ringing out; that is the documented policy. No-op unless playing.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != StatusPlaying {
		return
	}
	p.clock.Pause()
	p.engine.ReleaseAll()
	p.status = StatusPaused
}

// Stop cancels all pending triggers and resets the position to zero.
// Idempotent, and safe in any state including mid-load.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil {
		return
	}
	p.scheduler.Cancel()
	p.engine.ReleaseAll()
	p.clock.Stop()
	p.status = StatusStopped
}

// Seek moves the transport to t seconds, clamped to [0, duration]. The
// audio render path never takes this lock, so the clock is paused for the
// duration of the swap: a block rendered mid-seek sees an empty advance
// interval and cannot pump triggers against a cursor that has not been
// rebased yet. Seeking to or past the end behaves as reaching the end of
// the document.
func (p *Player) Seek(t float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil {
		return
	}
	if t < 0 {
		t = 0
	}
	if t >= p.doc.DurationSeconds && p.doc.DurationSeconds > 0 {
		p.endReachedLocked()
		return
	}

	running := p.clock.Running()
	p.clock.Pause()
	p.engine.ReleaseAll()
	p.clock.Seek(t)
	p.scheduler.Rebase(t)
	if running {
		p.clock.Start(t)
	}
}

// Update polls for end-of-document; the render loop calls it once per
// frame. When the position reaches the duration the transport stops with
// the position left at the end.
func (p *Player) Update() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != StatusPlaying || p.doc == nil {
		return
	}
	if p.clock.CurrentSeconds() >= p.doc.DurationSeconds {
		p.endReachedLocked()
	}
}

// endReachedLocked stops the transport at the end of the document, leaving
// the position at the duration (unlike Stop, which resets it to zero).
func (p *Player) endReachedLocked() {
	p.scheduler.Cancel()
	p.engine.ReleaseAll()
	p.clock.Pause()
	p.clock.Seek(p.doc.DurationSeconds)
	p.status = StatusStopped
}

// Pump advances playback by dt seconds without a platform audio player.
// Headless mode and tests drive the engine through it; with a real audio
// sink attached it must not be called.
func (p *Player) Pump(dt float64) {
	p.mu.Lock()
	engine := p.engine
	p.mu.Unlock()
	if engine != nil {
		engine.Pump(dt)
	}
}

// SetVolume applies a gain in decibels uniformly to all voices, clamped to
// [-40, 0] as in the product's volume slider.
func (p *Player) SetVolume(db float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if db < -40 {
		db = -40
	}
	if db > 0 {
		db = 0
	}
	p.volumeDB = db
	if p.engine != nil {
		p.engine.SetVolume(db)
	}
}

// Volume returns the current gain in decibels.
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volumeDB
}

// CurrentTime returns the transport position in seconds. Cheap; intended
// for per-frame polling.
func (p *Player) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.clock == nil {
		return 0
	}
	return p.clock.CurrentSeconds()
}

// Duration returns the loaded document's length in seconds, 0 when none.
func (p *Player) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil {
		return 0
	}
	return p.doc.DurationSeconds
}

// Status returns the transport state.
func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Document returns the loaded document, nil when none. Documents are
// immutable, so sharing the pointer with the renderer is safe.
func (p *Player) Document() *midi.Document {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc
}

// Raw returns a copy of the loaded file's bytes for the download fallback.
// The file may still be valid even when in-process synthesis fails.
func (p *Player) Raw() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.raw == nil {
		return nil
	}
	out := make([]byte, len(p.raw))
	copy(out, p.raw)
	return out
}

// SourceURL returns the URL the current document was loaded from, if any.
func (p *Player) SourceURL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sourceURL
}

// Download writes the loaded file's bytes to w.
func (p *Player) Download(w io.Writer) error {
	data := p.Raw()
	if data == nil {
		return errors.New("no document loaded")
	}
	_, err := w.Write(data)
	return err
}

// Pending returns the number of triggers still scheduled. Exposed for the
// debug HUD and tests.
func (p *Player) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.scheduler == nil {
		return 0
	}
	return p.scheduler.Pending()
}

// Close tears down the active session and returns the player to idle.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loadGen++
	p.teardownLocked()
	p.status = StatusIdle
}

// teardownSession is the single teardown routine: it cancels every pending
// trigger, silences and disposes all voices, closes the platform player
// and drops the session state. Called before each new load, on Close, and
// nowhere else.
func (p *Player) teardownLocked() {
	if p.stream != nil {
		p.stream.Stop()
	}
	if p.handle != nil {
		p.handle.Close()
		p.handle = nil
	}
	if p.scheduler != nil {
		p.scheduler.Cancel()
	}
	if p.engine != nil {
		p.engine.Dispose()
	}
	if p.clock != nil {
		p.clock.Stop()
	}
	p.doc = nil
	p.raw = nil
	p.sourceURL = ""
	p.clock = nil
	p.scheduler = nil
	p.engine = nil
	p.stream = nil
	p.sessionID = ""
}
