// Package transport provides the shared logical playback clock that drives
// both audio scheduling and the visual playhead.
package transport

import "sync"

// DefaultSampleRate is the audio sample rate the clock counts in.
const DefaultSampleRate = 44100

// Clock is a sample-counting logical time source. Audio scheduling and the
// piano-roll playhead both derive their position from it, never from
// independently accumulated wall-clock deltas, so they cannot drift apart
// over a long session.
//
// Position is advanced only by the audio render path (Advance) while the
// clock is running, and repositioned only by explicit transport commands
// (Start/Seek/Stop). Readers poll CurrentSeconds, which is cheap enough to
// call once per frame.
type Clock struct {
	mu         sync.Mutex
	sampleRate int
	posSamples int64
	running    bool
}

// NewClock creates a stopped clock at position zero.
func NewClock(sampleRate int) *Clock {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Clock{sampleRate: sampleRate}
}

// SampleRate returns the clock's sample rate.
func (c *Clock) SampleRate() int {
	return c.sampleRate
}

// Start begins advancing from the given offset in seconds. Negative offsets
// are clamped to zero.
func (c *Clock) Start(fromSeconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.posSamples = c.samplesFor(fromSeconds)
	c.running = true
}

// Pause freezes advancement, keeping the current offset for resume.
func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
}

// Stop freezes advancement and resets the position to zero.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	c.posSamples = 0
}

// Seek repositions the clock without changing whether it is running.
// Negative targets are clamped to zero; the upper bound is the owner's
// responsibility since the clock does not know the document duration.
func (c *Clock) Seek(seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.posSamples = c.samplesFor(seconds)
}

// Running reports whether the clock is advancing.
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// CurrentSeconds returns the current logical position.
func (c *Clock) CurrentSeconds() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return float64(c.posSamples) / float64(c.sampleRate)
}

// Advance moves the clock forward by n samples and returns the covered
// interval [from, to) in seconds. While paused or stopped the position is
// unchanged and from == to, so schedulers pumping the interval fire nothing.
func (c *Clock) Advance(n int) (from, to float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	from = float64(c.posSamples) / float64(c.sampleRate)
	if !c.running || n <= 0 {
		return from, from
	}
	c.posSamples += int64(n)
	to = float64(c.posSamples) / float64(c.sampleRate)
	return from, to
}

func (c *Clock) samplesFor(seconds float64) int64 {
	if seconds < 0 {
		seconds = 0
	}
	return int64(seconds * float64(c.sampleRate))
}
