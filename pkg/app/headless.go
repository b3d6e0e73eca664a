package app

import (
	"fmt"
	"time"

	"github.com/patternlab/midiroll/pkg/player"
)

// headlessTick is the simulated frame length of the headless loop.
const headlessTick = time.Second / 60

// runHeadless plays the loaded document to completion without a window or
// audio device: the loop pumps the engine by one frame of samples per
// tick, so scheduling and end-of-document behavior match the windowed
// player exactly. Used by CI and for smoke-testing generated patterns.
func (app *Application) runHeadless() error {
	p := app.player
	if err := p.Play(); err != nil {
		return fmt.Errorf("headless playback failed: %w", err)
	}

	start := time.Now()
	ticker := time.NewTicker(headlessTick)
	defer ticker.Stop()

	for range ticker.C {
		p.Pump(headlessTick.Seconds())
		p.Update()

		if p.Status() == player.StatusStopped {
			app.log.Info("playback finished", "position", p.CurrentTime())
			return nil
		}
		if app.config.Timeout > 0 && time.Since(start) > app.config.Timeout {
			app.log.Info("timeout exceeded", "elapsed", time.Since(start))
			return nil
		}
	}
	return nil
}
