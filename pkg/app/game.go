package app

import (
	"fmt"
	"image"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/patternlab/midiroll/pkg/player"
	"github.com/patternlab/midiroll/pkg/roll"
)

const (
	screenWidth  = 960
	screenHeight = 480
	hudHeight    = 48
)

// game is the Ebitengine front of the player: it polls the transport once
// per frame, redraws the piano roll from the shared clock position and
// translates input into transport commands.
type game struct {
	app    *Application
	view   roll.ViewConfig
	layout roll.Layout
}

func newGame(app *Application) *game {
	mode := roll.ModePlain
	if app.config.Theory {
		mode = roll.ModeTheoryColored
	}
	return &game{
		app: app,
		view: roll.ViewConfig{
			Width:          screenWidth,
			Height:         screenHeight - hudHeight,
			Zoom:           1,
			Mode:           mode,
			RootPitchClass: app.rootPC,
			FollowPlayhead: true,
		},
	}
}

func (g *game) Update() error {
	p := g.app.player
	p.Update()

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		if p.Status() == player.StatusPlaying {
			p.Pause()
		} else if err := p.Play(); err != nil {
			g.app.log.Error("playback failed", "error", err)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyS) {
		p.Stop()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyT) {
		if g.view.Mode == roll.ModePlain {
			g.view.Mode = roll.ModeTheoryColored
		} else {
			g.view.Mode = roll.ModePlain
		}
	}

	if doc := p.Document(); doc != nil {
		beat := 60.0 / doc.TempoBPM
		if inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft) {
			p.Seek(p.CurrentTime() - beat)
		}
		if inpututil.IsKeyJustPressed(ebiten.KeyArrowRight) {
			p.Seek(p.CurrentTime() + beat)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) {
		p.SetVolume(p.Volume() + 2)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) {
		p.SetVolume(p.Volume() - 2)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEqual) && g.view.Zoom < 4 {
		g.view.Zoom *= 2
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyMinus) && g.view.Zoom > 0.5 {
		g.view.Zoom /= 2
	}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		x, y := ebiten.CursorPosition()
		if y < g.view.Height {
			p.Seek(g.layout.TimeAt(float64(x)))
		}
	}

	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	p := g.app.player

	rollArea := screen.SubImage(image.Rect(0, 0, g.view.Width, g.view.Height)).(*ebiten.Image)
	g.layout = roll.Draw(rollArea, p.Document(), p.CurrentTime(), g.view, g.app.theme)

	hud := fmt.Sprintf("%s  %s / %s  vol %.0fdB  pending %d",
		p.Status(),
		formatTime(p.CurrentTime()), formatTime(p.Duration()),
		p.Volume(), p.Pending())
	if doc := p.Document(); doc != nil {
		hud += fmt.Sprintf("  |  %d track(s)  %.0f BPM", len(doc.Tracks), doc.TempoBPM)
	}
	ebitenutil.DebugPrintAt(screen, hud, 4, g.view.Height+8)
	ebitenutil.DebugPrintAt(screen, "space play/pause  s stop  t theory  arrows seek/vol  click seek", 4, g.view.Height+24)
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

// formatTime renders seconds as m:ss.
func formatTime(seconds float64) string {
	mins := int(seconds) / 60
	secs := int(seconds) % 60
	return fmt.Sprintf("%d:%02d", mins, secs)
}

// runWindow runs the windowed player until the window closes.
func (app *Application) runWindow() error {
	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("midiroll")
	if err := ebiten.RunGame(newGame(app)); err != nil {
		return fmt.Errorf("game loop failed: %w", err)
	}
	return nil
}
