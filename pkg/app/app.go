// Package app wires the CLI configuration, logger, backend client and
// player into a runnable application, windowed or headless.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/patternlab/midiroll/pkg/api"
	"github.com/patternlab/midiroll/pkg/cli"
	"github.com/patternlab/midiroll/pkg/fileutil"
	"github.com/patternlab/midiroll/pkg/logger"
	"github.com/patternlab/midiroll/pkg/player"
	"github.com/patternlab/midiroll/pkg/roll"
)

// Application manages the main application logic.
type Application struct {
	config *cli.Config
	log    *slog.Logger
	client *api.Client
	player *player.Player
	theme  roll.Theme
	rootPC int
}

// New creates an Application.
func New() *Application {
	return &Application{}
}

// Run executes the application with the given command line arguments.
func (app *Application) Run(args []string) error {
	// .env first so flag parsing sees its variables as environment.
	_ = godotenv.Load()

	config, err := cli.ParseArgs(args)
	if err != nil {
		return fmt.Errorf("failed to parse args: %w", err)
	}
	app.config = config

	if config.ShowHelp {
		cli.PrintHelp()
		return nil
	}

	if err := logger.InitLogger(config.LogLevel); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.log = logger.GetLogger()
	app.log.Info("midiroll started", "headless", config.Headless)

	app.rootPC, err = roll.ParseKey(config.MusicalKey)
	if err != nil {
		return err
	}

	app.theme = roll.DefaultTheme()
	if config.ThemeFile != "" {
		app.theme, err = roll.LoadTheme(config.ThemeFile)
		if err != nil {
			return err
		}
		if err := app.theme.Validate(); err != nil {
			return fmt.Errorf("invalid theme: %w", err)
		}
	}

	app.client = api.NewClient(config.APIBase, config.Token)

	var sink player.AudioSink
	if !config.Headless {
		sink = newEbitenSink()
	}
	app.player = player.New(app.log, app.client, sink)
	defer app.player.Close()

	if config.SoundFont != "" {
		sf, err := loadSoundFont(config.SoundFont)
		if err != nil {
			return err
		}
		app.player.SetSoundFont(sf)
		app.log.Info("SoundFont loaded", "path", config.SoundFont)
	}
	app.player.SetVolume(config.VolumeDB)

	if err := app.loadSource(context.Background()); err != nil {
		// The file may still be downloadable even when it cannot be
		// played; the caller decides what to do with the raw bytes.
		return err
	}

	if config.Headless {
		return app.runHeadless()
	}
	return app.runWindow()
}

// loadSource resolves the configured source into a loaded document:
// a freshly generated pattern, a remote URL, or a local file.
func (app *Application) loadSource(ctx context.Context) error {
	source := app.config.Source

	if app.config.Generate {
		resp, err := app.client.Generate(ctx, api.GenerateRequest{
			Style:        app.config.Style,
			Instrument:   app.config.Instrument,
			BPM:          app.config.BPM,
			Bars:         app.config.Bars,
			Density:      app.config.Density,
			Complexity:   app.config.Complexity,
			Groove:       app.config.Groove,
			Evolution:    app.config.Evolution,
			MusicalKey:   app.config.MusicalKey,
			MusicalScale: app.config.MusicalScale,
		})
		if err != nil {
			return fmt.Errorf("generation failed: %w", err)
		}
		app.log.Info("pattern generated",
			"generation_id", resp.GenerationID, "url", resp.DownloadURL)
		source = resp.DownloadURL
	}

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") || strings.HasPrefix(source, "/") {
		return app.player.Load(ctx, source)
	}

	// Local file.
	path, err := fileutil.ResolveLocalFile(source)
	if err != nil {
		return err
	}
	if !fileutil.IsMIDIPath(path) {
		app.log.Warn("source does not look like a MIDI file", "path", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read MIDI file: %w", err)
	}
	return app.player.LoadData(data)
}
