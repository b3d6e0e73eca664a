// Package cli parses command line arguments and environment variables into
// the application configuration.
package cli

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the settings parsed from flags and environment.
type Config struct {
	Source string // MIDI URL or local file path (positional argument)

	// Generation mode: request a new pattern from the backend instead of
	// loading an existing file.
	Generate     bool
	Style        string
	Instrument   string
	BPM          int
	Bars         int
	Density      float64
	Complexity   float64
	Groove       float64
	Evolution    float64
	MusicalKey   string
	MusicalScale string

	APIBase string // backend base URL
	Token   string // bearer token issued by the auth subsystem

	SoundFont string // optional .sf2 path; empty selects oscillator voices
	ThemeFile string // optional piano-roll theme YAML
	VolumeDB  float64
	Theory    bool // start in theory-coloring mode

	Headless bool
	Timeout  time.Duration // 0 means no limit (headless only)
	LogLevel string
	ShowHelp bool
}

// ParseArgs parses the given arguments (without the program name).
// Environment variables fill in values not set on the command line:
// API_URL, MIDIROLL_TOKEN, LOG_LEVEL, HEADLESS, TIMEOUT.
func ParseArgs(args []string) (*Config, error) {
	reordered := reorderArgs(args)

	fs := flag.NewFlagSet("midiroll", flag.ContinueOnError)

	config := &Config{}

	var timeoutSec int
	fs.BoolVar(&config.Generate, "generate", false, "request a new pattern from the backend")
	fs.StringVar(&config.Style, "style", "techno", "generation style")
	fs.StringVar(&config.Instrument, "instrument", "", "generation instrument")
	fs.IntVar(&config.BPM, "bpm", 120, "generation tempo")
	fs.IntVar(&config.Bars, "bars", 4, "generation length in bars")
	fs.Float64Var(&config.Density, "density", 0.7, "DNA: note density (0..1)")
	fs.Float64Var(&config.Complexity, "complexity", 0.5, "DNA: pattern complexity (0..1)")
	fs.Float64Var(&config.Groove, "groove", 0.2, "DNA: swing amount (0..1)")
	fs.Float64Var(&config.Evolution, "evolution", 0.3, "DNA: pattern evolution (0..1)")
	fs.StringVar(&config.MusicalKey, "key", "C", "musical key, also the theory-coloring root")
	fs.StringVar(&config.MusicalScale, "scale", "minor", "musical scale")

	fs.StringVar(&config.APIBase, "api", "", "backend API base URL")
	fs.StringVar(&config.SoundFont, "soundfont", "", "SoundFont (.sf2) file for synthesis")
	fs.StringVar(&config.ThemeFile, "theme", "", "piano-roll theme YAML file")
	fs.Float64Var(&config.VolumeDB, "volume", -6, "playback volume in dB (-40..0)")
	fs.BoolVar(&config.Theory, "theory", false, "start with theory-interval note coloring")

	fs.BoolVar(&config.Headless, "headless", false, "run without a window or audio output")
	fs.IntVar(&timeoutSec, "timeout", 0, "timeout in seconds (headless)")
	fs.IntVar(&timeoutSec, "t", 0, "timeout in seconds (short form)")
	fs.StringVar(&config.LogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	fs.StringVar(&config.LogLevel, "l", "info", "log level (short form)")
	fs.BoolVar(&config.ShowHelp, "help", false, "show help")
	fs.BoolVar(&config.ShowHelp, "h", false, "show help (short form)")

	if err := fs.Parse(reordered); err != nil {
		return nil, err
	}

	// Environment variables; command line flags take precedence.
	if config.APIBase == "" {
		config.APIBase = os.Getenv("API_URL")
	}
	config.Token = os.Getenv("MIDIROLL_TOKEN")
	if !config.Headless {
		if env := os.Getenv("HEADLESS"); env != "" {
			config.Headless = env == "1" || strings.EqualFold(env, "true")
		}
	}
	if timeoutSec == 0 {
		if env := os.Getenv("TIMEOUT"); env != "" {
			if t, err := strconv.Atoi(env); err == nil && t > 0 {
				timeoutSec = t
			}
		}
	}
	if config.LogLevel == "info" {
		if env := os.Getenv("LOG_LEVEL"); env != "" {
			config.LogLevel = strings.ToLower(env)
		}
	}

	if timeoutSec < 0 {
		return nil, fmt.Errorf("timeout must be non-negative, got %d", timeoutSec)
	}
	config.Timeout = time.Duration(timeoutSec) * time.Second

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[config.LogLevel] {
		return nil, fmt.Errorf("invalid log level: %s", config.LogLevel)
	}

	if config.VolumeDB < -40 || config.VolumeDB > 0 {
		return nil, fmt.Errorf("volume must be within -40..0 dB, got %g", config.VolumeDB)
	}
	for name, v := range map[string]float64{
		"density": config.Density, "complexity": config.Complexity,
		"groove": config.Groove, "evolution": config.Evolution,
	} {
		if v < 0 || v > 1 {
			return nil, fmt.Errorf("%s must be within 0..1, got %g", name, v)
		}
	}

	rest := fs.Args()
	if len(rest) > 1 {
		return nil, fmt.Errorf("expected at most one source argument, got %d", len(rest))
	}
	if len(rest) == 1 {
		config.Source = rest[0]
	}

	if !config.ShowHelp && !config.Generate && config.Source == "" {
		return nil, fmt.Errorf("a MIDI source (URL or file) or -generate is required")
	}
	if config.Generate && config.APIBase == "" {
		return nil, fmt.Errorf("-generate requires an API base URL (-api or API_URL)")
	}

	return config, nil
}

// reorderArgs moves flags in front of positional arguments so that
// "midiroll pattern.mid -headless" parses the same as
// "midiroll -headless pattern.mid".
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if strings.HasPrefix(arg, "-") {
			flags = append(flags, arg)
			if needsValue(arg) && i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, arg)
		}
	}
	return append(flags, positional...)
}

// needsValue reports whether a flag consumes the following argument. Bool
// flags and "-flag=value" forms do not.
func needsValue(arg string) bool {
	if strings.Contains(arg, "=") {
		return false
	}
	name := strings.TrimLeft(arg, "-")
	switch name {
	case "generate", "theory", "headless", "help", "h":
		return false
	}
	return true
}

// PrintHelp writes usage information to stdout.
func PrintHelp() {
	fmt.Println(`midiroll - MIDI pattern player and piano-roll viewer

Usage:
  midiroll [flags] <midi-url-or-file>
  midiroll -generate -api <url> [generation flags]

Flags:
  -generate            request a new pattern from the backend
  -style s             generation style (default "techno")
  -instrument s        generation instrument
  -bpm n               generation tempo (default 120)
  -bars n              generation length in bars (default 4)
  -density x           DNA note density 0..1 (default 0.7)
  -complexity x        DNA pattern complexity 0..1 (default 0.5)
  -groove x            DNA swing amount 0..1 (default 0.2)
  -evolution x         DNA pattern evolution 0..1 (default 0.3)
  -key s               musical key / theory-coloring root (default "C")
  -scale s             musical scale (default "minor")
  -api url             backend API base URL (env API_URL)
  -soundfont f.sf2     use a SoundFont for synthesis
  -theme f.yaml        piano-roll theme file
  -volume db           playback volume in dB, -40..0 (default -6)
  -theory              start with theory-interval note coloring
  -headless            run without a window or audio output (env HEADLESS)
  -timeout n, -t n     exit after n seconds, headless only (env TIMEOUT)
  -log-level l, -l l   debug, info, warn or error (env LOG_LEVEL)
  -help, -h            show this help

Environment:
  MIDIROLL_TOKEN       bearer token for the backend

Keys in the player window:
  space  play / pause      s      stop
  t      toggle theory coloring   left/right  seek 1 beat
  click  seek to position`)
}
