package app

import (
	"io"
	"sync"

	"github.com/hajimehoshi/ebiten/v2/audio"

	"github.com/patternlab/midiroll/pkg/player"
	"github.com/patternlab/midiroll/pkg/transport"
)

// Ebitengine allows only one audio context per process.
var (
	globalAudioContext *audio.Context
	audioContextMutex  sync.Mutex
)

func getAudioContext() *audio.Context {
	audioContextMutex.Lock()
	defer audioContextMutex.Unlock()
	if globalAudioContext == nil {
		globalAudioContext = audio.NewContext(transport.DefaultSampleRate)
	}
	return globalAudioContext
}

// ebitenSink adapts the Ebitengine audio context to the player's AudioSink.
type ebitenSink struct{}

func newEbitenSink() *ebitenSink {
	return &ebitenSink{}
}

func (s *ebitenSink) NewPlayer(r io.Reader) (player.AudioHandle, error) {
	p, err := getAudioContext().NewPlayer(r)
	if err != nil {
		return nil, err
	}
	return p, nil
}
