// Package sound plays the alert clip through the default audio device.
package sound

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"

	"keywatch/internal/logger"
)

// ErrClosed is returned by Play after Close.
var ErrClosed = errors.New("sound player closed")

// Player holds a decoded clip in memory so it can be replayed from the start
// on every alert.
type Player struct {
	buffer *beep.Buffer
	logger *logger.Logger

	mu     sync.Mutex
	closed bool
}

// Open decodes an mp3 or wav file and initializes the speaker. Failure here
// is fatal for the process.
func Open(path string, logger *logger.Logger) (*Player, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open alert sound: %w", err)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".wav":
		streamer, format, err = wav.Decode(f)
	default:
		f.Close()
		return nil, fmt.Errorf("unsupported alert sound format %q", filepath.Ext(path))
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode alert sound: %w", err)
	}
	defer streamer.Close()

	buffer := beep.NewBuffer(format)
	buffer.Append(streamer)

	if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
		return nil, fmt.Errorf("failed to initialize audio device: %w", err)
	}

	logger.Info("🔊 Alert sound loaded: %s (%s)", path, format.SampleRate.D(buffer.Len()).Round(time.Millisecond))
	return &Player{buffer: buffer, logger: logger}, nil
}

// Play restarts the clip from the beginning and returns immediately.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	speaker.Clear()
	speaker.Play(p.buffer.Streamer(0, p.buffer.Len()))
	return nil
}

// Stop silences any clip that is playing.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	speaker.Clear()
	return nil
}

// Close silences and releases the audio device.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	speaker.Clear()
	speaker.Close()
	p.logger.Info("🔊 Audio device released")
	return nil
}
