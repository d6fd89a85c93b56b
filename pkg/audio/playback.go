// Package audio implements cancellable MP3 playback. One playback is active
// at a time; while it runs, the owning speak step polls a cancellation token
// and stops the device the moment it fires. Every exit path releases the
// decoder, the device queue
// and any temporary audio artifact.
package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

// ErrPlayback indicates audio output failed. Playback failures are logged
// and treated as "turn produced no audible output", never as fatal.
var ErrPlayback = errors.New("audio: playback failure")

// Canceller is the read side of a per-turn cancellation token.
type Canceller interface {
	Cancelled() bool
}

// Player renders MP3 audio to the output device.
type Player interface {
	// Play renders the given MP3 bytes. It returns once playback completed
	// naturally, tok fired, or ctx was cancelled.
	Play(ctx context.Context, mp3Data []byte, tok Canceller) error

	// PlayFile plays a pre-recorded MP3 clip from disk.
	PlayFile(ctx context.Context, path string, tok Canceller) error
}

// BeepPlayer plays MP3 audio through the beep speaker. Synthesized audio is
// staged in a temporary file that is removed when playback ends.
type BeepPlayer struct {
	// PollInterval bounds how long a fired token can go unobserved.
	PollInterval time.Duration

	Logger *slog.Logger

	mu sync.Mutex // one in-flight playback per player
}

// NewBeepPlayer creates a player with a 100ms token polling interval.
func NewBeepPlayer(logger *slog.Logger) *BeepPlayer {
	return &BeepPlayer{PollInterval: 100 * time.Millisecond, Logger: logger}
}

func (p *BeepPlayer) Play(ctx context.Context, mp3Data []byte, tok Canceller) error {
	tmp, err := os.CreateTemp("", "kaiwa-*.mp3")
	if err != nil {
		return fmt.Errorf("%w: stage audio: %v", ErrPlayback, err)
	}
	path := tmp.Name()
	defer os.Remove(path)
	if _, err := tmp.Write(mp3Data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: stage audio: %v", ErrPlayback, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: stage audio: %v", ErrPlayback, err)
	}
	return p.PlayFile(ctx, path, tok)
}

func (p *BeepPlayer) PlayFile(ctx context.Context, path string, tok Canceller) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrPlayback, path, err)
	}
	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("%w: decode %s: %v", ErrPlayback, path, err)
	}
	defer streamer.Close() // also closes f

	if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
		return fmt.Errorf("%w: init speaker: %v", ErrPlayback, err)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		close(done)
	})))

	interval := p.PollInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			speaker.Clear()
			return ctx.Err()
		case <-ticker.C:
			if tok != nil && tok.Cancelled() {
				speaker.Clear()
				if p.Logger != nil {
					p.Logger.Info("playback cancelled", slog.String("path", path))
				}
				return nil
			}
		}
	}
}
