// Package fake provides an in-memory Player for tests.
package fake

import (
	"context"
	"sync"
	"time"

	"github.com/kaiwa-go/kaiwa/pkg/audio"
)

// Play is one recorded playback attempt.
type Play struct {
	Data []byte
	Path string
	// StaleToken reports whether the token was already fired when playback
	// began; a true value means a token leaked across turns.
	StaleToken bool
	// Cancelled reports whether the token fired during playback.
	Cancelled bool
}

// Player simulates playback. With a zero Duration each play completes
// immediately; otherwise it "plays" for the configured duration while
// polling the token, so barge-in races can be exercised.
type Player struct {
	Duration time.Duration
	// Started receives one signal per playback begin when set.
	Started chan struct{}

	mu    sync.Mutex
	plays []Play
	err   error
}

func NewPlayer() *Player {
	return &Player{}
}

// FailWith makes subsequent plays return err.
func (p *Player) FailWith(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

// Plays returns a copy of all recorded attempts.
func (p *Player) Plays() []Play {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Play, len(p.plays))
	copy(out, p.plays)
	return out
}

func (p *Player) Play(ctx context.Context, mp3Data []byte, tok audio.Canceller) error {
	return p.play(ctx, mp3Data, "", tok)
}

func (p *Player) PlayFile(ctx context.Context, path string, tok audio.Canceller) error {
	return p.play(ctx, nil, path, tok)
}

func (p *Player) play(ctx context.Context, data []byte, path string, tok audio.Canceller) error {
	p.mu.Lock()
	if p.err != nil {
		err := p.err
		p.mu.Unlock()
		return err
	}
	rec := Play{Data: data, Path: path}
	if tok != nil && tok.Cancelled() {
		rec.StaleToken = true
	}
	p.mu.Unlock()

	if p.Started != nil {
		p.Started <- struct{}{}
	}

	deadline := time.Now().Add(p.Duration)
	for time.Now().Before(deadline) {
		if tok != nil && tok.Cancelled() {
			rec.Cancelled = true
			break
		}
		select {
		case <-ctx.Done():
			p.record(rec)
			return ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
	p.record(rec)
	return nil
}

func (p *Player) record(rec Play) {
	p.mu.Lock()
	p.plays = append(p.plays, rec)
	p.mu.Unlock()
}
