// Package fake provides a deterministic Synthesizer for tests.
package fake

import (
	"context"
	"sync"

	"github.com/kaiwa-go/kaiwa/pkg/ai/tts"
)

// Synthesizer records every synthesis request and returns the text itself as
// the "audio" bytes, so tests can assert on what would have been spoken.
type Synthesizer struct {
	mu    sync.Mutex
	calls []Call
	err   error
}

// Call is one recorded synthesis request.
type Call struct {
	Text  string
	Voice tts.VoiceProfile
}

func NewSynthesizer() *Synthesizer {
	return &Synthesizer{}
}

// FailWith makes subsequent Synthesize calls return err.
func (s *Synthesizer) FailWith(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Calls returns a copy of all recorded requests.
func (s *Synthesizer) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *Synthesizer) Synthesize(ctx context.Context, text string, voice tts.VoiceProfile) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.calls = append(s.calls, Call{Text: text, Voice: voice})
	return []byte(text), nil
}
