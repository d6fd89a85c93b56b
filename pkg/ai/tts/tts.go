// Package tts provides the speech-synthesis boundary. Two backend families
// exist: platform voices addressed by name and gender (Google Cloud TTS) and
// cloned voices addressed by id (ElevenLabs). The session's VoiceProfile
// selects between them; a Router dispatches accordingly.
package tts

import (
	"context"
	"fmt"

	"github.com/kaiwa-go/kaiwa/pkg/ai"
)

// VoiceProfile identifies the synthesis voice for a session. It is selected
// once during voice negotiation and immutable for the rest of the session.
type VoiceProfile struct {
	Cloned   bool
	CloneID  string // cloned-voice id, set when Cloned
	Name     string // platform voice name, e.g. "ja-JP-Standard-C"
	Gender   string // "male", "female" or "neutral"
	Language string // BCP-47 language code
}

// DefaultVoice returns a platform voice profile.
func DefaultVoice(language, name, gender string) VoiceProfile {
	return VoiceProfile{Language: language, Name: name, Gender: gender}
}

// ClonedVoice returns a cloned-voice profile for the given id.
func ClonedVoice(id string) VoiceProfile {
	return VoiceProfile{Cloned: true, CloneID: id}
}

func (v VoiceProfile) String() string {
	if v.Cloned {
		return "cloned:" + v.CloneID
	}
	return "default:" + v.Name
}

// Synthesizer renders text to MP3 audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, voice VoiceProfile) ([]byte, error)
}

// Router dispatches synthesis requests to the platform or cloned backend
// based on the voice profile.
type Router struct {
	Platform Synthesizer
	Cloned   Synthesizer
}

func (r *Router) Synthesize(ctx context.Context, text string, voice VoiceProfile) ([]byte, error) {
	if voice.Cloned {
		if r.Cloned == nil {
			return nil, fmt.Errorf("%w: no cloned-voice backend configured", ai.ErrSynthesis)
		}
		return r.Cloned.Synthesize(ctx, text, voice)
	}
	if r.Platform == nil {
		return nil, fmt.Errorf("%w: no platform-voice backend configured", ai.ErrSynthesis)
	}
	return r.Platform.Synthesize(ctx, text, voice)
}
