package dialog

import (
	"github.com/google/uuid"

	"github.com/kaiwa-go/kaiwa/pkg/ai/tts"
	"github.com/kaiwa-go/kaiwa/pkg/transcript"
)

// Session owns one conversation: its transcript, its voice profile and its
// termination flag. The voice profile is set once during negotiation and
// immutable for the rest of the session.
type Session struct {
	ID    uuid.UUID
	Voice tts.VoiceProfile
	Log   *transcript.Log

	ended bool
}

// NewSession starts a session speaking with the given voice.
func NewSession(voice tts.VoiceProfile) *Session {
	return &Session{
		ID:    uuid.New(),
		Voice: voice,
		Log:   transcript.NewLog(),
	}
}

// End marks the session terminated.
func (s *Session) End() {
	s.ended = true
}

// Ended reports whether the session has terminated.
func (s *Session) Ended() bool {
	return s.ended
}
