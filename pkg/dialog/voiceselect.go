package dialog

import (
	"strings"

	"github.com/kaiwa-go/kaiwa/pkg/ai/tts"
)

// VoiceSelector performs the one-time voice negotiation right after the
// greeting: a reply containing the "you" keyword addresses the default
// persona and keeps the default voice; anything else switches the session
// permanently to the cloned voice. The choice is never revisited.
type VoiceSelector struct {
	YouKeyword    string
	Default       tts.VoiceProfile
	Cloned        tts.VoiceProfile
	KeepMessage   string // confirmation spoken when staying with the default voice
	SwitchMessage string // confirmation spoken, in the new voice, after switching
}

// Select inspects the user's reply and returns the voice profile for the
// rest of the session plus the confirmation to speak in that voice.
func (s *VoiceSelector) Select(reply string) (tts.VoiceProfile, string) {
	if strings.Contains(reply, s.YouKeyword) {
		return s.Default, s.KeepMessage
	}
	return s.Cloned, s.SwitchMessage
}
