package tts

import (
	"context"
	"errors"
	"testing"

	"github.com/matryer/is"

	"github.com/kaiwa-go/kaiwa/pkg/ai"
)

type recordingSynth struct {
	calls []string
}

func (r *recordingSynth) Synthesize(ctx context.Context, text string, voice VoiceProfile) ([]byte, error) {
	r.calls = append(r.calls, text)
	return []byte(text), nil
}

func TestRouter_Synthesize(t *testing.T) {
	is := is.New(t)
	platform := &recordingSynth{}
	cloned := &recordingSynth{}
	router := &Router{Platform: platform, Cloned: cloned}

	_, err := router.Synthesize(context.Background(), "platform voice", DefaultVoice("ja-JP", "ja-JP-Standard-C", "male"))
	is.NoErr(err)
	_, err = router.Synthesize(context.Background(), "cloned voice", ClonedVoice("FeaM2xaHKiX1yiaPxvwe"))
	is.NoErr(err)

	is.Equal(platform.calls, []string{"platform voice"})
	is.Equal(cloned.calls, []string{"cloned voice"})
}

func TestRouter_MissingBackend(t *testing.T) {
	is := is.New(t)
	router := &Router{Platform: &recordingSynth{}}

	_, err := router.Synthesize(context.Background(), "x", ClonedVoice("id"))
	is.True(errors.Is(err, ai.ErrSynthesis))
}

func TestVoiceProfile_String(t *testing.T) {
	is := is.New(t)
	is.Equal(DefaultVoice("ja-JP", "ja-JP-Standard-C", "male").String(), "default:ja-JP-Standard-C")
	is.Equal(ClonedVoice("abc").String(), "cloned:abc")
}
