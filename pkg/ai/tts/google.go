package tts

import (
	"context"
	"fmt"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"

	"github.com/kaiwa-go/kaiwa/pkg/ai"
)

// GoogleSynthesizer renders platform voices through Google Cloud
// Text-to-Speech, returning MP3 audio.
type GoogleSynthesizer struct {
	client *texttospeech.Client
}

// NewGoogleSynthesizer authenticates with the given service-account
// credentials file; pass "" to use ambient credentials.
func NewGoogleSynthesizer(ctx context.Context, credentialsFile string) (*GoogleSynthesizer, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create texttospeech client: %w", err)
	}
	return &GoogleSynthesizer{client: client}, nil
}

func (g *GoogleSynthesizer) Synthesize(ctx context.Context, text string, voice VoiceProfile) ([]byte, error) {
	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: voice.Language,
			Name:         voice.Name,
			SsmlGender:   ssmlGender(voice.Gender),
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		},
	}
	resp, err := g.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ai.ErrSynthesis, err)
	}
	if len(resp.AudioContent) == 0 {
		return nil, fmt.Errorf("%w: empty audio content", ai.ErrSynthesis)
	}
	return resp.AudioContent, nil
}

// Close releases the underlying client.
func (g *GoogleSynthesizer) Close() error {
	return g.client.Close()
}

func ssmlGender(gender string) texttospeechpb.SsmlVoiceGender {
	switch gender {
	case "male":
		return texttospeechpb.SsmlVoiceGender_MALE
	case "female":
		return texttospeechpb.SsmlVoiceGender_FEMALE
	default:
		return texttospeechpb.SsmlVoiceGender_NEUTRAL
	}
}
