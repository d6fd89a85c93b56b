package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"

	"github.com/kaiwa-go/kaiwa/pkg/ai"
)

// GoogleRecognizer captures a single utterance through Google Cloud
// Speech-to-Text streaming recognition. The session language is fixed at
// construction time.
type GoogleRecognizer struct {
	client     *speech.Client
	source     AudioSource
	language   string
	sampleRate int32
	logger     *slog.Logger
}

// GoogleConfig configures a GoogleRecognizer.
type GoogleConfig struct {
	CredentialsFile string
	Language        string // e.g. "ja-JP"
	SampleRate      int    // PCM sample rate of the audio source
}

// NewGoogleRecognizer creates a recognizer reading from source. Client
// construction failure is fatal: without a working capture path there is no
// conversation to run.
func NewGoogleRecognizer(ctx context.Context, cfg GoogleConfig, source AudioSource, logger *slog.Logger) (*GoogleRecognizer, error) {
	if source == nil {
		return nil, fmt.Errorf("audio source is required")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: create speech client: %v", ai.ErrDevice, err)
	}
	lang := cfg.Language
	if lang == "" {
		lang = "ja-JP"
	}
	rate := int32(cfg.SampleRate)
	if rate == 0 {
		rate = 16000
	}
	return &GoogleRecognizer{
		client:     client,
		source:     source,
		language:   lang,
		sampleRate: rate,
		logger:     logger,
	}, nil
}

// Recognize streams microphone audio until the service detects the end of a
// single utterance and returns the final transcript. Service-side errors are
// logged and reported as an empty result.
func (r *GoogleRecognizer) Recognize(ctx context.Context) (string, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := r.client.StreamingRecognize(streamCtx)
	if err != nil {
		r.logger.Error("speech stream open failed", slog.String("error", err.Error()))
		return "", nil
	}

	cfgReq := &speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:                   speechpb.RecognitionConfig_LINEAR16,
					SampleRateHertz:            r.sampleRate,
					LanguageCode:               r.language,
					EnableAutomaticPunctuation: true,
				},
				SingleUtterance: true,
			},
		},
	}
	if err := stream.Send(cfgReq); err != nil {
		r.logger.Error("speech stream config failed", slog.String("error", err.Error()))
		return "", nil
	}

	feederCtx, stopFeeder := context.WithCancel(streamCtx)
	defer stopFeeder()
	chunks, err := r.source.Chunks(feederCtx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ai.ErrDevice, err)
	}

	// Feed audio until the service reports end of utterance or the response
	// side closes the stream.
	go func() {
		defer stream.CloseSend()
		for {
			select {
			case <-feederCtx.Done():
				return
			case chunk, ok := <-chunks:
				if !ok {
					return
				}
				req := &speechpb.StreamingRecognizeRequest{
					StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
						AudioContent: chunk,
					},
				}
				if err := stream.Send(req); err != nil {
					return
				}
			}
		}
	}()

	var sb strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				// Caller abandoned the capture; nothing was recognized.
				return "", nil
			}
			r.logger.Error("speech recognition failed", slog.String("error", err.Error()))
			return "", nil
		}
		if resp.SpeechEventType == speechpb.StreamingRecognizeResponse_END_OF_SINGLE_UTTERANCE {
			stopFeeder() // final results still arrive before EOF
			continue
		}
		for _, result := range resp.Results {
			if result.IsFinal && len(result.Alternatives) > 0 {
				sb.WriteString(result.Alternatives[0].Transcript)
			}
		}
	}

	text := strings.TrimSpace(sb.String())
	if text != "" {
		r.logger.Info("speech recognized", slog.String("text", text))
	}
	return text, nil
}

// Close releases the underlying client.
func (r *GoogleRecognizer) Close() error {
	return r.client.Close()
}
