package tts

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/kaiwa-go/kaiwa/pkg/ai"
)

const (
	elevenLabsHost  = "api.elevenlabs.io"
	elevenLabsModel = "eleven_multilingual_v2"
)

// ElevenLabsSynthesizer renders cloned voices through the ElevenLabs
// stream-input WebSocket API. Each Synthesize call opens one connection,
// streams the text, collects the audio chunks and closes the connection.
type ElevenLabsSynthesizer struct {
	apiKey  string
	dialer  *websocket.Dialer
	timeout time.Duration
}

// VoiceSettings tune the cloned voice rendering.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
	Speed           float64 `json:"speed"`
}

type streamInitMessage struct {
	Text          string        `json:"text"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
	APIKey        string        `json:"xi_api_key"`
}

type streamTextMessage struct {
	Text                 string `json:"text"`
	TryTriggerGeneration bool   `json:"try_trigger_generation,omitempty"`
}

type streamAudioMessage struct {
	Audio   string `json:"audio"`
	IsFinal bool   `json:"isFinal"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// NewElevenLabsSynthesizer creates a cloned-voice backend.
func NewElevenLabsSynthesizer(apiKey string) *ElevenLabsSynthesizer {
	return &ElevenLabsSynthesizer{
		apiKey:  apiKey,
		dialer:  websocket.DefaultDialer,
		timeout: 30 * time.Second,
	}
}

func (e *ElevenLabsSynthesizer) Synthesize(ctx context.Context, text string, voice VoiceProfile) ([]byte, error) {
	if voice.CloneID == "" {
		return nil, fmt.Errorf("%w: cloned voice id is empty", ai.ErrSynthesis)
	}

	u := url.URL{
		Scheme:   "wss",
		Host:     elevenLabsHost,
		Path:     fmt.Sprintf("/v1/text-to-speech/%s/stream-input", voice.CloneID),
		RawQuery: "model_id=" + elevenLabsModel + "&output_format=mp3_44100_128",
	}
	dialCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	conn, _, err := e.dialer.DialContext(dialCtx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial elevenlabs: %v", ai.ErrSynthesis, err)
	}
	defer conn.Close()

	init := streamInitMessage{
		Text: " ",
		VoiceSettings: VoiceSettings{
			Stability:       0.5,
			SimilarityBoost: 1.0,
			Style:           0.2,
			UseSpeakerBoost: true,
			Speed:           1.0,
		},
		APIKey: e.apiKey,
	}
	if err := e.writeJSON(conn, init); err != nil {
		return nil, fmt.Errorf("%w: send init: %v", ai.ErrSynthesis, err)
	}
	if err := e.writeJSON(conn, streamTextMessage{Text: text + " ", TryTriggerGeneration: true}); err != nil {
		return nil, fmt.Errorf("%w: send text: %v", ai.ErrSynthesis, err)
	}
	// Empty text signals end of input.
	if err := e.writeJSON(conn, streamTextMessage{Text: ""}); err != nil {
		return nil, fmt.Errorf("%w: close input: %v", ai.ErrSynthesis, err)
	}

	deadline := time.Now().Add(e.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetReadDeadline(deadline)

	var audio []byte
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) && len(audio) > 0 {
				break
			}
			return nil, fmt.Errorf("%w: read audio: %v", ai.ErrSynthesis, err)
		}
		var msg streamAudioMessage
		if err := sonic.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("%w: malformed audio message: %v", ai.ErrSynthesis, err)
		}
		if msg.Error != "" {
			return nil, fmt.Errorf("%w: elevenlabs: %s %s", ai.ErrSynthesis, msg.Error, msg.Message)
		}
		if msg.Audio != "" {
			chunk, err := base64.StdEncoding.DecodeString(msg.Audio)
			if err != nil {
				return nil, fmt.Errorf("%w: decode audio chunk: %v", ai.ErrSynthesis, err)
			}
			audio = append(audio, chunk...)
		}
		if msg.IsFinal {
			break
		}
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: no audio returned", ai.ErrSynthesis)
	}
	return audio, nil
}

func (e *ElevenLabsSynthesizer) writeJSON(conn *websocket.Conn, v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}
