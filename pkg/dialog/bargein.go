package dialog

import (
	"context"
	"log/slog"

	"github.com/kaiwa-go/kaiwa/pkg/ai/stt"
)

// Monitor listens for user speech while audio plays. It is the only
// operation permitted to run concurrently with a playback, and the per-turn
// token is the only coordination between the two.
type Monitor struct {
	rec    stt.Recognizer
	logger *slog.Logger
}

func NewMonitor(rec stt.Recognizer, logger *slog.Logger) *Monitor {
	return &Monitor{rec: rec, logger: logger}
}

// Watch issues one speech-capture request. Non-empty recognition fires tok
// (stopping the playback that shares it) and delivers the text for reuse as
// the next turn's input. Empty or failed recognition delivers nothing and
// playback runs to natural completion.
//
// The channel is buffered: a recognition that completes after playback has
// already finished still delivers its text, it just has nothing left to
// cancel.
func (m *Monitor) Watch(ctx context.Context, tok *CancelToken) <-chan string {
	out := make(chan string, 1)
	go func() {
		defer close(out)
		text, err := m.rec.Recognize(ctx)
		if err != nil {
			m.logger.Error("barge-in capture failed", slog.String("error", err.Error()))
			return
		}
		if text == "" {
			return
		}
		tok.Cancel()
		m.logger.Info("barge-in detected", slog.String("text", text))
		out <- text
	}()
	return out
}
