// Package stt provides the speech-capture boundary. A Recognizer blocks
// until one utterance has been captured and recognized; recognition problems
// (nothing intelligible, service error) are folded into an empty result so
// the conversation loop can simply re-listen.
package stt

import "context"

// AudioSource supplies raw PCM microphone chunks. The returned channel is
// closed when the source is exhausted or ctx is cancelled.
type AudioSource interface {
	Chunks(ctx context.Context) (<-chan []byte, error)
}

// Recognizer captures one utterance and returns the recognized text.
//
// An empty string means either nothing intelligible was heard or the
// recognition service failed; callers treat both identically and re-listen.
// A non-nil error is reserved for capture-device failures, which are fatal.
type Recognizer interface {
	Recognize(ctx context.Context) (string, error)
}
