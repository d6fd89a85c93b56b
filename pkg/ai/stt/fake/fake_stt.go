// Package fake provides a scripted Recognizer for tests.
package fake

import (
	"context"
	"sync"
)

// Recognizer returns pre-seeded or fed texts, one per Recognize call, in
// order. Recognize blocks until a text is available or ctx is done, which
// lets tests control exactly when "speech" arrives (barge-in races, empty
// captures, and so on).
type Recognizer struct {
	mu     sync.Mutex
	ch     chan string
	calls  int
	closed bool
}

// NewRecognizer pre-seeds the recognizer with texts.
func NewRecognizer(texts ...string) *Recognizer {
	r := &Recognizer{ch: make(chan string, 64)}
	for _, t := range texts {
		r.ch <- t
	}
	return r
}

// Feed queues one more recognition result.
func (r *Recognizer) Feed(text string) {
	r.ch <- text
}

// CloseInput makes all pending and future Recognize calls return "".
func (r *Recognizer) CloseInput() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.closed = true
		close(r.ch)
	}
}

// Calls reports how many Recognize calls completed.
func (r *Recognizer) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// Recognize returns the next queued text, or "" when the input is closed or
// ctx is cancelled.
func (r *Recognizer) Recognize(ctx context.Context) (string, error) {
	select {
	case text, ok := <-r.ch:
		r.mu.Lock()
		r.calls++
		r.mu.Unlock()
		if !ok {
			return "", nil
		}
		return text, nil
	case <-ctx.Done():
		return "", nil
	}
}
