// Package fake provides a scripted Responder for tests.
package fake

import (
	"context"
	"sync"

	"github.com/kaiwa-go/kaiwa/pkg/ai/llm"
)

// Responder replays scripted replies in order and appends the exchange to
// the history like a real backend would. After the script runs out it echoes
// the input.
type Responder struct {
	mu      sync.Mutex
	replies []string
	next    int
	calls   []string
	err     error
}

func NewResponder(replies ...string) *Responder {
	return &Responder{replies: replies}
}

// FailWith makes subsequent Generate calls return err.
func (r *Responder) FailWith(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

// Calls returns the user texts Generate was invoked with.
func (r *Responder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

func (r *Responder) Generate(ctx context.Context, text string, history []llm.Message) (string, []llm.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", history, r.err
	}
	r.calls = append(r.calls, text)
	reply := "echo: " + text
	if r.next < len(r.replies) {
		reply = r.replies[r.next]
		r.next++
	}
	updated := append(append([]llm.Message{}, history...),
		llm.Message{Role: llm.RoleUser, Content: text},
		llm.Message{Role: llm.RoleAssistant, Content: reply},
	)
	return reply, updated, nil
}
