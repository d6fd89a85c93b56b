// Package llm provides the response-generation boundary. The backend owns
// conversational memory: every Generate call threads the full prior history
// through and receives an updated history back, which replaces the session's
// copy wholesale.
package llm

import "context"

// MessageRole identifies who produced a history message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one entry in the opaque conversation history threaded through
// Generate calls.
type Message struct {
	Role    MessageRole
	Content string
}

// Responder generates a spoken reply for the user's utterance.
type Responder interface {
	// Generate returns the reply text and the updated history. The returned
	// history replaces the caller's copy; the engine never edits it locally.
	Generate(ctx context.Context, text string, history []Message) (string, []Message, error)
}
