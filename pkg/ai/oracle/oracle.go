// Package oracle provides the boolean decision backends consulted between
// capture and speak steps: whether accumulated speech is a finished thought,
// and whether a generated reply is fit to speak. Both are pure pass-through
// oracles; the engine keeps no hidden state around them, so asking the same
// question twice yields the same answer absent new input.
package oracle

import "context"

// CompletionChecker decides whether captured text is a finished utterance.
type CompletionChecker interface {
	Check(ctx context.Context, text string) (bool, error)
}

// ResponseValidator decides whether a generated reply is appropriate to
// speak for the given user text.
type ResponseValidator interface {
	Validate(ctx context.Context, userText, aiText string) (bool, error)
}
