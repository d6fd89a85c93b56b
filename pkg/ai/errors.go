// Package ai provides common types for the external AI service boundary.
// It defines the error taxonomy shared across STT, TTS, LLM, and oracle
// providers. Nothing in this engine retries automatically: every failure is
// either absorbed at the turn boundary or surfaced as a logged non-fatal
// event, so classification here is about containment, not retry policy.
package ai

import "errors"

// Sentinel error kinds used across AI providers.
var (
	// ErrBackend indicates an external backend failure: the service returned
	// an error, a nonzero status, or a malformed payload. The affected turn
	// is abandoned and the conversation loop continues.
	ErrBackend = errors.New("ai: backend failure")

	// ErrSynthesis indicates speech synthesis failed. The turn produces no
	// audible output; the session survives.
	ErrSynthesis = errors.New("ai: synthesis failed")

	// ErrDevice indicates the capture device could not be used. This is a
	// fatal startup precondition, not a steady-state case.
	ErrDevice = errors.New("ai: capture device failure")
)

// IsBackend reports whether err is an external backend failure.
func IsBackend(err error) bool {
	return errors.Is(err, ErrBackend)
}

// IsSynthesis reports whether err is a synthesis failure.
func IsSynthesis(err error) bool {
	return errors.Is(err, ErrSynthesis)
}
