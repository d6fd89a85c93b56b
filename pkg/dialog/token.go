package dialog

import "sync/atomic"

// CancelToken coordinates barge-in for exactly one playback attempt. A fresh
// token is created before each speak step; a token from a prior turn must
// never affect a later one, so tokens are never reset or reused.
type CancelToken struct {
	fired atomic.Bool
}

// NewCancelToken returns a clear token.
func NewCancelToken() *CancelToken {
	return &CancelToken{}
}

// Cancel fires the token. Setting it is advisory-but-immediate: playback
// observes it within one polling interval and stops. Firing an already-moot
// token (playback finished) has no effect.
func (t *CancelToken) Cancel() {
	t.fired.Store(true)
}

// Cancelled reports whether the token has fired.
func (t *CancelToken) Cancelled() bool {
	return t.fired.Load()
}
