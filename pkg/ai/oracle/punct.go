package oracle

import (
	"context"
	"strings"
)

// PunctChecker is an offline CompletionChecker: an utterance counts as
// finished when it ends with sentence-final punctuation. Useful when no
// completion-check backend is configured.
type PunctChecker struct{}

var finishedSuffixes = []string{"。", "！", "？", ".", "!", "?"}

func (PunctChecker) Check(ctx context.Context, text string) (bool, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false, nil
	}
	for _, s := range finishedSuffixes {
		if strings.HasSuffix(trimmed, s) {
			return true, nil
		}
	}
	return false, nil
}
