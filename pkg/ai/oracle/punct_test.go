package oracle

import (
	"context"
	"testing"

	"github.com/matryer/is"
)

func TestPunctChecker_Check(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"japanese period", "今日はいい天気ですね。", true},
		{"japanese question mark", "元気ですか？", true},
		{"japanese exclamation", "すごい！", true},
		{"ascii period", "That is all.", true},
		{"trailing whitespace", "終わりました。 ", true},
		{"no terminal punctuation", "それでですね", false},
		{"empty", "", false},
		{"whitespace only", "   ", false},
		{"comma is not terminal", "それで、", false},
	}

	checker := PunctChecker{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			got, err := checker.Check(context.Background(), tt.text)
			is.NoErr(err)
			is.Equal(got, tt.want)
		})
	}
}
