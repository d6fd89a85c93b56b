// Package rules holds the aizuchi reaction rule set: ordered keyword and
// suffix rules plus fallback phrases. Rule order is declaration order and
// the first hit wins; keyword rules always take precedence over suffix
// rules. Rule sets can be loaded from a JSON file and hot-reloaded.
package rules

import (
	"fmt"
	"os"
	"strings"

	"github.com/bytedance/sonic"
)

// Rule maps a trigger to the reaction text spoken when it fires.
type Rule struct {
	Match    string `json:"match"`
	Reaction string `json:"reaction"`
}

// Set is an ordered aizuchi rule set.
type Set struct {
	Keywords []Rule   `json:"keywords"`
	Suffixes []Rule   `json:"suffixes"`
	Fallback []string `json:"fallback"`
}

// Default returns the built-in rule tables.
func Default() *Set {
	return &Set{
		Keywords: []Rule{
			{Match: "困っています", Reaction: "それは大変ですね。"},
			{Match: "好きです", Reaction: "うんうん、私も好きです。"},
			{Match: "嫌い", Reaction: "それは残念ですね。"},
			{Match: "楽しい", Reaction: "それは楽しいですね。"},
			{Match: "嬉しい", Reaction: "それは嬉しいですね。"},
			{Match: "悲しい", Reaction: "それは悲しいですね。"},
			{Match: "辛い", Reaction: "それは辛いですね。"},
		},
		Suffixes: []Rule{
			{Match: "です。", Reaction: "そうなんですね。"},
			{Match: "だよ。", Reaction: "なるほど。"},
			{Match: "ました。", Reaction: "へえ、そうなんですね。"},
			{Match: "だったんですよ。", Reaction: "ほー、それは興味深いですね。"},
			{Match: "ます。", Reaction: "そうですね。"},
		},
		Fallback: []string{"へー", "ほー", "そうですね"},
	}
}

// React returns the reaction for the first matching rule: keyword rules in
// declaration order first, then suffix rules. ok is false when nothing
// matched and the caller should fall back to a random phrase.
func (s *Set) React(text string) (reaction string, ok bool) {
	for _, r := range s.Keywords {
		if strings.Contains(text, r.Match) {
			return r.Reaction, true
		}
	}
	for _, r := range s.Suffixes {
		if strings.HasSuffix(text, r.Match) {
			return r.Reaction, true
		}
	}
	return "", false
}

// Load reads a rule set from a JSON file. Missing fallback phrases fall
// back to the built-in list so a partial file cannot strand the policy
// without a reaction.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	var s Set
	if err := sonic.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse rules %s: %w", path, err)
	}
	if len(s.Fallback) == 0 {
		s.Fallback = Default().Fallback
	}
	return &s, nil
}
