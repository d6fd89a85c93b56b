package dialog

import (
	"math/rand"
	"sync/atomic"

	"github.com/kaiwa-go/kaiwa/internal/rules"
	"github.com/kaiwa-go/kaiwa/pkg/ai/tts"
)

// Reaction is one filler reaction. ClipPath names a pre-recorded nod clip to
// play; Text is a phrase to synthesize and speak. A combined policy sets
// both, in which case the clip plays first.
type Reaction struct {
	ClipPath string
	Text     string
}

// ReactionPolicy decides what filler reaction to emit for a user utterance.
// Whether a reaction happens at all is the controller's probability draw;
// the policy only picks the content.
type ReactionPolicy interface {
	Pick(userText string, voice tts.VoiceProfile) (Reaction, bool)
}

// RulePolicy picks a contextual filler phrase from the aizuchi rule set:
// keyword rules first, then suffix rules, then a uniformly random fallback
// phrase. The rule set can be swapped at runtime (hot reload).
type RulePolicy struct {
	set  atomic.Pointer[rules.Set]
	intn func(int) int
}

// NewRulePolicy creates a rule-based policy. A nil set means the built-in
// rules; intn may be nil, in which case math/rand is used.
func NewRulePolicy(set *rules.Set, intn func(int) int) *RulePolicy {
	if set == nil {
		set = rules.Default()
	}
	if intn == nil {
		intn = rand.Intn
	}
	p := &RulePolicy{intn: intn}
	p.set.Store(set)
	return p
}

// Update swaps in a new rule set.
func (p *RulePolicy) Update(set *rules.Set) {
	p.set.Store(set)
}

func (p *RulePolicy) Pick(userText string, voice tts.VoiceProfile) (Reaction, bool) {
	set := p.set.Load()
	if reaction, ok := set.React(userText); ok {
		return Reaction{Text: reaction}, true
	}
	if len(set.Fallback) == 0 {
		return Reaction{}, false
	}
	return Reaction{Text: set.Fallback[p.intn(len(set.Fallback))]}, true
}

// ClipPolicy picks a pre-recorded nod clip uniformly at random,
// content-independent. Each voice profile has its own clip set so a cloned
// voice nods in its own voice.
type ClipPolicy struct {
	DefaultClips []string
	ClonedClips  []string
	intn         func(int) int
}

// NewClipPolicy creates a clip-based policy. intn may be nil, in which case
// math/rand is used.
func NewClipPolicy(defaultClips, clonedClips []string, intn func(int) int) *ClipPolicy {
	if intn == nil {
		intn = rand.Intn
	}
	return &ClipPolicy{DefaultClips: defaultClips, ClonedClips: clonedClips, intn: intn}
}

func (p *ClipPolicy) Pick(userText string, voice tts.VoiceProfile) (Reaction, bool) {
	clips := p.DefaultClips
	if voice.Cloned && len(p.ClonedClips) > 0 {
		clips = p.ClonedClips
	}
	if len(clips) == 0 {
		return Reaction{}, false
	}
	return Reaction{ClipPath: clips[p.intn(len(clips))]}, true
}

// CombinedPolicy plays a nod clip and then speaks a contextual phrase, the
// way the fullest session variant behaves.
type CombinedPolicy struct {
	Clips *ClipPolicy
	Rules *RulePolicy
}

func (p *CombinedPolicy) Pick(userText string, voice tts.VoiceProfile) (Reaction, bool) {
	var out Reaction
	if clip, ok := p.Clips.Pick(userText, voice); ok {
		out.ClipPath = clip.ClipPath
	}
	if phrase, ok := p.Rules.Pick(userText, voice); ok {
		out.Text = phrase.Text
	}
	if out.ClipPath == "" && out.Text == "" {
		return Reaction{}, false
	}
	return out, true
}
