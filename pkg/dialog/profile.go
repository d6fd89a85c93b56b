package dialog

// ReactionMode selects the aizuchi strategy for a session.
type ReactionMode string

const (
	ReactionRules    ReactionMode = "rules"
	ReactionClips    ReactionMode = "clips"
	ReactionCombined ReactionMode = "combined"
)

// Profile is the per-session behavior configuration. The full setup runs
// completion checking and validation at 0.9 aizuchi probability; lighter
// setups disable the checks and drop to 0.7.
type Profile struct {
	Language string
	Greeting string

	// EndKeyword ends the session the moment a user utterance contains it.
	EndKeyword string

	// YouKeyword keeps the default voice during voice negotiation.
	YouKeyword string

	AizuchiProbability float64
	ReactionMode       ReactionMode

	CompletionCheck   bool
	ValidateResponses bool
	BargeIn           bool
	VoiceSelect       bool
}

// DefaultProfile returns the fullest session variant.
func DefaultProfile() Profile {
	return Profile{
		Language:           "ja-JP",
		Greeting:           "こんにちは、お話しできますか？",
		EndKeyword:         "終了",
		YouKeyword:         "あなた",
		AizuchiProbability: 0.9,
		ReactionMode:       ReactionCombined,
		CompletionCheck:    true,
		ValidateResponses:  true,
		BargeIn:            true,
	}
}
