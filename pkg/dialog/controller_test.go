package dialog

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/matryer/is"

	llmfake "github.com/kaiwa-go/kaiwa/pkg/ai/llm/fake"
	oraclefake "github.com/kaiwa-go/kaiwa/pkg/ai/oracle/fake"
	sttfake "github.com/kaiwa-go/kaiwa/pkg/ai/stt/fake"
	ttsfake "github.com/kaiwa-go/kaiwa/pkg/ai/tts/fake"
	audiofake "github.com/kaiwa-go/kaiwa/pkg/audio/fake"
	"github.com/kaiwa-go/kaiwa/pkg/ai/tts"
	"github.com/kaiwa-go/kaiwa/pkg/transcript"
)

// fixture bundles the fakes one controller run needs.
type fixture struct {
	rec       *sttfake.Recognizer
	synth     *ttsfake.Synthesizer
	responder *llmfake.Responder
	checker   *oraclefake.Checker
	validator *oraclefake.Validator
	player    *audiofake.Player
	cfg       Config
}

func newFixture(texts ...string) *fixture {
	f := &fixture{
		rec:       sttfake.NewRecognizer(texts...),
		synth:     ttsfake.NewSynthesizer(),
		responder: llmfake.NewResponder(),
		checker:   oraclefake.NewChecker(true),
		validator: oraclefake.NewValidator(true),
		player:    audiofake.NewPlayer(),
	}
	profile := DefaultProfile()
	profile.BargeIn = false
	f.cfg = Config{
		Profile:     profile,
		Recognizer:  f.rec,
		Synthesizer: f.synth,
		Responder:   f.responder,
		Checker:     f.checker,
		Validator:   f.validator,
		Player:      f.player,
		Voice:       tts.DefaultVoice("ja-JP", "ja-JP-Standard-C", "male"),
		Logger:      slog.Default(),
		Rand:        func() float64 { return 1 }, // never react unless a test opts in
	}
	return f
}

func (f *fixture) run(t *testing.T) *Controller {
	t.Helper()
	ctrl, err := New(f.cfg)
	if err != nil {
		t.Fatalf("failed to create controller: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ctrl.Run(ctx); err != nil {
		t.Fatalf("session failed: %v", err)
	}
	return ctrl
}

func TestController_New(t *testing.T) {
	valid := newFixture().cfg

	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{"valid config", func(c *Config) {}, false},
		{"missing recognizer", func(c *Config) { c.Recognizer = nil }, true},
		{"missing synthesizer", func(c *Config) { c.Synthesizer = nil }, true},
		{"missing responder", func(c *Config) { c.Responder = nil }, true},
		{"missing player", func(c *Config) { c.Player = nil }, true},
		{"completion check without checker", func(c *Config) { c.Checker = nil }, true},
		{"validation without validator", func(c *Config) { c.Validator = nil }, true},
		{"voice select without selector", func(c *Config) { c.Profile.VoiceSelect = true }, true},
		{"checks disabled need no oracles", func(c *Config) {
			c.Checker = nil
			c.Validator = nil
			c.Profile.CompletionCheck = false
			c.Profile.ValidateResponses = false
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			ctrl, err := New(cfg)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error, got nil")
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				if ctrl.GetState() != StateAwaitingGreeting {
					t.Errorf("expected initial state AwaitingGreeting, got %v", ctrl.GetState())
				}
			}
		})
	}
}

func TestController_EndKeywordEndsImmediately(t *testing.T) {
	is := is.New(t)
	f := newFixture("終了")

	ctrl := f.run(t)

	is.Equal(ctrl.GetState(), StateEnded)
	is.True(ctrl.Session().Ended())
	is.Equal(len(f.responder.Calls()), 0)  // no reply generated for the end keyword
	is.Equal(len(f.checker.Calls()), 0)    // end keyword wins before the completion check
	is.Equal(len(f.synth.Calls()), 1)      // only the greeting was spoken
	is.Equal(f.synth.Calls()[0].Text, f.cfg.Profile.Greeting)

	utts := ctrl.Session().Log.Utterances()
	is.Equal(len(utts), 2)
	is.Equal(utts[0].Speaker, transcript.SpeakerSystem)
	is.Equal(utts[1].Speaker, transcript.SpeakerUser)
	is.Equal(utts[1].Text, "終了")
}

func TestController_FullTurn(t *testing.T) {
	is := is.New(t)
	f := newFixture("今日は楽しかったです。", "終了")
	f.responder = llmfake.NewResponder("それは良かったですね。")
	f.cfg.Responder = f.responder

	ctrl := f.run(t)

	is.Equal(f.responder.Calls()[0], "今日は楽しかったです。")

	utts := ctrl.Session().Log.Utterances()
	is.Equal(len(utts), 4) // greeting, user, ai, end keyword
	is.Equal(utts[2].Speaker, transcript.SpeakerAI)
	is.Equal(utts[2].Text, "それは良かったですね。")

	// Greeting plus the reply were both synthesized and played.
	is.Equal(len(f.synth.Calls()), 2)
	is.Equal(len(f.player.Plays()), 2)
	for _, p := range f.player.Plays() {
		is.True(!p.StaleToken) // every playback gets a fresh token
	}
}

func TestController_RejectedResponseIsDiscarded(t *testing.T) {
	is := is.New(t)
	f := newFixture("何か話して。", "終了")
	f.validator = oraclefake.NewValidator(false)
	f.cfg.Validator = f.validator

	ctrl := f.run(t)

	is.Equal(f.validator.Calls(), 1)
	is.Equal(len(f.synth.Calls()), 1) // rejected reply was never synthesized

	for _, u := range ctrl.Session().Log.Utterances() {
		is.True(u.Speaker != transcript.SpeakerAI) // rejected reply never reaches the transcript
	}
}

func TestController_CompletionCheckAccumulates(t *testing.T) {
	is := is.New(t)
	f := newFixture("今日は", "いい天気ですね。", "終了")
	f.checker = oraclefake.NewChecker(false, true)
	f.cfg.Checker = f.checker

	ctrl := f.run(t)

	// Each check sees everything accumulated so far, concatenated.
	is.Equal(f.checker.Calls(), []string{"今日は", "今日はいい天気ですね。"})

	// The responder and the transcript get the full utterance, once.
	is.Equal(f.responder.Calls(), []string{"今日はいい天気ですね。"})
	utts := ctrl.Session().Log.Utterances()
	is.Equal(utts[1].Speaker, transcript.SpeakerUser)
	is.Equal(utts[1].Text, "今日はいい天気ですね。")
}

func TestController_CheckerFailureKeepsBuffer(t *testing.T) {
	is := is.New(t)
	f := newFixture("今日は", "終了")
	f.checker.FailWith(errors.New("backend unavailable"))

	ctrl := f.run(t)

	// The turn was abandoned but the captured words survive into the final
	// utterance.
	is.Equal(len(f.responder.Calls()), 0)
	utts := ctrl.Session().Log.Utterances()
	is.Equal(utts[1].Text, "今日は終了")
}

func TestController_EmptyCaptureReListens(t *testing.T) {
	is := is.New(t)
	f := newFixture("", "", "終了")

	ctrl := f.run(t)

	is.Equal(f.rec.Calls(), 3)      // two empty captures then the end keyword
	is.Equal(len(f.checker.Calls()), 0)
	is.True(ctrl.Session().Ended())
}

func TestController_ResponderFailureSkipsTurn(t *testing.T) {
	is := is.New(t)
	f := newFixture("聞いてください。", "終了")
	f.responder.FailWith(errors.New("rate limited"))

	ctrl := f.run(t)

	is.Equal(len(f.synth.Calls()), 1) // nothing but the greeting was spoken
	for _, u := range ctrl.Session().Log.Utterances() {
		is.True(u.Speaker != transcript.SpeakerAI)
	}
}

func TestController_SynthesisFailureStillRecordsReply(t *testing.T) {
	is := is.New(t)
	f := newFixture("こんにちは。", "終了")
	f.synth.FailWith(errors.New("tts unavailable"))

	ctrl := f.run(t)

	is.Equal(len(f.player.Plays()), 0) // nothing reached the speaker

	var aiTexts []string
	for _, u := range ctrl.Session().Log.Utterances() {
		if u.Speaker == transcript.SpeakerAI {
			aiTexts = append(aiTexts, u.Text)
		}
	}
	is.Equal(len(aiTexts), 1) // the reply is transcript-real even unspoken
}

func TestController_AizuchiReaction(t *testing.T) {
	is := is.New(t)
	f := newFixture("最近犬を飼い始めたんです。", "終了")
	f.cfg.Rand = func() float64 { return 0 } // always react
	f.cfg.Reaction = &CombinedPolicy{
		Clips: NewClipPolicy([]string{"nods/hoo.mp3"}, nil, func(n int) int { return 0 }),
		Rules: NewRulePolicy(nil, func(n int) int { return 0 }),
	}

	ctrl := f.run(t)

	// Order: greeting, nod clip, filler phrase, reply.
	plays := f.player.Plays()
	is.Equal(len(plays), 4)
	is.Equal(plays[1].Path, "nods/hoo.mp3")

	synths := f.synth.Calls()
	is.Equal(len(synths), 3)
	is.Equal(synths[1].Text, "そうなんですね。") // suffix rule for です。

	// Reactions never enter the transcript.
	is.Equal(len(ctrl.Session().Log.Utterances()), 4)
}

func TestController_AizuchiProbabilityZeroDraw(t *testing.T) {
	is := is.New(t)
	f := newFixture("最近犬を飼い始めたんです。", "終了")
	f.cfg.Rand = func() float64 { return 0.95 } // above every sane probability
	f.cfg.Reaction = NewRulePolicy(nil, nil)
	f.cfg.Profile.AizuchiProbability = 0.9

	f.run(t)

	is.Equal(len(f.synth.Calls()), 2) // greeting and reply only, no filler
}

func TestController_VoiceSelect(t *testing.T) {
	defaultVoice := tts.DefaultVoice("ja-JP", "ja-JP-Standard-C", "male")
	clonedVoice := tts.ClonedVoice("FeaM2xaHKiX1yiaPxvwe")

	tests := []struct {
		name         string
		reply        string
		wantCloned   bool
		confirmation string
	}{
		{"you keyword keeps default", "あなたとお話ししたいです", false, "このまま男性の声で続けます。"},
		{"anything else switches", "お父さんと話したい", true, "声を変更しました。"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			f := newFixture(tt.reply, "終了")
			f.cfg.Profile.VoiceSelect = true
			f.cfg.Selector = &VoiceSelector{
				YouKeyword:    "あなた",
				Default:       defaultVoice,
				Cloned:        clonedVoice,
				KeepMessage:   "このまま男性の声で続けます。",
				SwitchMessage: "声を変更しました。",
			}

			ctrl := f.run(t)

			is.Equal(ctrl.Session().Voice.Cloned, tt.wantCloned)

			synths := f.synth.Calls()
			is.Equal(len(synths), 2) // greeting then confirmation
			is.Equal(synths[1].Text, tt.confirmation)
			is.Equal(synths[1].Voice.Cloned, tt.wantCloned) // spoken in the chosen voice

			// The voice reply itself is not transcribed, the confirmation is.
			utts := ctrl.Session().Log.Utterances()
			is.Equal(len(utts), 3)
			is.Equal(utts[1].Speaker, transcript.SpeakerSystem)
			is.Equal(utts[1].Text, tt.confirmation)
		})
	}
}

func TestController_BargeInCancelsAndSeeds(t *testing.T) {
	is := is.New(t)
	f := newFixture("こんにちは、今日は暇ですか。")
	f.cfg.Profile.BargeIn = true
	f.player.Duration = 300 * time.Millisecond
	f.player.Started = make(chan struct{}, 8)

	ctrl, err := New(f.cfg)
	if err != nil {
		t.Fatalf("failed to create controller: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx) }()

	<-f.player.Started // greeting
	<-f.player.Started // first reply underway

	// User speaks over the reply.
	f.rec.Feed("ちょっと待って、それで思い出したんですが。")

	<-f.player.Started // second reply underway
	f.rec.Feed("ありがとう、終了します。")

	if err := <-done; err != nil {
		t.Fatalf("session failed: %v", err)
	}

	// The interruption became the next turn's input without a fresh capture.
	is.Equal(f.responder.Calls(), []string{
		"こんにちは、今日は暇ですか。",
		"ちょっと待って、それで思い出したんですが。",
	})

	plays := f.player.Plays()
	is.Equal(len(plays), 3)
	is.True(plays[1].Cancelled) // first reply was cut off mid-play
	for _, p := range plays {
		is.True(!p.StaleToken) // the fired token never leaked into a later turn
	}
}

func TestController_LateSpeechSeedsNextTurn(t *testing.T) {
	is := is.New(t)
	f := newFixture("こんにちは、今日は暇ですか。")
	f.cfg.Profile.BargeIn = true
	f.player.Duration = 30 * time.Millisecond
	f.player.Started = make(chan struct{}, 8)

	ctrl, err := New(f.cfg)
	if err != nil {
		t.Fatalf("failed to create controller: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx) }()

	<-f.player.Started // greeting
	<-f.player.Started // first reply underway

	// The reply plays out uninterrupted; the user only starts talking
	// afterwards, while the playback-time capture is still listening.
	time.Sleep(150 * time.Millisecond)
	f.rec.Feed("それと、もうひとつ聞きたいことが。")

	<-f.player.Started // second reply underway
	f.rec.Feed("ありがとう、終了します。")

	if err := <-done; err != nil {
		t.Fatalf("session failed: %v", err)
	}

	// The late speech reached the conversation as the next turn's input.
	is.Equal(f.responder.Calls(), []string{
		"こんにちは、今日は暇ですか。",
		"それと、もうひとつ聞きたいことが。",
	})

	// It cancelled nothing, and no fresh capture was issued for it: the
	// one already in flight was handed over to the next turn.
	is.True(!f.player.Plays()[1].Cancelled)
	is.Equal(f.rec.Calls(), 3)
}
