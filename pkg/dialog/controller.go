// Package dialog implements the spoken-dialogue turn engine: a state machine
// that alternates between capturing user speech, deciding whether to react,
// generating and validating a reply, and speaking it through cancellable
// playback. All blocking work (capture, service calls, playback polling)
// happens off the orchestration path in worker goroutines; the controller
// goroutine only awaits them.
package dialog

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync/atomic"

	"github.com/kaiwa-go/kaiwa/pkg/ai/llm"
	"github.com/kaiwa-go/kaiwa/pkg/ai/oracle"
	"github.com/kaiwa-go/kaiwa/pkg/ai/stt"
	"github.com/kaiwa-go/kaiwa/pkg/ai/tts"
	"github.com/kaiwa-go/kaiwa/pkg/audio"
	"github.com/kaiwa-go/kaiwa/pkg/transcript"
)

// State is the current phase of the conversation loop.
type State int32

const (
	StateAwaitingGreeting State = iota
	StateNegotiatingVoice
	StateListening
	StateCheckingCompletion
	StateMaybeReacting
	StateGeneratingResponse
	StateValidatingResponse
	StateSpeaking
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateAwaitingGreeting:
		return "AwaitingGreeting"
	case StateNegotiatingVoice:
		return "NegotiatingVoice"
	case StateListening:
		return "Listening"
	case StateCheckingCompletion:
		return "CheckingCompletion"
	case StateMaybeReacting:
		return "MaybeReacting"
	case StateGeneratingResponse:
		return "GeneratingResponse"
	case StateValidatingResponse:
		return "ValidatingResponse"
	case StateSpeaking:
		return "Speaking"
	case StateEnded:
		return "Ended"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// Config wires a Controller. Services are injected explicitly; the engine
// holds no module-level client state.
type Config struct {
	Profile     Profile
	Recognizer  stt.Recognizer
	Synthesizer tts.Synthesizer
	Responder   llm.Responder
	Checker     oracle.CompletionChecker // required when Profile.CompletionCheck
	Validator   oracle.ResponseValidator // required when Profile.ValidateResponses
	Player      audio.Player
	Reaction    ReactionPolicy
	Selector    *VoiceSelector // required when Profile.VoiceSelect
	Voice       tts.VoiceProfile
	Exporter    *transcript.ExportPipeline // optional
	Logger      *slog.Logger

	// Rand is the uniform [0,1) draw used by MaybeReacting. Defaults to
	// math/rand.
	Rand func() float64
}

// Controller drives the conversation loop.
type Controller struct {
	profile   Profile
	rec       stt.Recognizer
	synth     tts.Synthesizer
	responder llm.Responder
	checker   oracle.CompletionChecker
	validator oracle.ResponseValidator
	player    audio.Player
	reaction  ReactionPolicy
	selector  *VoiceSelector
	monitor   *Monitor
	exporter  *transcript.ExportPipeline
	logger    *slog.Logger
	randf     func() float64

	session *Session
	history []llm.Message
	pending []string      // accumulated not-finished captures
	capture <-chan string // in-flight recognition carried over from a speak step

	state       atomic.Int32
	transitions *expvar.Map
}

// New validates the wiring and creates a Controller.
func New(cfg Config) (*Controller, error) {
	if cfg.Recognizer == nil {
		return nil, fmt.Errorf("recognizer is required")
	}
	if cfg.Synthesizer == nil {
		return nil, fmt.Errorf("synthesizer is required")
	}
	if cfg.Responder == nil {
		return nil, fmt.Errorf("responder is required")
	}
	if cfg.Player == nil {
		return nil, fmt.Errorf("player is required")
	}
	if cfg.Profile.CompletionCheck && cfg.Checker == nil {
		return nil, fmt.Errorf("completion checking enabled but no checker configured")
	}
	if cfg.Profile.ValidateResponses && cfg.Validator == nil {
		return nil, fmt.Errorf("validation enabled but no validator configured")
	}
	if cfg.Profile.VoiceSelect && cfg.Selector == nil {
		return nil, fmt.Errorf("voice selection enabled but no selector configured")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.Float64
	}

	transitions := &expvar.Map{}
	transitions.Init()

	c := &Controller{
		profile:     cfg.Profile,
		rec:         cfg.Recognizer,
		synth:       cfg.Synthesizer,
		responder:   cfg.Responder,
		checker:     cfg.Checker,
		validator:   cfg.Validator,
		player:      cfg.Player,
		reaction:    cfg.Reaction,
		selector:    cfg.Selector,
		monitor:     NewMonitor(cfg.Recognizer, cfg.Logger),
		exporter:    cfg.Exporter,
		logger:      cfg.Logger,
		randf:       cfg.Rand,
		session:     NewSession(cfg.Voice),
		transitions: transitions,
	}
	c.state.Store(int32(StateAwaitingGreeting))
	return c, nil
}

// Session returns the conversation session the controller drives.
func (c *Controller) Session() *Session {
	return c.session
}

// GetState returns the controller's current state.
func (c *Controller) GetState() State {
	return State(c.state.Load())
}

func (c *Controller) setState(next State) {
	prev := State(c.state.Swap(int32(next)))
	key := prev.String() + "_to_" + next.String()
	c.transitions.Add(key, 1)
}

// Run drives the conversation until the user says the end keyword or ctx is
// cancelled. All turn-level failures are absorbed; Run only returns an error
// for context cancellation or a capture-device failure.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info("session started",
		slog.String("session_id", c.session.ID.String()),
		slog.String("voice", c.session.Voice.String()))

	c.speakText(ctx, c.profile.Greeting, c.session.Voice)
	c.session.Log.Append(transcript.SpeakerSystem, c.profile.Greeting)

	if c.profile.VoiceSelect {
		if err := c.negotiateVoice(ctx); err != nil {
			return err
		}
	}

	seed := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		text := seed
		seed = ""
		if text == "" {
			c.setState(StateListening)
			if c.capture != nil {
				// The previous reply finished playing with a recognition
				// still in flight. That capture is this turn's input; the
				// user may already be mid-sentence on it.
				select {
				case s := <-c.capture:
					text = s
				case <-ctx.Done():
					return ctx.Err()
				}
				c.capture = nil
			} else {
				var err error
				text, err = c.rec.Recognize(ctx)
				if err != nil {
					return fmt.Errorf("speech capture: %w", err)
				}
			}
			if text == "" {
				continue
			}
		}

		// The end keyword always ends the session within the same turn, no
		// matter what aizuchi or validation would have done.
		if strings.Contains(text, c.profile.EndKeyword) {
			c.session.Log.Append(transcript.SpeakerUser, c.joinPending(text))
			break
		}

		if c.profile.CompletionCheck {
			c.setState(StateCheckingCompletion)
			c.pending = append(c.pending, text)
			joined := strings.Join(c.pending, "")
			finished, err := c.checker.Check(ctx, joined)
			if err != nil {
				// Turn abandoned; the accumulated input is kept so the
				// user's words are not lost.
				c.logger.Error("completion check failed", slog.String("error", err.Error()))
				continue
			}
			if !finished {
				c.logger.Info("utterance not finished, re-listening", slog.String("pending", joined))
				continue
			}
			text = joined
			c.pending = c.pending[:0]
		}

		c.session.Log.Append(transcript.SpeakerUser, text)

		c.setState(StateMaybeReacting)
		if c.reaction != nil && c.randf() < c.profile.AizuchiProbability {
			c.react(ctx, text)
		}

		c.setState(StateGeneratingResponse)
		reply, updated, err := c.responder.Generate(ctx, text, c.history)
		if err != nil {
			c.logger.Error("response generation failed", slog.String("error", err.Error()))
			continue
		}
		c.history = updated

		if c.profile.ValidateResponses {
			c.setState(StateValidatingResponse)
			ok, err := c.validator.Validate(ctx, text, reply)
			if err != nil {
				c.logger.Error("response validation failed", slog.String("error", err.Error()))
				continue
			}
			if !ok {
				c.logger.Info("response rejected, discarding", slog.String("reply", reply))
				continue
			}
		}

		c.setState(StateSpeaking)
		seed, c.capture = c.speak(ctx, reply)
		c.session.Log.Append(transcript.SpeakerAI, reply)
	}

	c.setState(StateEnded)
	c.session.End()
	c.logger.Info("session ended", slog.String("session_id", c.session.ID.String()))

	if c.exporter != nil {
		c.exporter.Flush(ctx, c.session.Log)
	}
	return nil
}

// negotiateVoice captures one reply and fixes the session voice for good.
func (c *Controller) negotiateVoice(ctx context.Context) error {
	c.setState(StateNegotiatingVoice)
	reply, err := c.rec.Recognize(ctx)
	if err != nil {
		return fmt.Errorf("voice negotiation capture: %w", err)
	}
	voice, confirmation := c.selector.Select(reply)
	c.session.Voice = voice
	c.logger.Info("voice selected", slog.String("voice", voice.String()))
	c.speakText(ctx, confirmation, voice)
	c.session.Log.Append(transcript.SpeakerSystem, confirmation)
	return nil
}

// speak renders and plays the reply with the barge-in monitor running
// alongside when enabled. It returns recognized barge-in text to seed the
// next turn, or, when playback ran to completion with the recognition still
// in flight, the pending capture channel. The next listening step consumes
// that channel, so speech the user started during playback is never dropped.
func (c *Controller) speak(ctx context.Context, text string) (string, <-chan string) {
	tok := NewCancelToken()

	var barge <-chan string
	if c.profile.BargeIn {
		barge = c.monitor.Watch(ctx, tok)
	}

	data, err := c.synth.Synthesize(ctx, text, c.session.Voice)
	if err != nil {
		c.logger.Error("synthesis failed", slog.String("error", err.Error()))
	} else if err := c.player.Play(ctx, data, tok); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Error("playback failed", slog.String("error", err.Error()))
	}

	if barge == nil {
		return "", nil
	}
	if tok.Cancelled() {
		// Only the monitor fires the token, so its text is on the way.
		if s, ok := <-barge; ok {
			return s, nil
		}
		return "", nil
	}
	// Playback ran to completion. A recognition that already landed has no
	// cancellation effect but still seeds the next turn directly.
	select {
	case s, ok := <-barge:
		if ok {
			return s, nil
		}
		return "", nil
	default:
		return "", barge
	}
}

// speakText synthesizes and plays a standalone phrase (greeting,
// confirmation, aizuchi) with its own fresh token and no barge-in monitor.
func (c *Controller) speakText(ctx context.Context, text string, voice tts.VoiceProfile) {
	tok := NewCancelToken()
	data, err := c.synth.Synthesize(ctx, text, voice)
	if err != nil {
		c.logger.Error("synthesis failed", slog.String("error", err.Error()))
		return
	}
	if err := c.player.Play(ctx, data, tok); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Error("playback failed", slog.String("error", err.Error()))
	}
}

// react performs one filler reaction: nod clip first if the policy picked
// one, then the synthesized phrase.
func (c *Controller) react(ctx context.Context, userText string) {
	reaction, ok := c.reaction.Pick(userText, c.session.Voice)
	if !ok {
		return
	}
	if reaction.ClipPath != "" {
		tok := NewCancelToken()
		if err := c.player.PlayFile(ctx, reaction.ClipPath, tok); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Error("nod clip playback failed",
				slog.String("clip", reaction.ClipPath),
				slog.String("error", err.Error()))
		}
	}
	if reaction.Text != "" {
		c.speakText(ctx, reaction.Text, c.session.Voice)
	}
}

// joinPending folds any accumulated partial input into the final utterance.
func (c *Controller) joinPending(text string) string {
	if len(c.pending) == 0 {
		return text
	}
	full := strings.Join(c.pending, "") + text
	c.pending = c.pending[:0]
	return full
}
