package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kaiwa-go/kaiwa/internal/config"
	"github.com/kaiwa-go/kaiwa/internal/rules"
	"github.com/kaiwa-go/kaiwa/pkg/ai/llm"
	"github.com/kaiwa-go/kaiwa/pkg/ai/oracle"
	"github.com/kaiwa-go/kaiwa/pkg/ai/stt"
	"github.com/kaiwa-go/kaiwa/pkg/ai/tts"
	"github.com/kaiwa-go/kaiwa/pkg/audio"
	"github.com/kaiwa-go/kaiwa/pkg/dialog"
	"github.com/kaiwa-go/kaiwa/pkg/transcript"
	"github.com/kaiwa-go/kaiwa/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:          "kaiwa",
	Short:        "Kaiwa - a spoken Japanese conversation companion",
	Long:         `kaiwa runs a turn-based spoken dialogue session: it listens, reacts with aizuchi fillers, answers through an LLM, and speaks the reply with interruptible playback.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.GetVersionInfo())
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a conversation session",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		envFile, _ := cmd.Flags().GetString("env-file")
		metrics, _ := cmd.Flags().GetBool("metrics")
		voiceSelect, _ := cmd.Flags().GetBool("voice-select")

		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}

		logger := setupLogger()
		logger.Info("Starting session",
			slog.String("service", "kaiwa"),
			slog.String("version", version.Version),
			slog.String("commit", version.GitCommit))

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if voiceSelect {
			cfg.Dialog.VoiceSelect = true
		}
		applyEnvFallbacks(cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if metrics {
			go func() {
				logger.Info("Starting metrics server on :8080")
				mux := http.NewServeMux()
				mux.Handle("/metrics", expvar.Handler())
				if err := http.ListenAndServe(":8080", mux); err != nil {
					logger.Error("Metrics server failed", slog.String("error", err.Error()))
				}
			}()
		}

		return runSession(ctx, cfg, logger)
	},
}

func runSession(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	mic, err := audio.NewMicSource(cfg.Speech.SampleRate, 1024)
	if err != nil {
		return fmt.Errorf("opening microphone: %w", err)
	}
	defer mic.Close()

	recognizer, err := stt.NewGoogleRecognizer(ctx, stt.GoogleConfig{
		CredentialsFile: cfg.Speech.CredentialsFile,
		Language:        cfg.Speech.Language,
		SampleRate:      cfg.Speech.SampleRate,
	}, mic, logger)
	if err != nil {
		return fmt.Errorf("creating recognizer: %w", err)
	}
	defer recognizer.Close()

	platform, err := tts.NewGoogleSynthesizer(ctx, cfg.Speech.CredentialsFile)
	if err != nil {
		return fmt.Errorf("creating synthesizer: %w", err)
	}
	defer platform.Close()

	synth := &tts.Router{
		Platform: platform,
		Cloned:   tts.NewElevenLabsSynthesizer(cfg.Voice.ElevenLabsAPIKey),
	}

	responder := llm.NewOpenAIResponder(llm.OpenAIConfig{
		APIKey: cfg.OpenAI.APIKey,
		Model:  cfg.OpenAI.Model,
	})
	oa := oracle.NewOpenAIOracle(cfg.OpenAI.APIKey, cfg.OpenAI.Model)

	profile := dialog.DefaultProfile()
	profile.Greeting = cfg.Dialog.EffectiveGreeting()
	profile.EndKeyword = cfg.Dialog.EndKeyword
	profile.YouKeyword = cfg.Dialog.YouKeyword
	profile.AizuchiProbability = cfg.Dialog.AizuchiProbability
	profile.ReactionMode = dialog.ReactionMode(cfg.Dialog.ReactionMode)
	profile.CompletionCheck = cfg.Dialog.CompletionCheck
	profile.ValidateResponses = cfg.Dialog.ValidateResponses
	profile.BargeIn = cfg.Dialog.BargeIn
	profile.VoiceSelect = cfg.Dialog.VoiceSelect

	reaction, err := buildReactionPolicy(ctx, cfg, profile.ReactionMode, logger)
	if err != nil {
		return err
	}

	defaultVoice := tts.DefaultVoice(cfg.Speech.Language, cfg.Voice.Name, cfg.Voice.Gender)
	clonedVoice := tts.ClonedVoice(cfg.Voice.ElevenLabsVoiceID)

	exporter, err := buildExporter(ctx, cfg, responder, logger)
	if err != nil {
		return err
	}

	ctrl, err := dialog.New(dialog.Config{
		Profile:     profile,
		Recognizer:  recognizer,
		Synthesizer: synth,
		Responder:   responder,
		Checker:     oa,
		Validator:   oa,
		Player:      audio.NewBeepPlayer(logger),
		Reaction:    reaction,
		Selector: &dialog.VoiceSelector{
			YouKeyword:    profile.YouKeyword,
			Default:       defaultVoice,
			Cloned:        clonedVoice,
			KeepMessage:   "このまま男性の声で続けます。",
			SwitchMessage: "声を変更しました。",
		},
		Voice:    defaultVoice,
		Exporter: exporter,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	return ctrl.Run(ctx)
}

func buildReactionPolicy(ctx context.Context, cfg *config.Config, mode dialog.ReactionMode, logger *slog.Logger) (dialog.ReactionPolicy, error) {
	set, err := rules.Load(cfg.Rules.Path)
	if err != nil {
		logger.Warn("Rule file unavailable, using built-in rules",
			slog.String("path", cfg.Rules.Path),
			slog.String("error", err.Error()))
		set = rules.Default()
	}
	rulePolicy := dialog.NewRulePolicy(set, nil)

	if cfg.Rules.Watch {
		go func() {
			err := rules.Watch(ctx, cfg.Rules.Path, logger, rulePolicy.Update)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("Rule watch stopped", slog.String("error", err.Error()))
			}
		}()
	}

	clips := func(names ...string) []string {
		paths := make([]string, len(names))
		for i, n := range names {
			paths[i] = filepath.Join(cfg.Voice.ClipDir, n)
		}
		return paths
	}
	clipPolicy := dialog.NewClipPolicy(
		clips("hoo.mp3", "naruhodo.mp3", "hee.mp3"),
		clips("hoo_c.mp3", "naruhodo_c.mp3", "hee_c.mp3"),
		nil,
	)

	switch mode {
	case dialog.ReactionRules:
		return rulePolicy, nil
	case dialog.ReactionClips:
		return clipPolicy, nil
	case dialog.ReactionCombined:
		return &dialog.CombinedPolicy{Clips: clipPolicy, Rules: rulePolicy}, nil
	default:
		return nil, fmt.Errorf("unknown reaction mode %q", mode)
	}
}

func buildExporter(ctx context.Context, cfg *config.Config, responder *llm.OpenAIResponder, logger *slog.Logger) (*transcript.ExportPipeline, error) {
	var sum transcript.Summarizer
	if cfg.Export.Summarize {
		sum = responder
	}
	var up transcript.Uploader
	if cfg.Export.DriveCredentialsFile != "" {
		d, err := transcript.NewDriveUploader(ctx, cfg.Export.DriveCredentialsFile, cfg.Export.DriveFolderID)
		if err != nil {
			return nil, fmt.Errorf("creating drive uploader: %w", err)
		}
		up = d
	}
	return transcript.NewExportPipeline(cfg.Export.LocalPath, sum, up, logger), nil
}

// applyEnvFallbacks honors the conventional unprefixed key variables when the
// KAIWA_ prefixed ones are absent.
func applyEnvFallbacks(cfg *config.Config) {
	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Voice.ElevenLabsAPIKey == "" {
		cfg.Voice.ElevenLabsAPIKey = os.Getenv("ELEVENLABS_API_KEY")
	}
	if cfg.Speech.CredentialsFile == "" {
		cfg.Speech.CredentialsFile = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
}

func setupLogger() *slog.Logger {
	logFormat := os.Getenv("KAIWA_LOG_FORMAT")
	logLevel := os.Getenv("KAIWA_LOG_LEVEL")

	opts := &slog.HandlerOptions{}
	switch logLevel {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	var handler slog.Handler
	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func init() {
	runCmd.Flags().String("config", "", "Path to config file (default: ./kaiwa.yaml if present)")
	runCmd.Flags().String("env-file", ".env", "Path to .env file with API keys")
	runCmd.Flags().Bool("metrics", false, "Enable metrics server on port 8080")
	runCmd.Flags().Bool("voice-select", false, "Negotiate the session voice after the greeting")

	rootCmd.AddCommand(versionCmd, runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
