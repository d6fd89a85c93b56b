// Package config loads engine configuration from file and environment.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Dialog Dialog `mapstructure:"dialog"`
	Speech Speech `mapstructure:"speech"`
	Voice  Voice  `mapstructure:"voice"`
	OpenAI OpenAI `mapstructure:"openai"`
	Rules  Rules  `mapstructure:"rules"`
	Export Export `mapstructure:"export"`
}

// Dialog configures the conversation loop.
type Dialog struct {
	Greeting           string  `mapstructure:"greeting"`
	EndKeyword         string  `mapstructure:"end_keyword"`
	YouKeyword         string  `mapstructure:"you_keyword"`
	AizuchiProbability float64 `mapstructure:"aizuchi_probability"`
	ReactionMode       string  `mapstructure:"reaction_mode"` // rules, clips, combined
	CompletionCheck    bool    `mapstructure:"completion_check"`
	ValidateResponses  bool    `mapstructure:"validate_responses"`
	BargeIn            bool    `mapstructure:"barge_in"`
	VoiceSelect        bool    `mapstructure:"voice_select"`
}

// EffectiveGreeting returns the greeting the session opens with. A custom
// greeting always wins; otherwise voice-select sessions open by asking who
// to talk to.
func (d Dialog) EffectiveGreeting() string {
	stock := Default().Dialog.Greeting
	if d.Greeting != "" && d.Greeting != stock {
		return d.Greeting
	}
	if d.VoiceSelect {
		return "今日は誰と話しますか？"
	}
	return stock
}

// Speech configures speech capture.
type Speech struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	Language        string `mapstructure:"language"`
	SampleRate      int    `mapstructure:"sample_rate"`
}

// Voice configures synthesis backends.
type Voice struct {
	Name              string `mapstructure:"name"`
	Gender            string `mapstructure:"gender"`
	ElevenLabsAPIKey  string `mapstructure:"elevenlabs_api_key"`
	ElevenLabsVoiceID string `mapstructure:"elevenlabs_voice_id"`
	ClipDir           string `mapstructure:"clip_dir"`
}

// OpenAI configures the chat backend shared by the responder and the
// completion/validation oracles.
type OpenAI struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// Rules configures the reaction rule table.
type Rules struct {
	Path  string `mapstructure:"path"`
	Watch bool   `mapstructure:"watch"`
}

// Export configures transcript export.
type Export struct {
	LocalPath            string `mapstructure:"local_path"`
	Summarize            bool   `mapstructure:"summarize"`
	DriveCredentialsFile string `mapstructure:"drive_credentials_file"`
	DriveFolderID        string `mapstructure:"drive_folder_id"`
}

// Default returns the stock Japanese companion configuration.
func Default() *Config {
	return &Config{
		Dialog: Dialog{
			Greeting:           "こんにちは、お話しできますか？",
			EndKeyword:         "終了",
			YouKeyword:         "あなた",
			AizuchiProbability: 0.9,
			ReactionMode:       "combined",
			CompletionCheck:    true,
			ValidateResponses:  true,
			BargeIn:            true,
			VoiceSelect:        false,
		},
		Speech: Speech{
			Language:   "ja-JP",
			SampleRate: 16000,
		},
		Voice: Voice{
			Name:              "ja-JP-Standard-C",
			Gender:            "male",
			ElevenLabsVoiceID: "FeaM2xaHKiX1yiaPxvwe",
			ClipDir:           "assets/nods",
		},
		OpenAI: OpenAI{
			Model: "gpt-4o-mini",
		},
		Rules: Rules{
			Path:  "rules.json",
			Watch: true,
		},
		Export: Export{
			LocalPath: "chat_log.csv",
			Summarize: true,
		},
	}
}

// Load reads configuration from the given file (optional) with KAIWA_*
// environment overrides applied on top of defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("KAIWA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal only sees keys viper knows about, so every key gets an
	// explicit env binding.
	for _, key := range []string{
		"dialog.greeting", "dialog.end_keyword", "dialog.you_keyword",
		"dialog.aizuchi_probability", "dialog.reaction_mode",
		"dialog.completion_check", "dialog.validate_responses",
		"dialog.barge_in", "dialog.voice_select",
		"speech.credentials_file", "speech.language", "speech.sample_rate",
		"voice.name", "voice.gender", "voice.elevenlabs_api_key",
		"voice.elevenlabs_voice_id", "voice.clip_dir",
		"openai.api_key", "openai.model",
		"rules.path", "rules.watch",
		"export.local_path", "export.summarize",
		"export.drive_credentials_file", "export.drive_folder_id",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("kaiwa")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, err
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that have no usable zero value.
func (c *Config) Validate() error {
	if c.Dialog.AizuchiProbability < 0 || c.Dialog.AizuchiProbability > 1 {
		return fmt.Errorf("aizuchi_probability must be in [0,1], got %v", c.Dialog.AizuchiProbability)
	}
	switch c.Dialog.ReactionMode {
	case "rules", "clips", "combined":
	default:
		return fmt.Errorf("unknown reaction_mode %q", c.Dialog.ReactionMode)
	}
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai api key is required (KAIWA_OPENAI_API_KEY)")
	}
	return nil
}
