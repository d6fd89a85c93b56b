package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kaiwa-go/kaiwa/pkg/ai"
)

// DefaultSystemPrompt keeps replies short enough to speak aloud.
const DefaultSystemPrompt = "あなたは親しみやすい会話相手です。短く自然な日本語で答えてください。"

// OpenAIResponder generates replies through the OpenAI chat API. It also
// implements transcript summarization, since both ride the same client.
type OpenAIResponder struct {
	client       *openai.Client
	model        string
	systemPrompt string
}

// OpenAIConfig configures an OpenAIResponder.
type OpenAIConfig struct {
	APIKey       string
	Model        string // defaults to gpt-4o-mini
	SystemPrompt string // defaults to DefaultSystemPrompt
}

func NewOpenAIResponder(cfg OpenAIConfig) *OpenAIResponder {
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}
	return &OpenAIResponder{
		client:       openai.NewClient(cfg.APIKey),
		model:        model,
		systemPrompt: prompt,
	}
}

func (o *OpenAIResponder) Generate(ctx context.Context, text string, history []Message) (string, []Message, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: o.systemPrompt,
	})
	for _, m := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: text,
	})

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: messages,
	})
	if err != nil {
		return "", history, fmt.Errorf("%w: chat completion: %v", ai.ErrBackend, err)
	}
	if len(resp.Choices) == 0 {
		return "", history, fmt.Errorf("%w: empty completion", ai.ErrBackend)
	}
	reply := strings.TrimSpace(resp.Choices[0].Message.Content)

	updated := append(append([]Message{}, history...),
		Message{Role: RoleUser, Content: text},
		Message{Role: RoleAssistant, Content: reply},
	)
	return reply, updated, nil
}

// Summarize reads the serialized transcript and produces a short summary.
// An empty string means the backend declined to summarize.
func (o *OpenAIResponder) Summarize(ctx context.Context, csvPath string) (string, error) {
	data, err := os.ReadFile(csvPath)
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "以下の会話記録を3文以内で要約してください。",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: string(data),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: summarize: %v", ai.ErrBackend, err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
