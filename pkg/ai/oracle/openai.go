package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	openai "github.com/sashabaranov/go-openai"

	"github.com/kaiwa-go/kaiwa/pkg/ai"
)

// OpenAIOracle implements both CompletionChecker and ResponseValidator over
// the OpenAI chat API with constrained JSON replies. A malformed payload is
// an ExternalBackendFailure: the turn is abandoned, the session survives.
type OpenAIOracle struct {
	client *openai.Client
	model  string
}

func NewOpenAIOracle(apiKey, model string) *OpenAIOracle {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIOracle{client: openai.NewClient(apiKey), model: model}
}

type checkReply struct {
	IsFinished bool `json:"isFinished"`
}

type validateReply struct {
	ResponseOK bool `json:"responseOk"`
}

func (o *OpenAIOracle) Check(ctx context.Context, text string) (bool, error) {
	payload, err := o.ask(ctx,
		`発話が言い終わった文かどうかを判定し、JSONのみで {"isFinished": true|false} と答えてください。`,
		text,
	)
	if err != nil {
		return false, err
	}
	var reply checkReply
	if err := sonic.Unmarshal([]byte(payload), &reply); err != nil {
		return false, fmt.Errorf("%w: malformed completion-check payload: %v", ai.ErrBackend, err)
	}
	return reply.IsFinished, nil
}

func (o *OpenAIOracle) Validate(ctx context.Context, userText, aiText string) (bool, error) {
	input := fmt.Sprintf(`{"userSpeech": %q, "aiResponse": %q}`, userText, aiText)
	payload, err := o.ask(ctx,
		`ユーザー発話に対するAI応答が適切かどうかを判定し、JSONのみで {"responseOk": true|false} と答えてください。`,
		input,
	)
	if err != nil {
		return false, err
	}
	var reply validateReply
	if err := sonic.Unmarshal([]byte(payload), &reply); err != nil {
		return false, fmt.Errorf("%w: malformed validation payload: %v", ai.ErrBackend, err)
	}
	return reply.ResponseOK, nil
}

func (o *OpenAIOracle) ask(ctx context.Context, system, user string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: oracle call: %v", ai.ErrBackend, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty oracle reply", ai.ErrBackend)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
