package llm

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"vocode/internal/chat"
)

type OpenAI struct {
	client openai.Client
}

func NewOpenAI(apiKey, baseURL string, httpClient *http.Client) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY not set")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	return &OpenAI{client: openai.NewClient(opts...)}, nil
}

func (o *OpenAI) Complete(ctx context.Context, model string, messages []chat.Message) (chat.Message, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: toOpenAI(messages),
		Model:    openai.ChatModel(model),
	})
	if err != nil {
		return chat.Message{}, fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return chat.Message{}, fmt.Errorf("no choices in response")
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return chat.Message{}, ErrEmptyResponse
	}

	log.Debug("Completion ready", "model", resp.Model, "total_tokens", resp.Usage.TotalTokens)
	return chat.Assistant(content), nil
}

func toOpenAI(messages []chat.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case chat.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case chat.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
