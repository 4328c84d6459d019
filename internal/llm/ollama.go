package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"vocode/internal/chat"
)

const defaultOllamaHost = "http://localhost:11434"

type Ollama struct {
	client *api.Client
}

func NewOllama(baseURL string, httpClient *http.Client) (*Ollama, error) {
	if baseURL == "" {
		baseURL = defaultOllamaHost
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}

	return &Ollama{client: api.NewClient(u, httpClient)}, nil
}

func (o *Ollama) Complete(ctx context.Context, model string, messages []chat.Message) (chat.Message, error) {
	stream := false
	var b strings.Builder

	err := o.client.Chat(ctx, &api.ChatRequest{
		Model:    model,
		Messages: toOllama(messages),
		Stream:   &stream,
	}, func(resp api.ChatResponse) error {
		b.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return chat.Message{}, fmt.Errorf("ollama chat: %w", err)
	}

	if b.Len() == 0 {
		return chat.Message{}, ErrEmptyResponse
	}

	return chat.Assistant(b.String()), nil
}

func toOllama(messages []chat.Message) []api.Message {
	out := make([]api.Message, len(messages))
	for i, m := range messages {
		out[i] = api.Message{Role: m.Role, Content: m.Content}
	}
	return out
}
