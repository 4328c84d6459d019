package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"vocode/internal/chat"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

var ErrEmptyResponse = errors.New("empty model response")

// Completer sends the whole conversation upstream and returns the reply.
type Completer interface {
	Complete(ctx context.Context, model string, messages []chat.Message) (chat.Message, error)
}

type Options struct {
	Provider   string
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

func New(opt Options) (Completer, error) {
	switch opt.Provider {
	case "", ProviderOpenAI:
		return NewOpenAI(opt.APIKey, opt.BaseURL, opt.HTTPClient)
	case ProviderOllama:
		return NewOllama(opt.BaseURL, opt.HTTPClient)
	default:
		return nil, fmt.Errorf("unknown provider %q", opt.Provider)
	}
}
