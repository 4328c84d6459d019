package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vocode/internal/chat"
)

func TestNewProviders(t *testing.T) {
	c, err := New(Options{Provider: ProviderOllama})
	require.NoError(t, err)
	assert.IsType(t, &Ollama{}, c)

	c, err = New(Options{APIKey: "sk-test"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAI{}, c)

	_, err = New(Options{Provider: ProviderOpenAI})
	assert.Error(t, err)

	_, err = New(Options{Provider: "anthropic"})
	assert.Error(t, err)
}

func TestOllamaComplete(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Stream   bool   `json:"stream"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":   got.Model,
			"message": map[string]string{"role": "assistant", "content": "DELETE ROW:\nbye"},
			"done":    true,
		})
	}))
	defer srv.Close()

	o, err := NewOllama(srv.URL, srv.Client())
	require.NoError(t, err)

	reply, err := o.Complete(context.Background(), "llama3.2:1b", []chat.Message{
		chat.System("rules"),
		chat.User("remove this line"),
	})
	require.NoError(t, err)

	assert.Equal(t, chat.Assistant("DELETE ROW:\nbye"), reply)
	assert.Equal(t, "llama3.2:1b", got.Model)
	assert.False(t, got.Stream)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "remove this line", got.Messages[1].Content)
}

func TestOpenAIComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)

		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req["model"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o",
			"choices": [{
				"index": 0,
				"finish_reason": "stop",
				"message": {"role": "assistant", "content": "Sure, here's your answer"}
			}],
			"usage": {"prompt_tokens": 3, "completion_tokens": 4, "total_tokens": 7}
		}`))
	}))
	defer srv.Close()

	o, err := NewOpenAI("sk-test", srv.URL, srv.Client())
	require.NoError(t, err)

	reply, err := o.Complete(context.Background(), "gpt-4o", []chat.Message{chat.User("hi")})
	require.NoError(t, err)
	assert.Equal(t, chat.Assistant("Sure, here's your answer"), reply)
}
