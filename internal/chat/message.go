package chat

import (
	"fmt"
	"strings"

	"vocode/pkg/tokens"
)

type Role = string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

func System(content string) Message    { return Message{Role: RoleSystem, Content: content} }
func User(content string) Message      { return Message{Role: RoleUser, Content: content} }
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

func (m Message) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "{'role': %q", m.Role)
	if m.Name != "" {
		fmt.Fprintf(&b, ", 'name': %q", m.Name)
	}
	fmt.Fprintf(&b, ", 'content': %q}", m.Content)
	return b.String()
}

func toTokens(msgs []Message) []tokens.Message {
	out := make([]tokens.Message, len(msgs))
	for i, m := range msgs {
		out[i] = tokens.Message{Role: m.Role, Content: m.Content, Name: m.Name}
	}
	return out
}
