// Package llm defines the language model client interface consumed by
// workflow steps, prompt sanitization helpers, and a rate-limited
// client wrapper. Concrete providers live in subpackages.
package llm

import "context"

// Role tags a message in a chat-style prompt.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged entry in a prompt.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// System builds a system message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User builds a user message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Client is the narrow interface workflow steps use to talk to a
// language model. Implementations return the raw text of the model's
// response; callers run it through the repair package before use.
type Client interface {
	GenerateResponse(ctx context.Context, messages []Message) (string, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, messages []Message) (string, error)

// GenerateResponse calls f.
func (f ClientFunc) GenerateResponse(ctx context.Context, messages []Message) (string, error) {
	return f(ctx, messages)
}
