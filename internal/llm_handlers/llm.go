package llmHandlers

import (
	"context"
)

type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// EmptyCompletion replaces a completion that came back without text
const EmptyCompletion = "I couldn't generate a response."

type Message struct {
	Role    MessageRole
	Content string
}

type ChatOptions struct {
	Model string
}

type ChatOption func(*ChatOptions)

// WithModel overrides the provider's default model for one call
func WithModel(model string) ChatOption {
	return func(o *ChatOptions) {
		o.Model = model
	}
}

func applyOptions(defaultModel string, opts []ChatOption) ChatOptions {
	o := ChatOptions{Model: defaultModel}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Model == "" {
		o.Model = defaultModel
	}
	return o
}

type Client interface {
	Chat(ctx context.Context, systemMessage string, messages []Message, opts ...ChatOption) (string, error)
}
