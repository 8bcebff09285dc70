package llmHandlers

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangChainClient talks to any OpenAI compatible endpoint (OpenAI, Groq, ...)
type LangChainClient struct {
	llm   llms.Model
	model string
}

type LangChainConfig struct {
	Model   string // e.g. "gpt-4.1", "llama3-70b-8192"
	BaseURL string // optional: for Groq or other OpenAI-compatible APIs
	APIKey  string // if not set, it’ll fall back to env
}

func NewLangChainClient(cfg LangChainConfig) (*LangChainClient, error) {
	opts := []openai.Option{
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, openai.WithToken(cfg.APIKey))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create langchain openai client: %w", err)
	}

	return &LangChainClient{llm: llm, model: cfg.Model}, nil
}

func toLangChainMessages(systemMessage string, messages []Message) []llms.MessageContent {
	msgContents := make([]llms.MessageContent, 0, len(messages)+1)
	if systemMessage != "" {
		msgContents = append(msgContents, llms.TextParts(llms.ChatMessageTypeSystem, systemMessage))
	}
	for _, m := range messages {
		var msgType llms.ChatMessageType
		switch m.Role {
		case RoleSystem:
			msgType = llms.ChatMessageTypeSystem
		case RoleAssistant:
			msgType = llms.ChatMessageTypeAI
		default:
			msgType = llms.ChatMessageTypeHuman
		}
		msgContents = append(msgContents, llms.TextParts(msgType, m.Content))
	}
	return msgContents
}

func (c *LangChainClient) Chat(ctx context.Context, systemMessage string, messages []Message, opts ...ChatOption) (string, error) {
	o := applyOptions(c.model, opts)

	resp, err := c.llm.GenerateContent(ctx, toLangChainMessages(systemMessage, messages), llms.WithModel(o.Model))
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from LLM")
	}

	return resp.Choices[0].Content, nil
}
