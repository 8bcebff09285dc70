package agents

import (
	"context"
	"fmt"
	"strings"

	"chatdesk-backend/internal/assistant/prompts"
	llmHandlers "chatdesk-backend/internal/llm_handlers"
)

type Agent struct {
	llmClient llmHandlers.Client
}

func NewAgent(llmClient llmHandlers.Client) *Agent {
	return &Agent{
		llmClient: llmClient,
	}
}

// ProcessRequest answers the last user message in chatHistory.
// model may be empty to use the provider default.
func (a *Agent) ProcessRequest(ctx context.Context, chatHistory []llmHandlers.Message, model string) (string, error) {
	var opts []llmHandlers.ChatOption
	if model != "" {
		opts = append(opts, llmHandlers.WithModel(model))
	}

	response, err := a.llmClient.Chat(ctx, prompts.MASTER_PROMPT, chatHistory, opts...)
	if err != nil {
		return "", fmt.Errorf("LLM chat error: %w", err)
	}

	if strings.TrimSpace(response) == "" {
		return llmHandlers.EmptyCompletion, nil
	}
	return response, nil
}
