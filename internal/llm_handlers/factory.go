package llmHandlers

import (
	"context"
	"fmt"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
)

type Provider string

const (
	ProviderGroq            Provider = "groq"
	ProviderOpenAI          Provider = "openai"
	ProviderGemini          Provider = "gemini"
	ProviderVertexAnthropic Provider = "vertex_anthropic"
)

type Config struct {
	Provider Provider
	Model    string
	APIKey   string
	BaseURL  string

	// Vertex only
	Prediction *aiplatform.PredictionClient
	ProjectID  string
	Location   string
}

// New builds the client for cfg.Provider
func New(ctx context.Context, cfg Config) (Client, error) {
	switch cfg.Provider {
	case ProviderGroq, ProviderOpenAI:
		return NewLangChainClient(LangChainConfig{
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
		})
	case ProviderGemini:
		return NewGenaiGeminiClient(ctx, cfg.APIKey, cfg.Model)
	case ProviderVertexAnthropic:
		return NewVertexAnthropicClient(cfg.Prediction, cfg.ProjectID, cfg.Location, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown provider %s", cfg.Provider)
	}
}
