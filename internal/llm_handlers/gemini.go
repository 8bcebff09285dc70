package llmHandlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GenaiGeminiClient implements Client for Gemini via Google AI API
type GenaiGeminiClient struct {
	client  *genai.Client
	modelID string

	Temperature float32
	MaxTokens   int32
}

func NewGenaiGeminiClient(ctx context.Context, apiKey, modelID string) (*GenaiGeminiClient, error) {
	if apiKey == "" || modelID == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY and GEMINI_MODEL_ID must be set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	return &GenaiGeminiClient{
		client:      client,
		modelID:     modelID,
		Temperature: 0.2,
		MaxTokens:   1024,
	}, nil
}

// convertMessagesToGenaiContent converts our Message format to genai.Content.
// System messages are folded into the returned system text.
func convertMessagesToGenaiContent(messages []Message) (string, []*genai.Content) {
	systemParts := []string{}
	contents := []*genai.Content{}

	for _, m := range messages {
		if m.Role == RoleSystem {
			systemParts = append(systemParts, m.Content)
			continue
		}

		// Map role: "assistant" -> "model", "user" -> "user"
		roleOut := "user"
		if m.Role == RoleAssistant {
			roleOut = "model"
		}

		contents = append(contents, &genai.Content{
			Role:  roleOut,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}

	return strings.Join(systemParts, "\n"), contents
}

func (v *GenaiGeminiClient) Chat(ctx context.Context, systemMessage string, messages []Message, opts ...ChatOption) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	o := applyOptions(v.modelID, opts)
	inlineSystem, contents := convertMessagesToGenaiContent(messages)
	if inlineSystem != "" {
		systemMessage = strings.TrimSpace(systemMessage + "\n" + inlineSystem)
	}

	genConfig := &genai.GenerateContentConfig{
		Temperature:     &v.Temperature,
		MaxOutputTokens: v.MaxTokens,
	}
	if systemMessage != "" {
		genConfig.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemMessage}},
		}
	}

	resp, err := v.client.Models.GenerateContent(ctx, o.Model, contents, genConfig)
	if err != nil {
		return "", fmt.Errorf("gemini GenerateContent: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				sb.WriteString(part.Text)
			}
		}
	}

	return sb.String(), nil
}
