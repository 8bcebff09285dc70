package llmHandlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	"cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"google.golang.org/genproto/googleapis/api/httpbody"
)

const anthropicVertexVersion = "vertex-2023-10-16"

// VertexAnthropicClient calls Claude through the Vertex AI rawPredict endpoint
type VertexAnthropicClient struct {
	prediction *aiplatform.PredictionClient
	projectID  string
	location   string
	modelID    string
	MaxTokens  int
}

func NewVertexAnthropicClient(prediction *aiplatform.PredictionClient, projectID, location, modelID string) (*VertexAnthropicClient, error) {
	if prediction == nil {
		return nil, fmt.Errorf("vertex prediction client is not configured")
	}
	if projectID == "" || location == "" || modelID == "" {
		return nil, fmt.Errorf("GOOGLE_CLOUD_PROJECT_ID, GOOGLE_CLOUD_VERTEXAI_LOCATION and CLAUDE_VERTEX_MODEL must be set")
	}
	return &VertexAnthropicClient{
		prediction: prediction,
		projectID:  projectID,
		location:   location,
		modelID:    modelID,
		MaxTokens:  1024,
	}, nil
}

type claudeResponse struct {
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (c *VertexAnthropicClient) endpoint(model string) string {
	return fmt.Sprintf("projects/%s/locations/%s/publishers/anthropic/models/%s", c.projectID, c.location, model)
}

func (c *VertexAnthropicClient) Chat(ctx context.Context, systemMessage string, messages []Message, opts ...ChatOption) (string, error) {
	o := applyOptions(c.modelID, opts)

	msgs := make([]map[string]interface{}, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			systemMessage = strings.TrimSpace(systemMessage + "\n" + m.Content)
			continue
		}
		msgs = append(msgs, map[string]interface{}{
			"role":    m.Role,
			"content": m.Content,
		})
	}

	body := map[string]interface{}{
		"anthropic_version": anthropicVertexVersion,
		"messages":          msgs,
		"max_tokens":        c.MaxTokens,
		"stream":            false,
	}
	if systemMessage != "" {
		body["system"] = systemMessage
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal body: %w", err)
	}

	resp, err := c.prediction.RawPredict(ctx, &aiplatformpb.RawPredictRequest{
		Endpoint: c.endpoint(o.Model),
		HttpBody: &httpbody.HttpBody{
			ContentType: "application/json",
			Data:        payload,
		},
	})
	if err != nil {
		return "", fmt.Errorf("vertex rawPredict: %w", err)
	}

	var cr claudeResponse
	if err := json.Unmarshal(resp.GetData(), &cr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	texts := make([]string, 0, len(cr.Content))
	for _, block := range cr.Content {
		if block.Type == "text" && block.Text != "" {
			texts = append(texts, block.Text)
		}
	}
	return strings.Join(texts, "\n\n"), nil
}
