package libraries

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	"cloud.google.com/go/storage"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

var ErrGCPNotConfigured = errors.New("GCP_SERVICE_ACCOUNT_CREDENTIALS not set")

type Clients struct {
	GCS          *storage.Client
	Vertex       *aiplatform.PredictionClient
	ProjectID    string
	VertexRegion string
}

type GCPConfig struct {
	Credentials  string // base64 encoded service account JSON
	ProjectID    string
	VertexRegion string
}

// NewClients builds the storage and Vertex prediction clients from a service account
func NewClients(ctx context.Context, cfg GCPConfig) (*Clients, error) {
	if cfg.Credentials == "" {
		return nil, ErrGCPNotConfigured
	}

	decoded, err := base64.StdEncoding.DecodeString(cfg.Credentials)
	if err != nil {
		return nil, fmt.Errorf("failed to decode service account json: %w", err)
	}

	creds, err := google.CredentialsFromJSON(ctx, decoded, "https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return nil, fmt.Errorf("CredentialsFromJSON: %w", err)
	}
	credOpt := option.WithCredentials(creds)

	projectID := cfg.ProjectID
	if projectID == "" {
		projectID = creds.ProjectID
	}

	gcsClient, err := storage.NewClient(ctx, credOpt)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}

	// Vertex is regional
	vertexClient, err := aiplatform.NewPredictionClient(ctx, credOpt,
		option.WithEndpoint(fmt.Sprintf("%s-aiplatform.googleapis.com:443", cfg.VertexRegion)))
	if err != nil {
		gcsClient.Close()
		return nil, fmt.Errorf("vertex.NewPredictionClient: %w", err)
	}

	return &Clients{
		GCS:          gcsClient,
		Vertex:       vertexClient,
		ProjectID:    projectID,
		VertexRegion: cfg.VertexRegion,
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	c.GCS.Close()
	c.Vertex.Close()
}
