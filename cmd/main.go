package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatdesk-backend/internal/api"
	"chatdesk-backend/internal/api/routes"
	v1 "chatdesk-backend/internal/api/routes/v1"
	"chatdesk-backend/internal/assistant/agents"
	"chatdesk-backend/internal/assistant/workflow"
	"chatdesk-backend/internal/auth"
	"chatdesk-backend/internal/chatexport"
	"chatdesk-backend/internal/config"
	"chatdesk-backend/internal/dashboard"
	"chatdesk-backend/internal/libraries"
	llmHandlers "chatdesk-backend/internal/llm_handlers"
	"chatdesk-backend/internal/repo"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}
	cfg := config.Load()

	// Connect to database
	if err := config.ConnectDB(cfg); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer config.CloseDB()

	// Run migrations
	if err := config.MigrateAllModels(config.DB, cfg.Migrate); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	ctx := context.Background()

	// GCP is optional: without credentials there is no Vertex provider and no export archive
	gcp, err := libraries.NewClients(ctx, libraries.GCPConfig{
		Credentials:  cfg.GCPCredentials,
		ProjectID:    cfg.GCPProjectID,
		VertexRegion: cfg.GCPVertexLocation,
	})
	if errors.Is(err, libraries.ErrGCPNotConfigured) {
		log.Println("GCP credentials not set, Vertex and export archiving disabled")
	} else if err != nil {
		log.Fatalf("failed to init gcp clients: %v", err)
	}
	defer gcp.Close()

	llmClient, err := newLLMClient(ctx, cfg, gcp)
	if err != nil {
		log.Fatalf("Failed to initialize LLM client (%s): %v", cfg.LLMProvider, err)
	}
	llmClient = llmHandlers.NewRateLimitedClient(llmClient, cfg.LLMRatePerMin)

	broker := libraries.NewBroker()
	defer broker.Close()
	hub := libraries.NewHub(broker)
	go hub.Run()
	defer hub.Stop()

	notifier := repo.NewNotifier(config.DB, broker)
	profileRepo := repo.NewProfileRepository(config.DB, notifier)
	chatRepo := repo.NewChatRepository(config.DB, notifier)
	messageRepo := repo.NewMessageRepository(config.DB, notifier)

	authService := auth.NewService(profileRepo, repo.NewSessionRepository(config.DB), cfg.SessionTTL)
	if err := authService.EnsureAdmin(cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Fatal("Failed to create admin account:", err)
	}
	go purgeSessions(authService)

	dashboardService := dashboard.NewService(repo.NewStatsRepository(config.DB), time.Local)

	var archiver *chatexport.Archiver
	if gcp != nil {
		archiver = chatexport.NewArchiver(chatexport.NewGCSUploader(gcp.GCS, cfg.ExportBucket), cfg.ExportBucket)
	}

	deps := &v1.Deps{
		DB:        config.DB,
		Notifier:  notifier,
		Hub:       hub,
		Auth:      authService,
		Workflow:  workflow.NewWorkflow(chatRepo, messageRepo, agents.NewAgent(llmClient)),
		Dashboard: dashboardService,
		Refresher: dashboard.NewRefresher(dashboardService, broker, cfg.DashboardRefresh),
		Archiver:  archiver,
	}

	// Create and configure Fiber app
	app := api.NewServer(cfg)

	// Register routes
	routes.Register(app, deps)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("shutting down")
		if err := app.Shutdown(); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}()

	// Start server
	if err := api.StartServer(app, cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

func newLLMClient(ctx context.Context, cfg *config.Config, gcp *libraries.Clients) (llmHandlers.Client, error) {
	llmCfg := llmHandlers.Config{
		Provider: llmHandlers.Provider(cfg.LLMProvider),
		Model:    cfg.LLMModel,
	}

	switch llmCfg.Provider {
	case llmHandlers.ProviderGroq:
		llmCfg.APIKey = cfg.GroqAPIKey
		llmCfg.BaseURL = cfg.GroqBaseURL
	case llmHandlers.ProviderOpenAI:
		llmCfg.APIKey = cfg.OpenAIAPIKey
	case llmHandlers.ProviderGemini:
		llmCfg.APIKey = cfg.GeminiAPIKey
	case llmHandlers.ProviderVertexAnthropic:
		if gcp == nil {
			return nil, libraries.ErrGCPNotConfigured
		}
		llmCfg.Prediction = gcp.Vertex
		llmCfg.ProjectID = gcp.ProjectID
		llmCfg.Location = gcp.VertexRegion
	}

	return llmHandlers.New(ctx, llmCfg)
}

func purgeSessions(authService *auth.Service) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for range ticker.C {
		if n, err := authService.PurgeExpired(); err != nil {
			log.Printf("failed to purge sessions: %v", err)
		} else if n > 0 {
			log.Printf("purged %d expired sessions", n)
		}
	}
}
