package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds every environment driven setting of the server
type Config struct {
	Port string

	DBDriver string // "postgres" (default) or "sqlite"
	DBURL    string
	Migrate  bool
	SQLDebug bool

	LLMProvider   string // groq, openai, gemini or vertex_anthropic
	LLMModel      string
	LLMRatePerMin int

	GroqAPIKey   string
	GroqBaseURL  string
	OpenAIAPIKey string
	GeminiAPIKey string

	GCPCredentials    string // base64 encoded service account JSON
	GCPProjectID      string
	GCPVertexLocation string
	ClaudeVertexModel string
	ExportBucket      string

	AdminUsername string
	AdminPassword string

	SessionTTL       time.Duration
	DashboardRefresh time.Duration
	CORSOrigins      string
}

const (
	defaultGroqBaseURL = "https://api.groq.com/openai/v1"
	defaultGroqModel   = "llama3-70b-8192"
)

// Load reads the configuration from the process environment. Call godotenv.Load first to pick up a .env file.
func Load() *Config {
	cfg := &Config{
		Port:              getEnv("PORT", "3000"),
		DBDriver:          getEnv("DB_DRIVER", "postgres"),
		DBURL:             os.Getenv("DB_URL"),
		Migrate:           getBool("DB_MIGRATE", true),
		SQLDebug:          getBool("DB_DEBUG", false),
		LLMProvider:       getEnv("LLM_PROVIDER", "groq"),
		LLMModel:          os.Getenv("LLM_MODEL"),
		LLMRatePerMin:     getInt("LLM_RATE_PER_MIN", 20),
		GroqAPIKey:        os.Getenv("GROQ_API_KEY"),
		GroqBaseURL:       getEnv("GROQ_BASE_URL", defaultGroqBaseURL),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GCPCredentials:    os.Getenv("GCP_SERVICE_ACCOUNT_CREDENTIALS"),
		GCPProjectID:      os.Getenv("GOOGLE_CLOUD_PROJECT_ID"),
		GCPVertexLocation: getEnv("GOOGLE_CLOUD_VERTEXAI_LOCATION", "us-east5"),
		ClaudeVertexModel: getEnv("CLAUDE_VERTEX_MODEL", "claude-sonnet-4-5@20250929"),
		ExportBucket:      os.Getenv("EXPORT_BUCKET"),
		AdminUsername:     os.Getenv("ADMIN_USERNAME"),
		AdminPassword:     os.Getenv("ADMIN_PASSWORD"),
		SessionTTL:        getDuration("SESSION_TTL", 7*24*time.Hour),
		DashboardRefresh:  getDuration("DASHBOARD_REFRESH", time.Minute),
		CORSOrigins:       getEnv("CORS_ORIGINS", "*"),
	}

	if cfg.LLMModel == "" {
		switch cfg.LLMProvider {
		case "groq":
			cfg.LLMModel = defaultGroqModel
		case "openai":
			cfg.LLMModel = "gpt-4.1"
		case "gemini":
			cfg.LLMModel = getEnv("GEMINI_MODEL_ID", "gemini-2.0-flash")
		case "vertex_anthropic":
			cfg.LLMModel = cfg.ClaudeVertexModel
		}
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return b
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
