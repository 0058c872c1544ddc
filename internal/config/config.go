package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string
	BackendAPIKey      string // API key for authenticating /v1 requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Gemini (image generation + Veo video operations)
	GeminiKey  string
	ImageModel string
	VideoModel string

	// OpenAI (optional — preferred provider for art-direction suggestions)
	OpenAIKey string

	// Object storage (GCS-style bucket for rendered videos)
	StorageBucket string
	StorageToken  string // OAuth bearer token; empty works against emulators/public buckets

	// Render pipeline
	RenderTempDir string

	// Batch worker (optional — requires DatabaseURL and RedisURL when enabled)
	WorkerEnabled     bool
	MaxConcurrentJobs int
	DatabaseURL       string
	RedisURL          string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:            getEnv("API_PORT", "8080"),
		BackendAPIKey:      getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
		GeminiKey:          getEnv("GEMINI_API_KEY", ""),
		ImageModel:         getEnv("GEMINI_IMAGE_MODEL", "gemini-3-pro-image-preview"),
		VideoModel:         getEnv("VEO_MODEL", "veo-3.1-fast-generate-preview"),
		OpenAIKey:          getEnv("OPENAI_API_KEY", ""),
		StorageBucket:      getEnv("GCS_BUCKET", ""),
		StorageToken:       getEnv("GCS_ACCESS_TOKEN", ""),
		RenderTempDir:      getEnv("RENDER_TEMP_DIR", "/tmp/typemotion"),
		WorkerEnabled:      getEnvBool("WORKER_ENABLED", false),
		MaxConcurrentJobs:  getEnvInt("MAX_CONCURRENT_JOBS", 3),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
	}

	// Validate required fields
	if cfg.StorageBucket == "" {
		return nil, fmt.Errorf("GCS_BUCKET is required")
	}

	// The batch pipeline needs a job store and a queue; the synchronous
	// /render path and the generation endpoints work without either.
	if cfg.WorkerEnabled && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when WORKER_ENABLED=true")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}
