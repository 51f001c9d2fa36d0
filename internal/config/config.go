package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	GinMode     string
	CORSOrigins []string

	// Provider credentials. Resolved here but validated lazily at first
	// use: a missing key is a per-request configuration fault, not a
	// startup failure.
	NvidiaAPIKey     string
	OpenRouterAPIKey string
	GeminiAPIKey     string

	// Model routing
	PrimaryModel   string
	ChatTimeoutSec int

	// Provider endpoints (OpenAI-compatible chat completions)
	NvidiaEndpoint     string
	OpenRouterEndpoint string
	GeminiEndpoint     string

	// OpenRouter identification headers
	AppReferer string
	AppTitle   string

	// Retrieval/ingestion
	MaxChunkSize     int
	VectorDimensions int
	RetrievalTopK    int
	HistoryLimit     int

	// Quota
	DailyRequestLimit int
	QuotaKeyHeader    string

	// Embeddings configuration
	EmbeddingsProvider    string // "hash" (default, deterministic local), "google"
	GoogleEmbeddingsModel string // e.g., "text-embedding-004"

	// Redis Configuration (HTTP rate limiting)
	RedisURL      string
	RedisPassword string
	RedisDB       int
	RedisEnabled  bool

	RateLimitReqs   int
	RateLimitWindow int
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8000"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000"), ","),

		NvidiaAPIKey:     getEnv("NVIDIA_API_KEY", ""),
		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),

		PrimaryModel:   getEnv("PRIMARY_MODEL", "meta/llama-3.1-405b-instruct"),
		ChatTimeoutSec: getEnvInt("CHAT_TIMEOUT", 60),

		NvidiaEndpoint:     getEnv("NVIDIA_API_URL", "https://integrate.api.nvidia.com/v1/chat/completions"),
		OpenRouterEndpoint: getEnv("OPENROUTER_API_URL", "https://openrouter.ai/api/v1/chat/completions"),
		GeminiEndpoint:     getEnv("GEMINI_API_URL", "https://generativelanguage.googleapis.com/v1beta/openai/chat/completions"),

		AppReferer: getEnv("APP_REFERER", "http://localhost:5173"),
		AppTitle:   getEnv("APP_TITLE", "Noddy AI"),

		MaxChunkSize:     getEnvInt("MAX_CHUNK_SIZE", 1000),
		VectorDimensions: getEnvInt("VECTOR_DIM", 768),
		RetrievalTopK:    getEnvInt("RETRIEVAL_TOP_K", 4),
		HistoryLimit:     getEnvInt("HISTORY_LIMIT", 10),

		DailyRequestLimit: getEnvInt("DAILY_REQUEST_LIMIT", 100),
		QuotaKeyHeader:    getEnv("QUOTA_KEY_HEADER", "X-Quota-Key"),

		EmbeddingsProvider:    getEnv("EMBEDDINGS_PROVIDER", "hash"),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisEnabled:  getEnvBool("REDIS_ENABLED", false),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),
	}

	if cfg.MaxChunkSize <= 0 {
		return nil, fmt.Errorf("MAX_CHUNK_SIZE must be positive")
	}

	if cfg.VectorDimensions <= 0 {
		return nil, fmt.Errorf("VECTOR_DIM must be positive")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
