package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
	Search   SearchConfig
	Pipeline PipelineConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	LogLevel           string
	CorsAllowedOrigins string
	WorkerQueueDriver  string // "inprocess" or "nats"
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	CloudA string // Gemini-shaped provider, key carried in the URL query
	CloudB string // DeepSeek-shaped provider, bearer token
	OpenAI string // generic openai-compatible endpoint, bearer token
}

type AIConfig struct {
	EmbeddingProvider  string // "cloud-a" or "ollama-local"
	EmbeddingDimension int
	LLMProvider        string // "cloud-a", "cloud-b", "ollama-local", "openai-compatible"
	LLMModel           string
	OllamaBaseURL      string
	OllamaLLMModel     string
	OllamaEmbedModel   string
	OpenAIBaseURL      string
	ProxyURL           string // used only by providers whose proxy flag is on
}

type SearchConfig struct {
	AccountKey string // which cached session token the search client authenticates as
}

type PipelineConfig struct {
	MaxConcurrentTasks int
	WorkerCount        int
	BufferSize         int
	SimilarityFloor    float64
	MinKeywordPool     int
	RelevanceThreshold float64
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			LogLevel:           getEnv("LOG_LEVEL", "info"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			WorkerQueueDriver:  getEnv("WORKER_QUEUE_DRIVER", "inprocess"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			CloudA: getEnv("CLOUD_A_API_KEY", ""),
			CloudB: getEnv("CLOUD_B_API_KEY", ""),
			OpenAI: getEnv("OPENAI_API_KEY", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider:  getEnv("EMBEDDING_PROVIDER", "cloud-a"),
			EmbeddingDimension: getEnvAsInt("EMBEDDING_DIMENSION", 768),
			LLMProvider:        getEnv("LLM_PROVIDER", "ollama-local"),
			LLMModel:           getEnv("LLM_MODEL", ""),
			OllamaBaseURL:      getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaLLMModel:     getEnv("OLLAMA_MODEL", "qwen2.5"),
			OllamaEmbedModel:   getEnv("OLLAMA_EMBEDDING_MODEL", "qwen3-embedding:8b-q8_0"),
			OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", ""),
			ProxyURL:           getEnv("HTTP_PROXY", ""),
		},
		Search: SearchConfig{
			AccountKey: getEnv("SEARCH_SESSION_ACCOUNT", "default"),
		},
		Pipeline: PipelineConfig{
			MaxConcurrentTasks: getEnvAsInt("SUPERVISOR_MAX_CONCURRENT_TASKS", 2),
			WorkerCount:        getEnvAsInt("PIPELINE_WORKER_COUNT", 3),
			BufferSize:         getEnvAsInt("PIPELINE_BUFFER_SIZE", 8),
			SimilarityFloor:    getEnvAsFloat("PIPELINE_SIMILARITY_FLOOR", 0.5),
			MinKeywordPool:     getEnvAsInt("PIPELINE_MIN_KEYWORD_POOL", 5),
			RelevanceThreshold: getEnvAsFloat("PIPELINE_RELEVANCE_THRESHOLD", 0.6),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}
