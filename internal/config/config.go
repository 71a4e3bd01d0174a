package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Ai        AIConfig
	Retrieval RetrievalConfig
	Telemetry TelemetryConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	InboundTopic       string
	EventsTopic        string
}

type AIConfig struct {
	LLMProvider       string // "ollama"
	EmbeddingProvider string // "ollama"
	OllamaBaseURL     string
	ChatModel         string
	EmbeddingModel    string
	SystemProfile     string
}

type RetrievalConfig struct {
	ResearchDir  string
	ChunkSize    int
	ChunkOverlap int
	TopK         int
	Threshold    float64
	Timeout      time.Duration
}

type TelemetryConfig struct {
	Command      string
	Interval     time.Duration
	RingCapacity int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			InboundTopic:       getEnv("ORCHESTRATOR_INBOUND_TOPIC_NAME", "ORCHESTRATOR_INBOUND"),
			EventsTopic:        getEnv("UI_EVENTS_TOPIC_NAME", "UI_EVENTS"),
		},
		Ai: AIConfig{
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			ChatModel:         getEnv("LLM_MODEL", "llama3.1:8b"),
			EmbeddingModel:    getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			SystemProfile:     getEnv("SYSTEM_PROFILE", ""),
		},
		Retrieval: RetrievalConfig{
			ResearchDir:  getEnv("RESEARCH_DIR", ""),
			ChunkSize:    getEnvAsInt("RAG_CHUNK_SIZE", 1500),
			ChunkOverlap: getEnvAsInt("RAG_CHUNK_OVERLAP", 200),
			TopK:         getEnvAsInt("RAG_TOP_K", 5),
			Threshold:    getEnvAsFloat("RAG_SCORE_THRESHOLD", 0.35),
			Timeout:      getEnvAsDuration("RAG_QUERY_TIMEOUT_MS", 5000),
		},
		Telemetry: TelemetryConfig{
			Command:      getEnv("GPU_QUERY_COMMAND", "nvidia-smi"),
			Interval:     getEnvAsDuration("TELEMETRY_INTERVAL_MS", 1500),
			RingCapacity: getEnvAsInt("TELEMETRY_RING_CAPACITY", 60),
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

func getEnvAsDuration(key string, fallbackMs int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallbackMs)) * time.Millisecond
}
