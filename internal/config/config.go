package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	ProviderOpenAI = "openai"
	ProviderVertex = "vertex"
)

type Config struct {
	Port           string
	DatabaseURL    string
	LogLevel       string
	RequestTimeout time.Duration

	// Local storage for downloaded documents
	StorageDir string

	// S3 archive of source documents
	S3Enabled         bool
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3BucketName      string
	S3UseSSL          bool

	// LLM
	LLMProvider      string
	OpenRouterAPIKey string
	LLMBaseURL       string
	TextModel        string
	VisionModel      string
	VertexProject    string
	VertexRegion     string
	LLMTimeout       time.Duration
	LLMMaxRetries    int
	LLMRetryDelay    time.Duration
	LLMRatePerSecond float64

	// Fetcher
	DownloadTimeout  time.Duration
	MaxDownloadBytes int64

	// Structured extraction
	MaxPromptChars int
}

func Load() (*Config, error) {
	provider := getEnv("LLM_PROVIDER", ProviderOpenAI)
	// OpenRouter prefixes model names with the vendor, Vertex does not
	defaultModel := "google/gemini-2.0-flash-001"
	if provider == ProviderVertex {
		defaultModel = "gemini-2.0-flash-001"
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		DatabaseURL:       getEnv("DATABASE_URL", "data/extractions.db"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		RequestTimeout:    getEnvAsDuration("REQUEST_TIMEOUT", 3*time.Minute),
		StorageDir:        getEnv("STORAGE_DIR", os.TempDir()),
		S3Enabled:         getEnv("S3_ENABLED", "false") == "true",
		S3Endpoint:        getEnv("S3_ENDPOINT", "localhost:9000"),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", "minioadmin"),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", "minioadmin"),
		S3BucketName:      getEnv("S3_BUCKET_NAME", "bills"),
		S3UseSSL:          getEnv("S3_USE_SSL", "false") == "true",
		LLMProvider:       provider,
		OpenRouterAPIKey:  getEnv("OPENROUTER_API_KEY", ""),
		LLMBaseURL:        getEnv("LLM_BASE_URL", "https://openrouter.ai/api/v1"),
		TextModel:         getEnv("TEXT_MODEL", defaultModel),
		VisionModel:       getEnv("VISION_MODEL", defaultModel),
		VertexProject:     getEnv("VERTEX_PROJECT", ""),
		VertexRegion:      getEnv("VERTEX_REGION", "us-central1"),
		LLMTimeout:        getEnvAsDuration("LLM_TIMEOUT", 90*time.Second),
		LLMMaxRetries:     getEnvAsInt("LLM_MAX_RETRIES", 3),
		LLMRetryDelay:     getEnvAsDuration("LLM_RETRY_BASE_DELAY", time.Second),
		LLMRatePerSecond:  getEnvAsFloat("LLM_REQUESTS_PER_SECOND", 2),
		DownloadTimeout:   getEnvAsDuration("DOWNLOAD_TIMEOUT", 30*time.Second),
		MaxDownloadBytes:  int64(getEnvAsInt("MAX_DOWNLOAD_BYTES", 20*1024*1024)),
		MaxPromptChars:    getEnvAsInt("MAX_PROMPT_CHARS", 400000),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the settings that have no usable default.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderOpenAI:
		if c.OpenRouterAPIKey == "" {
			return fmt.Errorf("OPENROUTER_API_KEY is required")
		}
	case ProviderVertex:
		if c.VertexProject == "" {
			return fmt.Errorf("VERTEX_PROJECT is required when LLM_PROVIDER=vertex")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}

	if c.MaxDownloadBytes <= 0 {
		return fmt.Errorf("MAX_DOWNLOAD_BYTES must be positive")
	}
	if c.MaxPromptChars <= 0 {
		return fmt.Errorf("MAX_PROMPT_CHARS must be positive")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
