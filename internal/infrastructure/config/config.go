// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Provider names accepted by LLM_PROVIDER and EMBEDDING_PROVIDER.
const (
	ProviderNone   = "none"
	ProviderOllama = "ollama"
	ProviderGroq   = "groq"
	ProviderGenAI  = "genai"
	ProviderHash   = "hash"
)

// Config holds all application configuration.
type Config struct {
	Port         string
	LogLevel     string
	LogFormat    string // "json" or "console"
	CORSOrigins  []string
	KnowledgeDir string // empty disables directory ingest and watching
	HistoryPath  string // empty keeps forecast history in memory

	LLM        LLMConfig
	Embedding  EmbeddingConfig
	Generation GenerationConfig
	Feed       FeedConfig
}

// LLMConfig selects and configures the text generation provider.
type LLMConfig struct {
	Provider    string
	OllamaURL   string
	OllamaModel string
	GroqAPIKey  string
	GroqModel   string
	GroqBaseURL string
	GenAIAPIKey string
	GenAIModel  string
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider  string
	Model     string
	Dimension int
	CacheSize int
}

// GenerationConfig tunes summary generation.
type GenerationConfig struct {
	TopK        int
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
	RPS         float64
	MaxRetries  int
}

// FeedConfig controls the live snapshot feed.
type FeedConfig struct {
	Enabled  bool
	Interval time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "8000"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "json"),
		CORSOrigins:  splitList(getEnv("CORS_ORIGINS", "*")),
		KnowledgeDir: getEnv("KNOWLEDGE_DIR", ""),
		HistoryPath:  getEnv("HISTORY_DB_PATH", ""),
		LLM: LLMConfig{
			Provider:    strings.ToLower(getEnv("LLM_PROVIDER", ProviderNone)),
			OllamaURL:   getEnv("OLLAMA_URL", "http://localhost:11434"),
			OllamaModel: getEnv("OLLAMA_MODEL", "llama3.2"),
			GroqAPIKey:  getEnv("GROQ_API_KEY", ""),
			GroqModel:   getEnv("GROQ_MODEL", "llama-3.1-8b-instant"),
			GroqBaseURL: getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
			GenAIAPIKey: getEnv("GENAI_API_KEY", ""),
			GenAIModel:  getEnv("GENAI_MODEL", "gemini-2.5-flash"),
		},
		Embedding: EmbeddingConfig{
			Provider:  strings.ToLower(getEnv("EMBEDDING_PROVIDER", ProviderHash)),
			Model:     getEnv("EMBEDDING_MODEL", ""),
			Dimension: getEnvInt("EMBEDDING_DIMENSION", 384),
			CacheSize: getEnvInt("EMBEDDING_CACHE_SIZE", 1024),
		},
		Generation: GenerationConfig{
			TopK:        getEnvInt("SIMILARITY_TOP_K", 3),
			Timeout:     getEnvDuration("GENERATION_TIMEOUT", 30*time.Second),
			MaxTokens:   getEnvInt("GENERATION_MAX_TOKENS", 1024),
			Temperature: getEnvFloat("GENERATION_TEMPERATURE", 0.7),
			RPS:         getEnvFloat("GENERATION_RPS", 2),
			MaxRetries:  getEnvInt("GENERATION_MAX_RETRIES", 2),
		},
		Feed: FeedConfig{
			Enabled:  getEnvBool("FEED_ENABLED", true),
			Interval: getEnvDuration("FEED_INTERVAL", 30*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("PORT cannot be empty"))
	}
	if !slices.Contains([]string{"json", "console"}, c.LogFormat) {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat))
	}

	switch c.LLM.Provider {
	case ProviderNone, ProviderOllama:
	case ProviderGroq:
		if c.LLM.GroqAPIKey == "" {
			errs = append(errs, errors.New("GROQ_API_KEY is required when LLM_PROVIDER=groq"))
		}
	case ProviderGenAI:
		if c.LLM.GenAIAPIKey == "" {
			errs = append(errs, errors.New("GENAI_API_KEY is required when LLM_PROVIDER=genai"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLM.Provider))
	}

	switch c.Embedding.Provider {
	case ProviderHash, ProviderOllama:
	case ProviderGenAI:
		if c.LLM.GenAIAPIKey == "" {
			errs = append(errs, errors.New("GENAI_API_KEY is required when EMBEDDING_PROVIDER=genai"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown EMBEDDING_PROVIDER %q", c.Embedding.Provider))
	}
	if c.Embedding.Dimension <= 0 {
		errs = append(errs, errors.New("EMBEDDING_DIMENSION must be > 0"))
	}

	if c.Generation.TopK < 0 {
		errs = append(errs, errors.New("SIMILARITY_TOP_K must be >= 0"))
	}
	if c.Generation.Timeout <= 0 {
		errs = append(errs, errors.New("GENERATION_TIMEOUT must be > 0"))
	}
	if c.Generation.MaxTokens <= 0 {
		errs = append(errs, errors.New("GENERATION_MAX_TOKENS must be > 0"))
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		errs = append(errs, errors.New("GENERATION_TEMPERATURE must be within [0, 2]"))
	}
	if c.Generation.MaxRetries < 0 {
		errs = append(errs, errors.New("GENERATION_MAX_RETRIES must be >= 0"))
	}
	if c.Feed.Enabled && c.Feed.Interval <= 0 {
		errs = append(errs, errors.New("FEED_INTERVAL must be > 0"))
	}
	return errors.Join(errs...)
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

// getEnvDuration accepts Go durations ("45s") or bare seconds ("45").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
