package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	EstimatorWords    = "words"
	EstimatorTiktoken = "tiktoken"
)

// DefaultSystemPrompt is the behavioral preamble sent ahead of every relay request.
const DefaultSystemPrompt = "You are a helpful AI mentor who provides guidance and answers questions about Finances and Financial Planning. Format important concepts with **double asterisks** and suggest relevant YouTube videos at the end."

type Config struct {
	// Server
	Port        string
	Env         string
	FrontendURL string

	// Relay
	RelayProvider  string
	RelayTimeout   time.Duration
	GeminiAPIKey   string
	GeminiModel    string
	GeminiEndpoint string
	OpenAIAPIKey   string
	OpenAIModel    string
	OpenAIBaseURL  string

	// Conversation
	HistoryTokenBudget int
	TokenEstimator     string
	SystemPrompt       string

	// Rate limiting (requests per minute per IP on the relay route)
	RateLimitPerMinute int

	// Logging
	LogLevel  string
	LogFormat string
	LogFile   string
}

// Load reads the environment (and a .env file if present). It never fails on
// a missing API key; call Validate to find out whether the relay can run.
func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "8080"),
		Env:         getEnvOrDefault("ENV", "development"),
		FrontendURL: getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),

		RelayProvider:  strings.ToLower(getEnvOrDefault("RELAY_PROVIDER", ProviderGemini)),
		RelayTimeout:   getEnvAsDurationOrDefault("RELAY_TIMEOUT", 60*time.Second),
		GeminiAPIKey:   firstEnv("GEMINI_API_KEY", "VITE_GEMINI_API_KEY"),
		GeminiModel:    getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiEndpoint: getEnvOrDefault("GEMINI_ENDPOINT", ""),
		OpenAIAPIKey:   firstEnv("OPENAI_API_KEY", "VITE_OPENAI_API_KEY"),
		OpenAIModel:    getEnvOrDefault("OPENAI_MODEL", "gpt-3.5-turbo"),
		OpenAIBaseURL:  getEnvOrDefault("OPENAI_BASE_URL", ""),

		HistoryTokenBudget: getEnvAsIntOrDefault("HISTORY_TOKEN_BUDGET", 1000),
		TokenEstimator:     strings.ToLower(getEnvOrDefault("TOKEN_ESTIMATOR", EstimatorWords)),
		SystemPrompt:       getEnvOrDefault("SYSTEM_PROMPT", DefaultSystemPrompt),

		RateLimitPerMinute: getEnvAsIntOrDefault("RATE_LIMIT_PER_MINUTE", 30),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),
		LogFile:   getEnvOrDefault("LOG_FILE", ""),
	}

	return cfg
}

// Validate reports the first configuration problem, if any.
func (c *Config) Validate() error {
	switch c.RelayProvider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("required environment variable GEMINI_API_KEY is not set")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("required environment variable OPENAI_API_KEY is not set")
		}
	default:
		return fmt.Errorf("RELAY_PROVIDER must be %q or %q, got %q", ProviderGemini, ProviderOpenAI, c.RelayProvider)
	}
	if c.HistoryTokenBudget <= 0 {
		return fmt.Errorf("HISTORY_TOKEN_BUDGET must be > 0")
	}
	switch c.TokenEstimator {
	case EstimatorWords, EstimatorTiktoken:
	default:
		return fmt.Errorf("TOKEN_ESTIMATOR must be %q or %q, got %q", EstimatorWords, EstimatorTiktoken, c.TokenEstimator)
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	return ""
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// getEnvAsDurationOrDefault accepts Go durations ("90s") or bare seconds ("90").
func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if n, err := strconv.Atoi(val); err == nil {
		return time.Duration(n) * time.Second
	}
	return defaultVal
}
