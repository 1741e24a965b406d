// Package config provides configuration for the page generator.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database for diagnostic traces
	DatabaseURL string

	// Direct completion upstream
	LLMBaseURL          string
	LLMAPIKey           string
	Model               string
	MaxCompletionTokens int
	SystemPrompt        string
	LLMTimeout          time.Duration

	// Stateful run upstream
	AssistantURL     string
	AssistantID      string
	AssistantModel   string
	RunPollInterval  time.Duration
	RunMaxPolls      int
	AssistantTimeout time.Duration

	// Request limits
	ConversionTimeout time.Duration
	ProgressBuffer    int
	MaxPromptChars    int

	// Admission policy
	AllowedModels []string
	PolicyFile    string

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		HTTPPort:            getEnvInt("HTTP_PORT", 8080),
		DatabaseURL:         getEnv("DATABASE_URL", "file:pagegen.db?cache=shared&mode=rwc"),
		LLMBaseURL:          getEnv("LLM_BASE_URL", "https://api.openai.com"),
		LLMAPIKey:           getEnv("LLM_API_KEY", ""),
		Model:               getEnv("LLM_MODEL", "gpt-4o"),
		MaxCompletionTokens: getEnvInt("LLM_MAX_COMPLETION_TOKENS", 16000),
		SystemPrompt:        getEnv("LLM_SYSTEM_PROMPT", ""),
		LLMTimeout:          time.Duration(getEnvInt("LLM_TIMEOUT_MS", 0)) * time.Millisecond,
		AssistantURL:        getEnv("ASSISTANT_URL", ""),
		AssistantID:         getEnv("ASSISTANT_ID", ""),
		AssistantModel:      getEnv("ASSISTANT_MODEL", ""),
		RunPollInterval:     time.Duration(getEnvInt("RUN_POLL_INTERVAL_MS", 1000)) * time.Millisecond,
		RunMaxPolls:         getEnvInt("RUN_MAX_POLLS", 60),
		AssistantTimeout:    time.Duration(getEnvInt("ASSISTANT_TIMEOUT_MS", 30000)) * time.Millisecond,
		ConversionTimeout:   time.Duration(getEnvInt("CONVERSION_TIMEOUT_MS", 300000)) * time.Millisecond,
		ProgressBuffer:      getEnvInt("PROGRESS_BUFFER", 16),
		MaxPromptChars:      getEnvInt("MAX_PROMPT_CHARS", 100000),
		AllowedModels:       getEnvList("LLM_ALLOWED_MODELS"),
		PolicyFile:          getEnv("POLICY_FILE", ""),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
	}
	if cfg.AssistantModel == "" {
		cfg.AssistantModel = cfg.Model
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
