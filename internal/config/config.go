package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	LLMProvider   string
	Model         string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	GeminiAPIKey  string
	LLMTimeout    time.Duration
	LLMRateLimit  float64

	BatchSize         int
	DefaultCohortSize int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ResultTTL     time.Duration

	LogLevel string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary lookup function.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := &Config{
		Port:          get("PORT", "8080"),
		LLMProvider:   strings.ToLower(get("LLM_PROVIDER", "openai")),
		Model:         get("MODEL", ""),
		OpenAIAPIKey:  get("OPENAI_API_KEY", ""),
		OpenAIBaseURL: get("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		GeminiAPIKey:  get("GEMINI_API_KEY", ""),
		RedisAddr:     get("REDIS_ADDR", ""),
		RedisPassword: get("REDIS_PASSWORD", ""),
		LogLevel:      strings.ToLower(get("LOG_LEVEL", "info")),
	}

	var err error
	if cfg.LLMTimeout, err = time.ParseDuration(get("LLM_TIMEOUT", "60s")); err != nil {
		return nil, fmt.Errorf("invalid LLM_TIMEOUT: %w", err)
	}
	if cfg.ResultTTL, err = time.ParseDuration(get("RESULT_TTL", "0s")); err != nil {
		return nil, fmt.Errorf("invalid RESULT_TTL: %w", err)
	}
	if cfg.LLMRateLimit, err = strconv.ParseFloat(get("LLM_RATE_LIMIT", "0"), 64); err != nil {
		return nil, fmt.Errorf("invalid LLM_RATE_LIMIT: %w", err)
	}
	if cfg.BatchSize, err = strconv.Atoi(get("SIM_BATCH_SIZE", "10")); err != nil || cfg.BatchSize < 1 {
		return nil, fmt.Errorf("invalid SIM_BATCH_SIZE: %q", get("SIM_BATCH_SIZE", "10"))
	}
	if cfg.DefaultCohortSize, err = strconv.Atoi(get("DEFAULT_COHORT_SIZE", "20")); err != nil || cfg.DefaultCohortSize < 1 {
		return nil, fmt.Errorf("invalid DEFAULT_COHORT_SIZE: %q", get("DEFAULT_COHORT_SIZE", "20"))
	}
	if cfg.RedisDB, err = strconv.Atoi(get("REDIS_DB", "0")); err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	if cfg.Model == "" {
		cfg.Model = DefaultModel(cfg.LLMProvider)
	}

	return cfg, nil
}

func DefaultModel(provider string) string {
	if provider == "gemini" {
		return "gemini-2.5-flash-lite"
	}
	return "gpt-4o"
}
