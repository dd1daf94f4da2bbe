package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestFromLookup_Defaults(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(nil))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "openai", cfg.LLMProvider)
	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, 60*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, 20, cfg.DefaultCohortSize)
	assert.Equal(t, "", cfg.RedisAddr)
}

func TestFromLookup_GeminiModelDefault(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{
		"LLM_PROVIDER":   "Gemini",
		"GEMINI_API_KEY": "k",
	}))
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.LLMProvider)
	assert.Equal(t, "gemini-2.5-flash-lite", cfg.Model)
	assert.Equal(t, "k", cfg.GeminiAPIKey)
}

func TestFromLookup_Overrides(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{
		"MODEL":          "gpt-4o-mini",
		"SIM_BATCH_SIZE": "4",
		"LLM_TIMEOUT":    "15s",
		"LLM_RATE_LIMIT": "2.5",
		"REDIS_ADDR":     "localhost:6379",
		"REDIS_DB":       "3",
		"RESULT_TTL":     "24h",
	}))
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, 4, cfg.BatchSize)
	assert.Equal(t, 15*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 2.5, cfg.LLMRateLimit)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 24*time.Hour, cfg.ResultTTL)
}

func TestFromLookup_Invalid(t *testing.T) {
	for key, value := range map[string]string{
		"SIM_BATCH_SIZE":      "0",
		"LLM_TIMEOUT":         "soon",
		"LLM_RATE_LIMIT":      "fast",
		"DEFAULT_COHORT_SIZE": "-1",
	} {
		_, err := FromLookup(lookupFrom(map[string]string{key: value}))
		assert.Error(t, err, key)
	}
}
