// Package llm is the provider-neutral chat completion gateway. A Gateway is
// built once from configuration and is safe for concurrent use.
package llm

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/BerylCAtieno/synthsense-agent/internal/config"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrConfiguration marks a gateway that cannot be built: unknown provider or
// missing credentials.
var ErrConfiguration = errors.New("llm configuration error")

// ProviderError wraps a failed call to the upstream provider.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider error: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single chat turn. History holds earlier turns, oldest first,
// and is sent between the system prompt and the user prompt.
type Request struct {
	System      string
	User        string
	History     []Message
	Temperature float32
	MaxTokens   int
}

type Gateway interface {
	Complete(ctx context.Context, req Request) (string, error)
	// Stream delivers the reply in fragments. The fragment channel is closed
	// when the reply ends; the error channel carries at most one error and is
	// closed after the fragment channel.
	Stream(ctx context.Context, req Request) (<-chan string, <-chan error)
}

// New resolves the configured provider and returns a gateway wrapped with
// the per-call timeout and rate limit from cfg.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Gateway, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		base Gateway
		err  error
	)
	switch cfg.LLMProvider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("%w: GEMINI_API_KEY is required for gemini provider", ErrConfiguration)
		}
		base, err = NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.Model)
	case ProviderOpenAI, "":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY is required for openai provider", ErrConfiguration)
		}
		base = NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.Model)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrConfiguration, cfg.LLMProvider)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("llm gateway ready",
		zap.String("provider", cfg.LLMProvider),
		zap.String("model", cfg.Model),
		zap.Duration("timeout", cfg.LLMTimeout),
		zap.Float64("rate_limit", cfg.LLMRateLimit))

	return WithLimits(base, cfg.LLMTimeout, cfg.LLMRateLimit), nil
}

// Collect drains a stream into a single string.
func Collect(fragments <-chan string, errs <-chan error) (string, error) {
	var out []byte
	for f := range fragments {
		out = append(out, f...)
	}
	if err := <-errs; err != nil {
		return string(out), err
	}
	return string(out), nil
}
