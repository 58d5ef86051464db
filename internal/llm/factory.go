package llm

import (
	"context"
	"fmt"
	"strings"

	"appforge/internal/config"
	"appforge/internal/logging"
)

// New creates a completion client from configuration, wrapped in a circuit
// breaker. modelID overrides the provider default when non-empty.
func New(ctx context.Context, cfg *config.Config, modelID string) (Client, error) {
	retry := RetryConfig{
		MaxRetries: cfg.API.Retry.MaxRetries,
		RetryDelay: cfg.API.Retry.RetryDelay,
		MaxDelay:   cfg.API.Retry.MaxDelay,
	}

	provider := cfg.API.Provider
	if provider == "" {
		provider = detectProvider(modelID)
	}

	logging.Debug("creating completion client", "provider", provider, "model", modelID)

	var (
		client Client
		err    error
	)
	switch provider {
	case "gemini":
		client, err = NewGeminiClient(ctx, cfg.API.GeminiKey, modelID, retry)
	case "ollama":
		client, err = NewOllamaClient(OllamaConfig{
			BaseURL:     cfg.API.OllamaBaseURL,
			APIKey:      cfg.API.OllamaKey,
			Model:       modelID,
			HTTPTimeout: cfg.API.Retry.HTTPTimeout,
			Retry:       retry,
		})
	case "anthropic":
		client, err = NewAnthropicClient(AnthropicConfig{
			APIKey:      cfg.API.AnthropicKey,
			BaseURL:     cfg.API.AnthropicBaseURL,
			Model:       modelID,
			Retry:       retry,
			HTTPTimeout: cfg.API.Retry.HTTPTimeout,
		})
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
	if err != nil {
		return nil, err
	}

	threshold := cfg.API.BreakerThreshold
	if threshold <= 0 {
		threshold = 5
	}
	return WithBreaker(client, NewCircuitBreaker(threshold, cfg.API.BreakerReset)), nil
}

// detectProvider guesses the provider from the model name.
func detectProvider(modelID string) string {
	lower := strings.ToLower(modelID)

	if strings.HasPrefix(lower, "claude") {
		return "anthropic"
	}
	if strings.HasPrefix(lower, "gemini") {
		return "gemini"
	}

	// Common open-source model prefixes, typically served by Ollama.
	ollamaPrefixes := []string{
		"llama", "qwen", "deepseek", "codellama", "mistral", "phi", "gemma",
		"starcoder", "wizardcoder", "openchat", "tinyllama",
	}
	for _, prefix := range ollamaPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return "ollama"
		}
	}

	return "anthropic"
}

// breakerClient wraps a Client with a circuit breaker. A tripped breaker
// rejects calls immediately so callers fall to their degraded paths.
type breakerClient struct {
	inner   Client
	breaker *CircuitBreaker
}

// WithBreaker wraps client with the given circuit breaker.
func WithBreaker(client Client, breaker *CircuitBreaker) Client {
	return &breakerClient{inner: client, breaker: breaker}
}

func (b *breakerClient) Complete(ctx context.Context, req CompletionRequest) (*StreamingResponse, error) {
	if !b.breaker.Allow() {
		return nil, ErrCircuitOpen
	}

	resp, err := b.inner.Complete(ctx, req)
	if err != nil {
		b.breaker.RecordFailure()
		return nil, err
	}

	b.breaker.RecordSuccess()
	return resp, nil
}

func (b *breakerClient) Model() string {
	return b.inner.Model()
}

func (b *breakerClient) Close() error {
	return b.inner.Close()
}
