package llm

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"appforge/internal/logging"
)

// GeminiClient implements Client on top of the Google Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
	retry  RetryConfig
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(ctx context.Context, apiKey, model string, retry RetryConfig) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if retry.MaxRetries == 0 {
		retry = DefaultRetryConfig()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		model:  model,
		retry:  retry,
	}, nil
}

// Model returns the default model name.
func (c *GeminiClient) Model() string {
	return c.model
}

// Close is a no-op; the genai client needs no explicit teardown.
func (c *GeminiClient) Close() error {
	return nil
}

// Complete sends a completion request with retry on transient failures.
func (c *GeminiClient) Complete(ctx context.Context, req CompletionRequest) (*StreamingResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := CalculateBackoff(c.retry.RetryDelay, attempt-1, c.retry.MaxDelay)
			logging.Info("retrying Gemini request", "attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := c.doStream(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !IsRetryableError(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("Gemini completion failed after %d attempts: %w", c.retry.MaxRetries+1, lastErr)
}

func (c *GeminiClient) doStream(ctx context.Context, req CompletionRequest) (*StreamingResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	temperature := req.Temperature
	config := &genai.GenerateContentConfig{
		Temperature: &temperature,
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = req.MaxTokens
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	contents := []*genai.Content{
		{Role: genai.RoleUser, Parts: []*genai.Part{genai.NewPartFromText(req.Prompt)}},
	}

	iter := c.client.Models.GenerateContentStream(ctx, model, contents, config)

	chunks := make(chan Chunk, 10)
	done := make(chan struct{})

	go func() {
		defer close(chunks)
		defer close(done)

		for resp, err := range iter {
			if err != nil {
				select {
				case chunks <- Chunk{Error: err, Done: true}:
				case <-ctx.Done():
				}
				return
			}
			if resp == nil {
				break
			}

			chunk := geminiChunk(resp)

			select {
			case chunks <- chunk:
			case <-ctx.Done():
				return
			}

			if chunk.Done {
				return
			}
		}

		select {
		case chunks <- Chunk{Done: true}:
		case <-ctx.Done():
		}
	}()

	return &StreamingResponse{Chunks: chunks, Done: done}, nil
}

// geminiChunk converts a Gemini stream response into a Chunk.
func geminiChunk(resp *genai.GenerateContentResponse) Chunk {
	chunk := Chunk{}

	if resp.UsageMetadata != nil {
		chunk.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		chunk.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	if len(resp.Candidates) == 0 {
		chunk.Done = true
		return chunk
	}

	candidate := resp.Candidates[0]
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part != nil && part.Text != "" && !part.Thought {
				chunk.Text += part.Text
			}
		}
	}

	if candidate.FinishReason != "" {
		chunk.Done = true
	}

	return chunk
}
