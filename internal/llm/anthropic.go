package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"appforge/internal/logging"
)

// AnthropicConfig holds configuration for Anthropic-compatible APIs.
type AnthropicConfig struct {
	APIKey      string
	BaseURL     string // Default: "https://api.anthropic.com"
	Model       string
	MaxTokens   int32
	Retry       RetryConfig
	HTTPTimeout time.Duration
}

// AnthropicClient implements Client for Anthropic-compatible message APIs.
type AnthropicClient struct {
	config     AnthropicConfig
	httpClient *http.Client
}

// NewAnthropicClient creates a new Anthropic-compatible client.
func NewAnthropicClient(config AnthropicConfig) (*AnthropicClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if config.Model == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.anthropic.com"
	}
	if !strings.HasPrefix(config.BaseURL, "http://") && !strings.HasPrefix(config.BaseURL, "https://") {
		return nil, fmt.Errorf("invalid BaseURL: must start with http:// or https://")
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 4096
	}
	if config.Retry.MaxRetries == 0 {
		config.Retry = DefaultRetryConfig()
	}
	if config.HTTPTimeout == 0 {
		config.HTTPTimeout = 120 * time.Second
	}

	return &AnthropicClient{
		config: config,
		httpClient: &http.Client{
			Timeout: config.HTTPTimeout,
		},
	}, nil
}

// Model returns the default model name.
func (c *AnthropicClient) Model() string {
	return c.config.Model
}

// Close is a no-op; the HTTP client holds no persistent connection state
// worth tearing down explicitly.
func (c *AnthropicClient) Close() error {
	return nil
}

// Complete sends a completion request, retrying transient failures with
// exponential backoff before the stream starts.
func (c *AnthropicClient) Complete(ctx context.Context, req CompletionRequest) (*StreamingResponse, error) {
	body := c.buildRequestBody(req)

	var lastErr error
	for attempt := 0; attempt <= c.config.Retry.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := CalculateBackoff(c.config.Retry.RetryDelay, attempt-1, c.config.Retry.MaxDelay)
			logging.Info("retrying completion request", "attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := c.doStreamRequest(ctx, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !IsRetryableError(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("completion failed after %d attempts: %w", c.config.Retry.MaxRetries+1, lastErr)
}

func (c *AnthropicClient) buildRequestBody(req CompletionRequest) map[string]any {
	model := req.Model
	if model == "" {
		model = c.config.Model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.config.MaxTokens
	}

	body := map[string]any{
		"model":       model,
		"max_tokens":  maxTokens,
		"temperature": req.Temperature,
		"stream":      true,
		"messages": []map[string]any{
			{"role": "user", "content": req.Prompt},
		},
	}
	if req.System != "" {
		body["system"] = req.System
	}
	return body
}

func (c *AnthropicClient) doStreamRequest(ctx context.Context, body map[string]any) (*StreamingResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimSuffix(c.config.BaseURL, "/") + "/v1/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.config.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(msg)),
		}
	}

	chunks := make(chan Chunk, 10)
	done := make(chan struct{})

	go func() {
		defer close(chunks)
		defer close(done)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := scanner.Text()

			// SSE format: "data: {...}" or "data:{...}"
			var data string
			if strings.HasPrefix(line, "data: ") {
				data = strings.TrimPrefix(line, "data: ")
			} else if strings.HasPrefix(line, "data:") {
				data = strings.TrimPrefix(line, "data:")
			} else {
				continue
			}
			if data == "" || data == "[DONE]" {
				continue
			}

			var event map[string]any
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				logging.Debug("skipping malformed stream event", "error", err)
				continue
			}

			chunk, final := processAnthropicEvent(event)
			if chunk.Text == "" && chunk.Error == nil && !chunk.Done && chunk.OutputTokens == 0 && chunk.InputTokens == 0 {
				continue
			}

			select {
			case chunks <- chunk:
			case <-ctx.Done():
				return
			}

			if final {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			select {
			case chunks <- Chunk{Error: fmt.Errorf("stream read failed: %w", err), Done: true}:
			case <-ctx.Done():
			}
		}
	}()

	return &StreamingResponse{Chunks: chunks, Done: done}, nil
}

// processAnthropicEvent converts one SSE event into a Chunk. The second
// return value reports whether the stream is finished.
func processAnthropicEvent(event map[string]any) (Chunk, bool) {
	eventType, _ := event["type"].(string)

	switch eventType {
	case "content_block_delta":
		if delta, ok := event["delta"].(map[string]any); ok {
			if text, ok := delta["text"].(string); ok {
				return Chunk{Text: text}, false
			}
		}
		return Chunk{}, false

	case "message_start":
		if msg, ok := event["message"].(map[string]any); ok {
			if usage, ok := msg["usage"].(map[string]any); ok {
				if in, ok := usage["input_tokens"].(float64); ok {
					return Chunk{InputTokens: int(in)}, false
				}
			}
		}
		return Chunk{}, false

	case "message_delta":
		if usage, ok := event["usage"].(map[string]any); ok {
			if out, ok := usage["output_tokens"].(float64); ok {
				return Chunk{OutputTokens: int(out)}, false
			}
		}
		return Chunk{}, false

	case "message_stop":
		return Chunk{Done: true}, true

	case "error":
		msg := "stream error"
		if e, ok := event["error"].(map[string]any); ok {
			if m, ok := e["message"].(string); ok {
				msg = m
			}
		}
		return Chunk{Error: fmt.Errorf("%s", msg), Done: true}, true

	default:
		return Chunk{}, false
	}
}
