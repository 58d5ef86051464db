package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateBackoffBounds(t *testing.T) {
	base := 100 * time.Millisecond
	max := 1 * time.Second

	for attempt := 0; attempt < 8; attempt++ {
		d := CalculateBackoff(base, attempt, max)
		assert.GreaterOrEqual(t, d, base)
		// Capped delay plus at most a quarter of jitter.
		assert.LessOrEqual(t, d, max+max/4)
	}
}

func TestCircuitBreakerTripsAndRecovers(t *testing.T) {
	cb := NewCircuitBreaker(2, 20*time.Millisecond)
	assert.True(t, cb.Allow())

	cb.RecordFailure()
	assert.Equal(t, BreakerClosed, cb.State())
	cb.RecordFailure()
	assert.Equal(t, BreakerOpen, cb.State())
	assert.False(t, cb.Allow())

	time.Sleep(30 * time.Millisecond)
	assert.True(t, cb.Allow())
	assert.Equal(t, BreakerHalfOpen, cb.State())

	cb.RecordSuccess()
	assert.Equal(t, BreakerClosed, cb.State())
	assert.True(t, cb.Allow())
}

func TestIsRetryableAPIError(t *testing.T) {
	assert.True(t, IsRetryableAPIError(&APIError{StatusCode: 429}))
	assert.True(t, IsRetryableAPIError(&APIError{StatusCode: 503}))
	assert.False(t, IsRetryableAPIError(&APIError{StatusCode: 400}))
	assert.False(t, IsRetryableAPIError(errors.New("plain error")))
}

func TestIsRateLimit(t *testing.T) {
	assert.True(t, IsRateLimit(&APIError{StatusCode: 429}))
	assert.False(t, IsRateLimit(&APIError{StatusCode: 500}))
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, IsRetryableError(context.DeadlineExceeded))
	assert.True(t, IsRetryableError(&APIError{StatusCode: 502}))
	assert.True(t, IsRetryableError(errors.New("connection refused")))
	assert.False(t, IsRetryableError(errors.New("invalid request body")))
	assert.False(t, IsRetryableError(nil))
}

func TestCollect(t *testing.T) {
	chunks := make(chan Chunk, 3)
	chunks <- Chunk{Text: "hello ", InputTokens: 10}
	chunks <- Chunk{Text: "world", OutputTokens: 5, Done: true}
	close(chunks)
	done := make(chan struct{})
	close(done)

	sr := &StreamingResponse{Chunks: chunks, Done: done}
	resp, err := sr.Collect()
	require.NoError(t, err)
	assert.Equal(t, "hello world", resp.Text)
	assert.Equal(t, 10, resp.InputTokens)
	assert.Equal(t, 5, resp.OutputTokens)
}

func TestCollectTextHonorsCancellation(t *testing.T) {
	chunks := make(chan Chunk)
	done := make(chan struct{})
	sr := &StreamingResponse{Chunks: chunks, Done: done}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := CollectText(ctx, sr, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDetectProvider(t *testing.T) {
	assert.Equal(t, "anthropic", detectProvider("claude-sonnet-4-20250514"))
	assert.Equal(t, "gemini", detectProvider("gemini-2.5-pro"))
	assert.Equal(t, "ollama", detectProvider("llama3.2"))
}
