// Package llm provides the text-completion client used by every pipeline
// phase. Providers stream raw text chunks over a channel; chunk boundaries
// carry no meaning beyond streaming UX.
package llm

import "context"

// CompletionRequest describes a single completion call.
type CompletionRequest struct {
	// System is the system instruction, passed via the provider's native
	// system parameter.
	System string

	// Prompt is the user message.
	Prompt string

	// Model identifies the model; empty uses the client default.
	Model string

	// Temperature for generation. Phases pin this low to keep structured
	// output parseable.
	Temperature float32

	// MaxTokens caps the output length (0 uses the provider default).
	MaxTokens int32
}

// Client defines the interface for completion providers.
type Client interface {
	// Complete sends a request and returns a streaming response.
	Complete(ctx context.Context, req CompletionRequest) (*StreamingResponse, error)

	// Model returns the default model name.
	Model() string

	// Close releases the underlying connection.
	Close() error
}

// StreamingResponse represents a streaming completion.
type StreamingResponse struct {
	// Chunks receives response chunks; closed when the response ends.
	Chunks <-chan Chunk

	// Done is closed when the response is complete.
	Done <-chan struct{}
}

// Chunk represents a single piece of a streaming response.
type Chunk struct {
	// Text contains the text content of this chunk.
	Text string

	// Error contains any error that occurred mid-stream.
	Error error

	// Done indicates this is the final chunk.
	Done bool

	// InputTokens and OutputTokens carry usage metadata when the provider
	// reports it (typically on the final chunk).
	InputTokens  int
	OutputTokens int
}

// Response is a fully collected completion.
type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Collect drains all chunks from a streaming response into a single Response.
func (sr *StreamingResponse) Collect() (*Response, error) {
	resp := &Response{}

	for chunk := range sr.Chunks {
		if chunk.Error != nil {
			return nil, chunk.Error
		}

		resp.Text += chunk.Text

		if chunk.InputTokens > 0 {
			resp.InputTokens = chunk.InputTokens
		}
		if chunk.OutputTokens > 0 {
			resp.OutputTokens += chunk.OutputTokens
		}
	}

	return resp, nil
}

// CollectText streams a response to completion, forwarding each text chunk
// to onText (may be nil), and returns the concatenated text.
func CollectText(ctx context.Context, sr *StreamingResponse, onText func(string)) (string, error) {
	var text string

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case chunk, ok := <-sr.Chunks:
			if !ok {
				return text, nil
			}
			if chunk.Error != nil {
				return "", chunk.Error
			}
			if chunk.Text != "" {
				text += chunk.Text
				if onText != nil {
					onText(chunk.Text)
				}
			}
			if chunk.Done {
				return text, nil
			}
		}
	}
}
