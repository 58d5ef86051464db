package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appforge/internal/config"
	"appforge/internal/edit"
	"appforge/internal/intent"
	"appforge/internal/llm"
	"appforge/internal/orchestrate"
	"appforge/internal/plan"
	"appforge/internal/ratelimit"
	"appforge/internal/session"
)

type fakeClient struct {
	text string
}

func (f *fakeClient) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.StreamingResponse, error) {
	chunks := make(chan llm.Chunk, 1)
	chunks <- llm.Chunk{Text: f.text, Done: true}
	close(chunks)
	done := make(chan struct{})
	close(done)
	return &llm.StreamingResponse{Chunks: chunks, Done: done}, nil
}

func (f *fakeClient) Model() string { return "fake" }
func (f *fakeClient) Close() error  { return nil }

func testServer(t *testing.T, limiter *ratelimit.Limiter) (*Server, *session.Store) {
	t.Helper()

	client := &fakeClient{text: "```tsx\n// Widget.tsx\nexport default function Widget() { return null; }\n```"}
	model := config.PhaseModel{Model: "fake"}
	cfg := config.PipelineConfig{
		MaxRetries:         0,
		FileCaps:           config.FileCaps{Update: 1, Fix: 1, Enhance: 2, Refactor: 3, Default: 1},
		RelevanceThreshold: 0.1,
		MaxContextFiles:    5,
	}
	sessions := session.NewStore(config.SessionConfig{MessageCap: 50, EditCap: 20, DuplicateThreshold: 0.8})

	orc := orchestrate.New(
		intent.NewClassifier(client, intent.NewCatalog(), model),
		plan.NewPlanner(client, model),
		edit.NewEditor(client, model, cfg.FileCaps),
		sessions,
		nil,
		cfg,
	)
	return New(":0", orc, limiter), sessions
}

type wireEvent struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content"`
}

func sseEvents(t *testing.T, body string) []wireEvent {
	t.Helper()

	var events []wireEvent
	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var e wireEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &e))
		events = append(events, e)
	}
	return events
}

func TestGenerateStreamsAndCompletes(t *testing.T) {
	srv, sessions := testServer(t, nil)
	defer sessions.Close()

	body := `{"prompt":"build a weather widget","context":{"currentFiles":{}}}`
	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(body))
	rec := httptest.NewRecorder()

	srv.http.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := sseEvents(t, rec.Body.String())
	require.NotEmpty(t, events)
	assert.Equal(t, "status", events[0].Type)
	assert.Equal(t, "complete", events[len(events)-1].Type)

	var result struct {
		Success   bool   `json:"success"`
		SessionID string `json:"sessionId"`
	}
	require.NoError(t, json.Unmarshal(events[len(events)-1].Content, &result))
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.SessionID)
}

func TestGenerateRejectsBadRequests(t *testing.T) {
	srv, sessions := testServer(t, nil)
	defer sessions.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(`{"prompt":""}`))
	rec = httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateRateLimited(t *testing.T) {
	srv, sessions := testServer(t, ratelimit.New(60, 1))
	defer sessions.Close()

	body := `{"prompt":"hello there friend","context":{"currentFiles":{}}}`

	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(body))
	req.Header.Set("X-Session-Id", "limited")
	rec := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(body))
	req.Header.Set("X-Session-Id", "limited")
	rec = httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestHealthz(t *testing.T) {
	srv, sessions := testServer(t, nil)
	defer sessions.Close()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
