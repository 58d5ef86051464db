// Package server exposes the generation pipeline over HTTP. The generate
// endpoint streams pipeline progress as server-sent events and always
// terminates the stream with a complete or error event.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"appforge/internal/logging"
	"appforge/internal/orchestrate"
	"appforge/internal/progress"
	"appforge/internal/ratelimit"
	"appforge/internal/session"
	"appforge/internal/snapshot"
)

// generateRequest is the wire shape of POST /api/generate.
type generateRequest struct {
	Prompt    string `json:"prompt"`
	SessionID string `json:"sessionId,omitempty"`
	Context   struct {
		CurrentFiles map[string]string `json:"currentFiles"`
	} `json:"context"`
	ConversationHistory []historyTurn `json:"conversationHistory,omitempty"`
}

type historyTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Server hosts the generate and health endpoints.
type Server struct {
	orc     *orchestrate.Orchestrator
	limiter *ratelimit.Limiter
	http    *http.Server
}

// New builds the server around an orchestrator. limiter may be nil to
// disable request throttling.
func New(addr string, orc *orchestrate.Orchestrator, limiter *ratelimit.Limiter) *Server {
	s := &Server{orc: orc, limiter: limiter}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	logging.Info("http server listening", "addr", s.http.Addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow(clientKey(r)) {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Prompt == "" {
		http.Error(w, "prompt is required", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	reqID := uuid.NewString()
	logging.Info("generate request accepted", "request", reqID, "session", req.SessionID, "files", len(req.Context.CurrentFiles))

	sink := newSSESink(w, flusher)
	stream := progress.NewStreamer(sink)

	// The request context cancels in-flight completion calls when the
	// client disconnects; events already flushed stay flushed.
	result := s.orc.Run(r.Context(), orchestrate.Request{
		Prompt:    req.Prompt,
		SessionID: req.SessionID,
		Files:     snapshot.Snapshot(req.Context.CurrentFiles),
		History:   toMessages(req.ConversationHistory),
	}, stream)

	if result.Success {
		stream.Emit(progress.EventComplete, result)
	} else {
		stream.Emit(progress.EventError, result.Error)
	}
	stream.Close()
	logging.Info("generate request finished", "request", reqID, "success", result.Success, "edits", len(result.Edits))
}

// clientKey identifies a client for rate limiting: session ID when sent,
// remote address otherwise.
func clientKey(r *http.Request) string {
	if sid := r.Header.Get("X-Session-Id"); sid != "" {
		return sid
	}
	return r.RemoteAddr
}

func toMessages(turns []historyTurn) []session.Message {
	msgs := make([]session.Message, 0, len(turns))
	for _, t := range turns {
		msgs = append(msgs, session.Message{Role: t.Role, Content: t.Content})
	}
	return msgs
}

// sseSink serializes events as SSE data frames. Writes are locked so the
// delivery goroutine and terminal events never interleave frames.
type sseSink struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	failed  bool
}

func newSSESink(w http.ResponseWriter, flusher http.Flusher) *sseSink {
	return &sseSink{w: w, flusher: flusher}
}

func (s *sseSink) Deliver(e progress.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed {
		return
	}

	payload, err := json.Marshal(e)
	if err != nil {
		logging.Warn("failed to marshal progress event", "type", e.Type, "error", err)
		return
	}
	if _, err := s.w.Write(append(append([]byte("data: "), payload...), '\n', '\n')); err != nil {
		s.failed = true
		return
	}
	s.flusher.Flush()
}
