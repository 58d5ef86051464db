// Package progress delivers typed pipeline events to a consumer-supplied
// sink. Emission is fire-and-forget: a slow or absent sink never blocks
// the pipeline.
package progress

import (
	"sync"
	"time"

	"appforge/internal/logging"
)

// EventType tags a progress event. The values are part of the wire
// contract with stream consumers and must not change.
type EventType string

const (
	EventStatus           EventType = "status"
	EventIntentAnalysis   EventType = "intent-analysis"
	EventContextBuilding  EventType = "context-building"
	EventPlanThinking     EventType = "plan-thinking"
	EventPlanComplete     EventType = "plan-complete"
	EventFileGeneration   EventType = "file-generation"
	EventSurgicalEdit     EventType = "surgical-edit"
	EventSurgicalThinking EventType = "surgical-thinking"
	EventErrorRecovery    EventType = "error-recovery"
	EventWarning          EventType = "warning"
	EventError            EventType = "error"
	EventComplete         EventType = "complete"
)

// Event is one write-once progress notification.
type Event struct {
	Type      EventType      `json:"type"`
	Content   any            `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Sink consumes events. Deliver must not be assumed fast; the streamer
// protects the pipeline from slow sinks.
type Sink interface {
	Deliver(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Deliver(e Event) { f(e) }

// Counters is a snapshot of cumulative progress totals.
type Counters struct {
	FilesCompleted     int `json:"filesCompleted"`
	ComponentsDetected int `json:"componentsDetected"`
	EventsEmitted      int `json:"eventsEmitted"`
	WarningCount       int `json:"warningCount"`
}

const bufferSize = 64

// Streamer buffers events between the pipeline and one sink. Emit never
// blocks: if the buffer is full the event is dropped with a log line,
// the pipeline keeps going.
type Streamer struct {
	events chan Event
	done   chan struct{}

	mu       sync.Mutex
	counters Counters
	closed   bool
}

// NewStreamer starts delivery to sink. A nil sink discards all events
// but still tracks counters. Callers must Close when the run ends.
func NewStreamer(sink Sink) *Streamer {
	s := &Streamer{
		events: make(chan Event, bufferSize),
		done:   make(chan struct{}),
	}
	go s.deliver(sink)
	return s
}

func (s *Streamer) deliver(sink Sink) {
	defer close(s.done)
	for e := range s.events {
		if sink != nil {
			sink.Deliver(e)
		}
	}
}

// Emit sends an event with the current timestamp.
func (s *Streamer) Emit(t EventType, content any) {
	s.EmitMeta(t, content, nil)
}

// EmitMeta sends an event carrying extra metadata. The closed check and
// the send happen under one lock, so an emit racing Close never sends on
// the closed channel.
func (s *Streamer) EmitMeta(t EventType, content any, meta map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.counters.EventsEmitted++
	switch t {
	case EventFileGeneration, EventSurgicalEdit:
		s.counters.FilesCompleted++
	case EventWarning:
		s.counters.WarningCount++
	}

	select {
	case s.events <- Event{Type: t, Content: content, Timestamp: time.Now(), Metadata: meta}:
	default:
		logging.Warn("progress buffer full, dropping event", "type", t)
	}
}

// ComponentDetected bumps the detected-component counter.
func (s *Streamer) ComponentDetected() {
	s.mu.Lock()
	s.counters.ComponentsDetected++
	s.mu.Unlock()
}

// Snapshot returns the current counter totals.
func (s *Streamer) Snapshot() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters
}

// Close flushes buffered events to the sink and stops delivery. Emit
// calls after Close are ignored.
func (s *Streamer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	close(s.events)
	<-s.done
}
