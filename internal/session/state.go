package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"appforge/internal/config"
	"appforge/internal/snapshot"
)

// Message is one conversation turn.
type Message struct {
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// FileEdit records one applied change for the recent-edit history.
type FileEdit struct {
	FileName    string    `json:"fileName"`
	EditType    string    `json:"editType"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// duplicateLookback is how many recent user messages a new request is
// compared against.
const duplicateLookback = 3

// preferenceTriggers maps a preference category to keyword -> inferred
// value. First matching keyword in a message wins for that category;
// later messages overwrite the category.
var preferenceTriggers = map[string]map[string]string{
	"styling": {
		"tailwind":          "tailwind",
		"styled-components": "styled-components",
		"css modules":       "css-modules",
		"sass":              "sass",
		"inline styles":     "inline",
	},
	"componentStyle": {
		"functional component": "functional",
		"class component":      "class",
		"hooks":                "functional",
	},
	"stateManagement": {
		"redux":       "redux",
		"zustand":     "zustand",
		"mobx":        "mobx",
		"context api": "context",
	},
	"testing": {
		"jest":            "jest",
		"vitest":          "vitest",
		"testing library": "testing-library",
		"cypress":         "cypress",
	},
}

// State is the conversation state for one session. All methods are safe
// for concurrent use; each session carries its own lock so independent
// sessions never contend.
type State struct {
	mu sync.Mutex

	id           string
	messages     *ring[Message]
	recentEdits  *ring[FileEdit]
	components   []string
	componentSet map[string]struct{}
	preferences  map[string]string

	current snapshot.Snapshot

	started      time.Time
	lastActivity time.Time

	duplicateThreshold float64
}

// NewState creates session state with the configured ring caps.
func NewState(id string, cfg config.SessionConfig) *State {
	now := time.Now()
	return &State{
		id:                 id,
		messages:           newRing[Message](cfg.MessageCap),
		recentEdits:        newRing[FileEdit](cfg.EditCap),
		componentSet:       make(map[string]struct{}),
		preferences:        make(map[string]string),
		started:            now,
		lastActivity:       now,
		duplicateThreshold: cfg.DuplicateThreshold,
	}
}

// ID returns the session identifier.
func (s *State) ID() string { return s.id }

// AddMessage appends a turn, evicting the oldest once the cap is hit.
// User messages are scanned for preference keyword triggers.
func (s *State) AddMessage(role, content string, metadata map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages.Push(Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
		Metadata:  metadata,
	})
	s.lastActivity = time.Now()

	if role == "user" {
		s.inferPreferences(content)
	}
}

// inferPreferences sets at most one value per category per message.
// Caller holds the lock.
func (s *State) inferPreferences(content string) {
	lower := strings.ToLower(content)
	for category, triggers := range preferenceTriggers {
		for keyword, value := range triggers {
			if strings.Contains(lower, keyword) {
				s.preferences[category] = value
				break
			}
		}
	}
}

// RecordFileEdit appends to the recent-edit history and unions any newly
// seen component names, preserving first-appearance order.
func (s *State) RecordFileEdit(fileName, editType, description string, components ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recentEdits.Push(FileEdit{
		FileName:    fileName,
		EditType:    editType,
		Description: description,
		Timestamp:   time.Now(),
	})
	for _, name := range components {
		if _, seen := s.componentSet[name]; seen || name == "" {
			continue
		}
		s.componentSet[name] = struct{}{}
		s.components = append(s.components, name)
	}
	s.lastActivity = time.Now()
}

// UpdateContext replaces the session's view of the current files.
func (s *State) UpdateContext(files snapshot.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = files.Clone()
	s.lastActivity = time.Now()
}

// ConversationContext renders a bounded plain-text summary of the session
// for embedding in planning prompts.
func (s *State) ConversationContext() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	if len(s.components) > 0 {
		fmt.Fprintf(&b, "Known components: %s\n", strings.Join(s.components, ", "))
	}
	if edits := s.recentEdits.Items(); len(edits) > 0 {
		b.WriteString("Recent edits:\n")
		for _, e := range edits {
			fmt.Fprintf(&b, "- %s (%s): %s\n", e.FileName, e.EditType, e.Description)
		}
	}
	if msgs := s.messages.Items(); len(msgs) > 0 {
		b.WriteString("Recent conversation:\n")
		start := len(msgs) - 6
		if start < 0 {
			start = 0
		}
		for _, m := range msgs[start:] {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, truncate(m.Content, 200))
		}
	}
	return b.String()
}

// PreferredPatterns returns a copy of the inferred preference map.
func (s *State) PreferredPatterns() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.preferences))
	for k, v := range s.preferences {
		out[k] = v
	}
	return out
}

// Components returns discovered component names in first-appearance order.
func (s *State) Components() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.components...)
}

// RecentEdits returns the retained edit history oldest first.
func (s *State) RecentEdits() []FileEdit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recentEdits.Items()
}

// Messages returns the retained messages oldest first.
func (s *State) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages.Items()
}

// IsDuplicateRequest compares text against the most recent user messages
// using normalized edit-distance similarity.
func (s *State) IsDuplicateRequest(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.messages.Items()
	checked := 0
	for i := len(msgs) - 1; i >= 0 && checked < duplicateLookback; i-- {
		if msgs[i].Role != "user" {
			continue
		}
		checked++
		if Similarity(text, msgs[i].Content) > s.duplicateThreshold {
			return true
		}
	}
	return false
}

// LastActivity returns the time of the most recent mutation.
func (s *State) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
