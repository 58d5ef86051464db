package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appforge/internal/config"
)

func testConfig() config.SessionConfig {
	return config.SessionConfig{
		MessageCap:         50,
		EditCap:            20,
		DuplicateThreshold: 0.8,
	}
}

func TestMessageRingBufferInvariant(t *testing.T) {
	s := NewState("s1", testConfig())

	for i := 0; i < 60; i++ {
		s.AddMessage("user", fmt.Sprintf("message %d", i), nil)
	}

	msgs := s.Messages()
	require.Len(t, msgs, 50)
	assert.Equal(t, "message 10", msgs[0].Content)
	assert.Equal(t, "message 59", msgs[49].Content)
}

func TestRecentEditsCapAndComponentUnion(t *testing.T) {
	s := NewState("s1", testConfig())

	for i := 0; i < 25; i++ {
		s.RecordFileEdit(fmt.Sprintf("File%d.tsx", i), "UPDATE", "tweak", "Header", "Footer")
	}

	edits := s.RecentEdits()
	require.Len(t, edits, 20)
	assert.Equal(t, "File5.tsx", edits[0].FileName)

	assert.Equal(t, []string{"Header", "Footer"}, s.Components())
}

func TestDuplicateDetectionBoundary(t *testing.T) {
	s := NewState("s1", testConfig())
	s.AddMessage("user", "add a dark mode toggle to the header", nil)

	assert.True(t, s.IsDuplicateRequest("add a dark mode toggle to the header"))
	assert.False(t, s.IsDuplicateRequest("zq xv wp"))
}

func TestDuplicateDetectionOnlyChecksLastThreeUserMessages(t *testing.T) {
	s := NewState("s1", testConfig())
	s.AddMessage("user", "build a login form with validation", nil)
	for i := 0; i < 3; i++ {
		s.AddMessage("user", fmt.Sprintf("unrelated request number %d about charts", i), nil)
	}

	assert.False(t, s.IsDuplicateRequest("build a login form with validation"))
}

func TestPreferenceInference(t *testing.T) {
	s := NewState("s1", testConfig())
	s.AddMessage("user", "use tailwind for styling and redux for state", nil)

	prefs := s.PreferredPatterns()
	assert.Equal(t, "tailwind", prefs["styling"])
	assert.Equal(t, "redux", prefs["stateManagement"])

	s.AddMessage("user", "actually switch everything to zustand", nil)
	assert.Equal(t, "zustand", s.PreferredPatterns()["stateManagement"])

	s.AddMessage("assistant", "let's use mobx", nil)
	assert.Equal(t, "zustand", s.PreferredPatterns()["stateManagement"])
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("abc", "abc"))
	assert.Equal(t, 1.0, Similarity("", ""))
	assert.InDelta(t, 0.75, Similarity("abcd", "abcx"), 1e-9)
	assert.Equal(t, 0.0, Similarity("abc", "xyz"))
}

func TestStoreGetOrCreate(t *testing.T) {
	store := NewStore(testConfig())
	defer store.Close()

	a := store.GetOrCreate("")
	require.NotEmpty(t, a.ID())

	b := store.GetOrCreate(a.ID())
	assert.Same(t, a, b)

	c := store.GetOrCreate("other")
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, store.Len())

	store.Delete("other")
	assert.Equal(t, 1, store.Len())
}
