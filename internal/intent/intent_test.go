package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appforge/internal/config"
	"appforge/internal/llm"
	"appforge/internal/snapshot"
)

type fakeClient struct {
	text string
	err  error
}

func (f *fakeClient) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.StreamingResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	chunks := make(chan llm.Chunk, 1)
	chunks <- llm.Chunk{Text: f.text, Done: true}
	close(chunks)
	done := make(chan struct{})
	close(done)
	return &llm.StreamingResponse{Chunks: chunks, Done: done}, nil
}

func (f *fakeClient) Model() string { return "fake" }
func (f *fakeClient) Close() error  { return nil }

func testModel() config.PhaseModel {
	return config.PhaseModel{Model: "fake", Temperature: 0.1}
}

func TestExtractKeywords(t *testing.T) {
	got := ExtractKeywords("Please make the header show a dark mode toggle, toggle it from the menu")
	assert.Equal(t, []string{"header", "show", "dark", "mode", "toggle", "menu"}, got)
}

func TestAnalyzeDegradedFallback(t *testing.T) {
	c := NewClassifier(&fakeClient{err: errors.New("connection refused")}, NewCatalog(), testModel())

	analysis := c.Analyze(context.Background(), "build a weather dashboard widget", snapshot.Snapshot{}, ProjectMeta{})

	assert.Equal(t, EditCreate, analysis.EditType)
	assert.Equal(t, 0.3, analysis.Confidence)
	assert.False(t, analysis.SurgicalEdit)
	assert.Equal(t, []string{"build", "weather", "dashboard", "widget"}, analysis.SearchTerms)
}

func TestAnalyzeDegradedFallbackOnUnparseableResponse(t *testing.T) {
	c := NewClassifier(&fakeClient{text: "I cannot answer in JSON, sorry."}, NewCatalog(), testModel())

	analysis := c.Analyze(context.Background(), "build a weather dashboard widget", snapshot.Snapshot{}, ProjectMeta{})

	assert.Equal(t, EditCreate, analysis.EditType)
	assert.Equal(t, 0.3, analysis.Confidence)
}

func TestAnalyzeParsesAndEnriches(t *testing.T) {
	response := `{"editType":"ENHANCE","reasoning":"add theme toggle","targetFiles":["Header.tsx"],` +
		`"searchTerms":["theme"],"expectedChanges":["toggle button"],"surgicalEdit":true,"confidence":0.9}`
	c := NewClassifier(&fakeClient{text: response}, NewCatalog(), testModel())

	analysis := c.Analyze(context.Background(), "add a dark mode toggle", snapshot.Snapshot{}, ProjectMeta{})

	assert.Equal(t, EditEnhance, analysis.EditType)
	assert.True(t, analysis.SurgicalEdit)
	// The theme-toggle catalog example is high tier (0.9): averaged
	// confidence stays 0.9 and its search terms are unioned in.
	assert.InDelta(t, 0.9, analysis.Confidence, 1e-9)
	assert.Contains(t, analysis.SearchTerms, "theme")
	assert.Contains(t, analysis.SearchTerms, "useState")
}

func TestAnalyzeFillsTargetFilesFromCatalog(t *testing.T) {
	response := `{"editType":"ENHANCE","reasoning":"add theme toggle","targetFiles":[],` +
		`"searchTerms":["theme"],"surgicalEdit":true,"confidence":0.8}`
	c := NewClassifier(&fakeClient{text: response}, NewCatalog(), testModel())
	snap := snapshot.Snapshot{
		"src/Header.tsx": "export function Header() {}",
		"App.tsx":        "export default function App() {}",
		"main.go":        "package main",
	}

	analysis := c.Analyze(context.Background(), "add a dark mode toggle", snap, ProjectMeta{})

	// The theme-toggle example targets tsx/jsx files only.
	assert.Equal(t, []string{"App.tsx", "src/Header.tsx"}, analysis.TargetFiles)
}

func TestAnalyzeKeepsModelTargetFiles(t *testing.T) {
	response := `{"editType":"ENHANCE","reasoning":"add theme toggle","targetFiles":["Header.tsx"],` +
		`"searchTerms":["theme"],"surgicalEdit":true,"confidence":0.8}`
	c := NewClassifier(&fakeClient{text: response}, NewCatalog(), testModel())
	snap := snapshot.Snapshot{"Header.tsx": "", "Footer.tsx": ""}

	analysis := c.Analyze(context.Background(), "add a dark mode toggle", snap, ProjectMeta{})

	assert.Equal(t, []string{"Header.tsx"}, analysis.TargetFiles)
}

func TestParseEditTypeUnknownDefaultsToCreate(t *testing.T) {
	assert.Equal(t, EditCreate, ParseEditType("REWRITE"))
	assert.Equal(t, EditRefactor, ParseEditType("refactor"))
}

func TestCatalogFindMatchingOrdersByTier(t *testing.T) {
	catalog := NewCatalog()

	matches := catalog.FindMatching("please fix the fetch call in my form validation", EditFix, nil)
	require.NotEmpty(t, matches)
	assert.Equal(t, "fetch-repair", matches[0].ID)

	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Tier, matches[i].Tier)
	}
}

func TestCatalogMatchByTermOverlap(t *testing.T) {
	catalog := NewCatalog()

	matches := catalog.FindMatching("do something unspecified", EditType("UPDATE"), []string{"useState"})
	found := false
	for _, m := range matches {
		if m.ID == "theme-toggle" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestExpandPatternsFanOut(t *testing.T) {
	ex := Example{RegexPatterns: []string{`await\s+` + FuncNamePlaceholder + `\(`, `static`}}

	got := ex.ExpandPatterns([]string{"fetchData", "loadUser"})
	assert.Equal(t, []string{
		`await\s+fetchData\(`,
		`await\s+loadUser\(`,
		`static`,
	}, got)
}

func TestTargetPaths(t *testing.T) {
	ex := Example{TargetFileTypes: []string{"**/*.tsx"}}

	got := ex.TargetPaths([]string{"src/Header.tsx", "main.go", "App.tsx"})
	assert.Equal(t, []string{"src/Header.tsx", "App.tsx"}, got)
}
