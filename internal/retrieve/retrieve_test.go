package retrieve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appforge/internal/snapshot"
)

func TestChunkerFunctionPair(t *testing.T) {
	content := "function Foo() {\n  return 1;\n}\nfunction Bar() {\n  return 2;\n}"

	chunks := NewChunker().Chunk(content)
	require.Len(t, chunks, 2)

	assert.Equal(t, "Foo", chunks[0].Name)
	assert.Equal(t, ChunkFunction, chunks[0].Type)
	assert.Equal(t, 0, chunks[0].StartLine)
	assert.Equal(t, 2, chunks[0].EndLine)

	assert.Equal(t, "Bar", chunks[1].Name)
	assert.Equal(t, ChunkFunction, chunks[1].Type)
	assert.Equal(t, 3, chunks[1].StartLine)
	assert.Equal(t, 5, chunks[1].EndLine)
}

func TestChunkerComponentBeforeVariable(t *testing.T) {
	content := "const Header = () => {\n  return null;\n};\nconst count = 1;"

	chunks := NewChunker().Chunk(content)
	require.Len(t, chunks, 2)
	assert.Equal(t, ChunkComponent, chunks[0].Type)
	assert.Equal(t, "Header", chunks[0].Name)
	assert.Equal(t, ChunkVariable, chunks[1].Type)
	assert.Equal(t, "count", chunks[1].Name)
}

func TestChunkerNoBoundariesYieldsNoChunks(t *testing.T) {
	chunks := NewChunker().Chunk("just some prose\nwith no declarations")
	assert.Empty(t, chunks)
}

func TestKeywordScorePresenceBased(t *testing.T) {
	keywords := QueryKeywords("dark mode toggle")
	require.Equal(t, []string{"dark", "mode", "toggle"}, keywords)

	score := KeywordScore(keywords, "Header.tsx", "a toggle button, toggle again")
	assert.InDelta(t, 1.0/3.0, score, 1e-9)

	assert.Equal(t, 0.0, KeywordScore(keywords, "Footer.tsx", "nothing relevant"))
}

func TestFindRelevantFilesExcludesBelowThreshold(t *testing.T) {
	snap := snapshot.Snapshot{
		"Header.tsx": "export const Header = () => <button>toggle</button>;",
		"Footer.tsx": "export const Footer = () => <span>copyright</span>;",
	}

	r := NewRetriever(context.Background(), snap, NoopEmbedder{}, 0.1)
	files := r.FindRelevantFiles(context.Background(), "dark mode toggle", 5)

	require.Len(t, files, 1)
	assert.Equal(t, "Header.tsx", files[0].Path)
	assert.Greater(t, files[0].Score, 0.1)
}

func TestFindRelevantFilesRanksAndTruncates(t *testing.T) {
	snap := snapshot.Snapshot{
		"a.tsx": "toggle",
		"b.tsx": "dark mode toggle",
		"c.tsx": "dark toggle",
	}

	r := NewRetriever(context.Background(), snap, NoopEmbedder{}, 0.1)
	files := r.FindRelevantFiles(context.Background(), "dark mode toggle", 2)

	require.Len(t, files, 2)
	assert.Equal(t, "b.tsx", files[0].Path)
	assert.Equal(t, "c.tsx", files[1].Path)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, []float32{1, 2}))
}
