// Package retrieve ranks snapshot files against a user request using a
// keyword heuristic plus an optional embedding similarity stage.
package retrieve

import (
	"context"
	"sort"

	"appforge/internal/logging"
	"appforge/internal/snapshot"
)

// Score weights: keyword overlap carries less weight than embedding
// similarity when embeddings are available.
const (
	keywordWeight  = 0.4
	semanticWeight = 0.6
)

// FileAnalysis is one indexed file with its relevance score.
type FileAnalysis struct {
	Path      string
	Content   string
	Chunks    []Chunk
	Embedding []float32
	Score     float64
}

// Embedder produces embedding vectors for file content. Implementations may
// return a nil vector to opt a file out of semantic scoring.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// NoopEmbedder disables the semantic stage: every file scores on keywords
// alone.
type NoopEmbedder struct{}

// Embed returns no vector.
func (NoopEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, nil
}

// Retriever indexes a snapshot and answers relevance queries against it.
type Retriever struct {
	files     []FileAnalysis
	chunker   *Chunker
	embedder  Embedder
	threshold float64
}

// NewRetriever indexes the snapshot. Files are chunked eagerly; embeddings
// are computed through the supplied embedder (NoopEmbedder keeps this a
// pure keyword index).
func NewRetriever(ctx context.Context, snap snapshot.Snapshot, embedder Embedder, threshold float64) *Retriever {
	if embedder == nil {
		embedder = NoopEmbedder{}
	}

	chunker := NewChunker()
	files := make([]FileAnalysis, 0, len(snap))
	for _, path := range snap.Paths() {
		content := snap[path]
		embedding, err := embedder.Embed(ctx, content)
		if err != nil {
			logging.Debug("embedding failed, falling back to keyword scoring", "path", path, "error", err)
			embedding = nil
		}
		files = append(files, FileAnalysis{
			Path:      path,
			Content:   content,
			Chunks:    chunker.Chunk(content),
			Embedding: embedding,
		})
	}

	return &Retriever{
		files:     files,
		chunker:   chunker,
		embedder:  embedder,
		threshold: threshold,
	}
}

// Files returns the indexed files in path order.
func (r *Retriever) Files() []FileAnalysis {
	return r.files
}

// FindRelevantFiles returns up to maxFiles files most relevant to the
// query, most relevant first. Files scoring at or below the threshold are
// excluded entirely. Ties keep index order (stable sort).
func (r *Retriever) FindRelevantFiles(ctx context.Context, query string, maxFiles int) []FileAnalysis {
	keywords := QueryKeywords(query)

	var queryVec []float32
	if _, noop := r.embedder.(NoopEmbedder); !noop {
		vec, err := r.embedder.Embed(ctx, query)
		if err != nil {
			logging.Debug("query embedding failed", "error", err)
		} else {
			queryVec = vec
		}
	}

	var scored []FileAnalysis
	for _, f := range r.files {
		keywordScore := KeywordScore(keywords, f.Path, f.Content)

		semanticScore := 0.0
		if queryVec != nil && f.Embedding != nil {
			semanticScore = CosineSimilarity(queryVec, f.Embedding)
		}

		f.Score = keywordWeight*keywordScore + semanticWeight*semanticScore
		if f.Score <= r.threshold {
			continue
		}
		scored = append(scored, f)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if maxFiles > 0 && len(scored) > maxFiles {
		scored = scored[:maxFiles]
	}
	return scored
}
