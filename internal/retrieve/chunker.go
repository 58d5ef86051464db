package retrieve

import (
	"regexp"
	"strings"
)

// ChunkType labels the kind of declaration a chunk starts with.
type ChunkType string

const (
	ChunkComponent ChunkType = "component"
	ChunkFunction  ChunkType = "function"
	ChunkClass     ChunkType = "class"
	ChunkInterface ChunkType = "interface"
	ChunkVariable  ChunkType = "variable"
)

// Chunk is a labeled span of source lines. Line numbers are 0-indexed and
// inclusive on both ends.
type Chunk struct {
	StartLine int
	EndLine   int
	Type      ChunkType
	Name      string
}

// boundary pairs a declaration pattern with the chunk type it opens. The
// pattern's first capture group is the declaration name.
type boundary struct {
	chunkType ChunkType
	pattern   *regexp.Regexp
}

// boundaries are checked in order: component-like declarations win over the
// plain function/variable patterns that would also match them.
var boundaries = []boundary{
	{ChunkComponent, regexp.MustCompile(`^(?:export\s+)?(?:default\s+)?const\s+([A-Z][\w$]*)\s*(?::[^=]+)?=\s*(?:async\s*)?(?:\([^)]*\)|[\w$]+)\s*=>`)},
	{ChunkFunction, regexp.MustCompile(`^(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*([\w$]+)`)},
	{ChunkClass, regexp.MustCompile(`^(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+([\w$]+)`)},
	{ChunkInterface, regexp.MustCompile(`^(?:export\s+)?interface\s+([\w$]+)`)},
	{ChunkVariable, regexp.MustCompile(`^(?:export\s+)?(?:const|let|var)\s+([\w$]+)`)},
}

// Chunker splits raw source text into labeled declaration spans. It is a
// regex heuristic, not a parser: nested declarations are not tracked and a
// file with no declaration-like lines yields zero chunks.
type Chunker struct{}

// NewChunker creates a new chunker.
func NewChunker() *Chunker {
	return &Chunker{}
}

// Chunk scans lines top to bottom. A boundary match closes the previous
// open chunk at the preceding line and opens a new one; the final open
// chunk is closed at end of file. Chunks are non-overlapping and appear in
// declaration order.
func (c *Chunker) Chunk(content string) []Chunk {
	lines := strings.Split(content, "\n")

	var chunks []Chunk
	open := -1
	var openType ChunkType
	var openName string

	for i, line := range lines {
		chunkType, name, ok := matchBoundary(line)
		if !ok {
			continue
		}

		if open != -1 {
			chunks = append(chunks, Chunk{
				StartLine: open,
				EndLine:   i - 1,
				Type:      openType,
				Name:      openName,
			})
		}
		open = i
		openType = chunkType
		openName = name
	}

	if open != -1 {
		chunks = append(chunks, Chunk{
			StartLine: open,
			EndLine:   len(lines) - 1,
			Type:      openType,
			Name:      openName,
		})
	}

	return chunks
}

// matchBoundary tests a line against the ordered boundary patterns.
func matchBoundary(line string) (ChunkType, string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return "", "", false
	}

	for _, b := range boundaries {
		if m := b.pattern.FindStringSubmatch(trimmed); m != nil {
			return b.chunkType, m[1], true
		}
	}
	return "", "", false
}
