package intent

import (
	"context"
	"fmt"
	"strings"

	"appforge/internal/config"
	"appforge/internal/llm"
	"appforge/internal/logging"
	"appforge/internal/parse"
	"appforge/internal/snapshot"
)

const classifierSystem = `You are an intent classifier for a web-app code assistant.
Respond with a single JSON object and nothing else. No prose, no code fences.
Schema:
{
  "editType": "CREATE|UPDATE|FIX|ENHANCE|REFACTOR",
  "reasoning": "one sentence",
  "targetFiles": ["paths from the file list"],
  "searchTerms": ["identifiers or keywords to locate edit sites"],
  "regexPatterns": ["optional regex patterns"],
  "expectedChanges": ["short change descriptions"],
  "surgicalEdit": true|false,
  "confidence": 0.0-1.0
}`

// Bounds on the codebase summary embedded in the classification prompt.
const (
	summaryMaxFiles      = 40
	summaryMaxComponents = 20
	summaryMaxEdits      = 5
)

// Classifier turns a user prompt plus codebase summary into an Analysis.
type Classifier struct {
	client  llm.Client
	catalog *Catalog
	model   config.PhaseModel
}

// NewClassifier creates a classifier using the given completion client and
// per-phase model settings.
func NewClassifier(client llm.Client, catalog *Catalog, model config.PhaseModel) *Classifier {
	return &Classifier{
		client:  client,
		catalog: catalog,
		model:   model,
	}
}

// analysisWire mirrors the JSON the model is asked to produce.
type analysisWire struct {
	EditType        string   `json:"editType"`
	Reasoning       string   `json:"reasoning"`
	TargetFiles     []string `json:"targetFiles"`
	SearchTerms     []string `json:"searchTerms"`
	RegexPatterns   []string `json:"regexPatterns"`
	ExpectedChanges []string `json:"expectedChanges"`
	SurgicalEdit    bool     `json:"surgicalEdit"`
	Confidence      float64  `json:"confidence"`
}

// Analyze classifies the request. It never fails: any transport or parse
// error degrades to a CREATE analysis with confidence 0.3 and keyword-
// derived search terms, so the pipeline always has an intent to act on.
func (c *Classifier) Analyze(ctx context.Context, prompt string, snap snapshot.Snapshot, meta ProjectMeta) *Analysis {
	analysis, err := c.classify(ctx, prompt, snap, meta)
	if err != nil {
		// The degraded analysis is returned as-is: catalog enrichment
		// would inflate the 0.3 confidence that marks it as a guess.
		logging.Warn("intent classification degraded to fallback", "error", err)
		return fallbackAnalysis(prompt)
	}

	c.enrich(prompt, snap, analysis)
	return analysis
}

func (c *Classifier) classify(ctx context.Context, prompt string, snap snapshot.Snapshot, meta ProjectMeta) (*Analysis, error) {
	userPrompt := buildClassifierPrompt(prompt, snap, meta)

	stream, err := c.client.Complete(ctx, llm.CompletionRequest{
		System:      classifierSystem,
		Prompt:      userPrompt,
		Model:       c.model.Model,
		Temperature: c.model.Temperature,
		MaxTokens:   c.model.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("intent completion failed: %w", err)
	}

	text, err := llm.CollectText(ctx, stream, nil)
	if err != nil {
		return nil, fmt.Errorf("intent stream failed: %w", err)
	}

	var wire analysisWire
	if err := parse.Into(text, &wire); err != nil {
		return nil, fmt.Errorf("intent response: %w", err)
	}

	confidence := wire.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return &Analysis{
		EditType:        ParseEditType(wire.EditType),
		Reasoning:       wire.Reasoning,
		TargetFiles:     wire.TargetFiles,
		SearchTerms:     wire.SearchTerms,
		RegexPatterns:   wire.RegexPatterns,
		ExpectedChanges: wire.ExpectedChanges,
		SurgicalEdit:    wire.SurgicalEdit,
		Confidence:      confidence,
	}, nil
}

// fallbackAnalysis is the degraded result used when classification cannot
// produce a parseable answer.
func fallbackAnalysis(prompt string) *Analysis {
	return &Analysis{
		EditType:     EditCreate,
		Reasoning:    "classification unavailable, defaulting to creation",
		SearchTerms:  ExtractKeywords(prompt),
		SurgicalEdit: false,
		Confidence:   0.3,
	}
}

// enrich merges the best catalog match into the analysis: search terms and
// patterns are unioned, confidence is averaged with the catalog estimate
// rather than overwritten. When the model named no target files, the
// example's file-type globs pick candidates from the snapshot; model-named
// targets are kept as-is.
func (c *Classifier) enrich(prompt string, snap snapshot.Snapshot, analysis *Analysis) {
	if c.catalog == nil {
		return
	}

	best := c.catalog.BestExample(prompt, analysis.EditType, analysis.SearchTerms)
	if best == nil {
		return
	}

	analysis.SearchTerms = unionStrings(analysis.SearchTerms, best.SearchTerms)
	analysis.RegexPatterns = unionStrings(analysis.RegexPatterns, best.ExpandPatterns(analysis.SearchTerms))
	if len(analysis.TargetFiles) == 0 && len(best.TargetFileTypes) > 0 {
		analysis.TargetFiles = best.TargetPaths(snap.Paths())
	}
	analysis.Confidence = (analysis.Confidence + best.Tier.Estimate()) / 2

	logging.Debug("intent enriched from catalog",
		"example", best.ID,
		"confidence", analysis.Confidence)
}

// buildClassifierPrompt assembles a bounded text summary of the codebase.
func buildClassifierPrompt(prompt string, snap snapshot.Snapshot, meta ProjectMeta) string {
	var b strings.Builder

	b.WriteString("User request:\n")
	b.WriteString(prompt)
	b.WriteString("\n\nProject files:\n")

	paths := snap.Paths()
	shown := paths
	if len(shown) > summaryMaxFiles {
		shown = shown[:summaryMaxFiles]
	}
	for _, path := range shown {
		fmt.Fprintf(&b, "- %s (%d bytes)\n", path, len(snap[path]))
	}
	if len(paths) > summaryMaxFiles {
		fmt.Fprintf(&b, "... and %d more files\n", len(paths)-summaryMaxFiles)
	}

	if len(meta.Components) > 0 {
		components := meta.Components
		if len(components) > summaryMaxComponents {
			components = components[:summaryMaxComponents]
		}
		b.WriteString("\nKnown components: ")
		b.WriteString(strings.Join(components, ", "))
		b.WriteString("\n")
	}

	if len(meta.RecentEdits) > 0 {
		edits := meta.RecentEdits
		if len(edits) > summaryMaxEdits {
			edits = edits[len(edits)-summaryMaxEdits:]
		}
		b.WriteString("\nRecent changes:\n")
		for _, e := range edits {
			fmt.Fprintf(&b, "- %s\n", e)
		}
	}

	return b.String()
}

// unionStrings appends items from extra not already in base, preserving
// order of first appearance (case-insensitive dedupe).
func unionStrings(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base))
	for _, s := range base {
		seen[strings.ToLower(s)] = struct{}{}
	}
	out := base
	for _, s := range extra {
		key := strings.ToLower(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
