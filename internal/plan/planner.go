package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"appforge/internal/config"
	"appforge/internal/intent"
	"appforge/internal/llm"
	"appforge/internal/logging"
	"appforge/internal/parse"
	"appforge/internal/retrieve"
)

const plannerSystem = `You are a planning assistant for a web-app code assistant.
Respond with a single JSON object and nothing else:
{
  "approach": "surgical_edit|new_creation|multi_file_refactor",
  "reasoning": "one or two sentences",
  "phases": ["ordered implementation steps"],
  "riskAssessment": ["risks"],
  "successCriteria": ["observable outcomes"]
}`

// Input carries everything the planner embeds in its prompt.
type Input struct {
	Intent              *intent.Analysis
	Context             []retrieve.FileAnalysis
	ProjectSummary      string
	Preferences         map[string]string
	ProjectFileCount    int
	RetrievalConfidence float64
}

// Planner produces a Plan from intent plus retrieved context.
type Planner struct {
	client llm.Client
	model  config.PhaseModel
}

// NewPlanner creates a planner using the given completion client.
func NewPlanner(client llm.Client, model config.PhaseModel) *Planner {
	return &Planner{client: client, model: model}
}

// planWire mirrors the JSON the model is asked to produce.
type planWire struct {
	Approach        string   `json:"approach"`
	Reasoning       string   `json:"reasoning"`
	Phases          []string `json:"phases"`
	RiskAssessment  []string `json:"riskAssessment"`
	SuccessCriteria []string `json:"successCriteria"`
}

// CreatePlan produces a plan for the request. It never fails: a transport
// error or unparseable response falls back first to markdown section
// extraction, then to a deterministic canned plan. The orchestrator must
// never abort solely because planning text wasn't valid JSON.
func (p *Planner) CreatePlan(ctx context.Context, in Input) *Plan {
	text, err := p.completePlan(ctx, in)
	if err != nil {
		logging.Warn("planning completion failed, using fallback plan", "error", err)
		return fallbackPlan(in)
	}

	result := p.parsePlan(text, in)
	result.EstimatedComplexity = EstimateComplexity(in.Intent.EditType, len(in.Intent.TargetFiles), in.ProjectFileCount)
	return result
}

func (p *Planner) completePlan(ctx context.Context, in Input) (string, error) {
	stream, err := p.client.Complete(ctx, llm.CompletionRequest{
		System:      plannerSystem,
		Prompt:      buildPlannerPrompt(in),
		Model:       p.model.Model,
		Temperature: p.model.Temperature,
		MaxTokens:   p.model.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	return llm.CollectText(ctx, stream, nil)
}

// parsePlan tries structured JSON first, then treats the response as
// free-text markdown and extracts named sections.
func (p *Planner) parsePlan(text string, in Input) *Plan {
	var wire planWire
	if err := parse.Into(text, &wire); err == nil && len(wire.Phases) > 0 {
		return &Plan{
			Approach:        ParseApproach(wire.Approach),
			Reasoning:       wire.Reasoning,
			Phases:          wire.Phases,
			RiskAssessment:  orDefault(wire.RiskAssessment, defaultRisks()),
			SuccessCriteria: orDefault(wire.SuccessCriteria, defaultSuccessCriteria()),
		}
	}

	logging.Debug("plan response not structured JSON, extracting markdown sections")

	fallback := fallbackPlan(in)
	return &Plan{
		Approach:        fallback.Approach,
		Reasoning:       strings.TrimSpace(firstParagraph(text)),
		Phases:          sectionOrDefault(text, "phase", fallback.Phases),
		RiskAssessment:  sectionOrDefault(text, "risk", fallback.RiskAssessment),
		SuccessCriteria: sectionOrDefault(text, "success", fallback.SuccessCriteria),
	}
}

// fallbackPlan is the deterministic plan used when the model produced
// nothing usable. Approach derives from the intent's surgical flag.
func fallbackPlan(in Input) *Plan {
	approach := ApproachCreation
	if in.Intent.SurgicalEdit {
		approach = ApproachSurgical
	}
	if in.Intent.EditType == intent.EditRefactor {
		approach = ApproachRefactor
	}

	return &Plan{
		Approach:            approach,
		Reasoning:           "planner response unavailable, using standard three-phase plan",
		Phases:              defaultPhases(),
		RiskAssessment:      defaultRisks(),
		SuccessCriteria:     defaultSuccessCriteria(),
		EstimatedComplexity: EstimateComplexity(in.Intent.EditType, len(in.Intent.TargetFiles), in.ProjectFileCount),
	}
}

func defaultPhases() []string {
	return []string{
		"Locate the code affected by the request",
		"Apply the minimal change that satisfies the request",
		"Verify the result renders and compiles",
	}
}

func defaultRisks() []string {
	return []string{"Generated change may not integrate with untouched files"}
}

func defaultSuccessCriteria() []string {
	return []string{"Requested change is present in the produced edits"}
}

func buildPlannerPrompt(in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Intent: %s (confidence %.2f)\n", in.Intent.EditType, in.Intent.Confidence)
	fmt.Fprintf(&b, "Reasoning: %s\n", in.Intent.Reasoning)
	if len(in.Intent.TargetFiles) > 0 {
		fmt.Fprintf(&b, "Target files: %s\n", strings.Join(in.Intent.TargetFiles, ", "))
	}
	if len(in.Intent.ExpectedChanges) > 0 {
		fmt.Fprintf(&b, "Expected changes: %s\n", strings.Join(in.Intent.ExpectedChanges, "; "))
	}

	if in.ProjectSummary != "" {
		b.WriteString("\nProject summary:\n")
		b.WriteString(in.ProjectSummary)
		b.WriteString("\n")
	}

	if len(in.Preferences) > 0 {
		if prefs, err := json.Marshal(in.Preferences); err == nil {
			fmt.Fprintf(&b, "\nUser preferences: %s\n", prefs)
		}
	}

	if len(in.Context) > 0 {
		b.WriteString("\nRelevant files:\n")
		for _, f := range in.Context {
			fmt.Fprintf(&b, "- %s (relevance %.2f)\n", f.Path, f.Score)
		}
	}
	fmt.Fprintf(&b, "\nRetrieval confidence: %.2f\n", in.RetrievalConfidence)

	return b.String()
}

func orDefault(items, fallback []string) []string {
	if len(items) > 0 {
		return items
	}
	return fallback
}

// firstParagraph returns the text up to the first blank line, skipping
// leading headings.
func firstParagraph(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if len(lines) > 0 {
				break
			}
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			continue
		}
		lines = append(lines, trimmed)
	}
	return strings.Join(lines, " ")
}
