// Package edit executes a strategic plan against the snapshot, producing
// surgical edits or newly created files via the completion client.
package edit

import (
	"context"
	"fmt"
	"strings"

	"appforge/internal/config"
	"appforge/internal/intent"
	"appforge/internal/llm"
	"appforge/internal/logging"
	"appforge/internal/plan"
	"appforge/internal/snapshot"
)

const editorSystem = `You are a surgical code editor for small web apps.
Return only the complete updated file content in a single fenced code block.
Preserve everything the request does not ask to change. No commentary.`

const creatorSystem = `You are a code generator for small web apps.
Return one complete new file in a single fenced code block. The first line
inside the block must be a comment with the file path. No commentary.`

// SurgicalEdit is one produced file change. OriginalContent is empty for
// newly created files. Never mutated after creation.
type SurgicalEdit struct {
	FilePath          string `json:"filePath"`
	OriginalContent   string `json:"originalContent"`
	ModifiedContent   string `json:"modifiedContent"`
	ChangeDescription string `json:"changeDescription"`
	LinesChanged      []int  `json:"linesChanged"`
}

// Input carries the accumulated pipeline context into execution.
type Input struct {
	Intent   *intent.Analysis
	Plan     *plan.Plan
	Snapshot snapshot.Snapshot

	// ErrorContext carries the previous attempt's failure detail when the
	// retry loop re-invokes the editor.
	ErrorContext string

	// OnFileStart is called before each file is processed (may be nil).
	OnFileStart func(path string)
}

// Editor performs plan execution through the completion client.
type Editor struct {
	client llm.Client
	model  config.PhaseModel
	caps   config.FileCaps
}

// NewEditor creates an editor with per-edit-type file caps.
func NewEditor(client llm.Client, model config.PhaseModel, caps config.FileCaps) *Editor {
	return &Editor{client: client, model: model, caps: caps}
}

// PerformEdits executes the plan. Surgical intents edit each target file
// up to the per-edit-type cap; non-surgical intents create one new file.
// A completion failure for one file skips that file and continues; an
// edit whose output equals the original is discarded as a no-op.
func (e *Editor) PerformEdits(ctx context.Context, in Input) []SurgicalEdit {
	if in.Intent.SurgicalEdit {
		return e.editTargets(ctx, in)
	}
	return e.createFile(ctx, in)
}

func (e *Editor) editTargets(ctx context.Context, in Input) []SurgicalEdit {
	targets := in.Intent.TargetFiles
	limit := e.caps.CapFor(string(in.Intent.EditType))
	if limit > 0 && len(targets) > limit {
		logging.Debug("capping edit targets", "editType", in.Intent.EditType, "cap", limit, "requested", len(targets))
		targets = targets[:limit]
	}

	var edits []SurgicalEdit
	for _, path := range targets {
		if in.OnFileStart != nil {
			in.OnFileStart(path)
		}

		original, ok := in.Snapshot[path]
		if !ok {
			logging.Warn("edit target not in snapshot, skipping", "path", path)
			continue
		}

		modified, err := e.requestEdit(ctx, in, path, original)
		if err != nil {
			logging.Warn("edit request failed, skipping file", "path", path, "error", err)
			continue
		}

		if modified == original {
			logging.Debug("model echoed original content, discarding no-op edit", "path", path)
			continue
		}

		edits = append(edits, SurgicalEdit{
			FilePath:          path,
			OriginalContent:   original,
			ModifiedContent:   modified,
			ChangeDescription: DescribeChanges(original, modified),
			LinesChanged:      ChangedLines(original, modified),
		})
	}
	return edits
}

func (e *Editor) requestEdit(ctx context.Context, in Input, path, original string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "File: %s\n\n", path)
	fmt.Fprintf(&b, "Request: %s\n", in.Intent.Reasoning)
	if len(in.Intent.ExpectedChanges) > 0 {
		fmt.Fprintf(&b, "Expected changes: %s\n", strings.Join(in.Intent.ExpectedChanges, "; "))
	}
	if len(in.Plan.Phases) > 0 {
		fmt.Fprintf(&b, "Plan: %s\n", strings.Join(in.Plan.Phases, " -> "))
	}
	if in.ErrorContext != "" {
		fmt.Fprintf(&b, "\nPrevious attempt failed:\n%s\n", in.ErrorContext)
	}
	fmt.Fprintf(&b, "\nCurrent content:\n```\n%s\n```\n", original)
	b.WriteString("\nConstraints: change only what the request requires; keep all other lines identical.")

	text, err := e.complete(ctx, editorSystem, b.String())
	if err != nil {
		return "", err
	}
	return ExtractCode(text), nil
}

func (e *Editor) createFile(ctx context.Context, in Input) []SurgicalEdit {
	if in.OnFileStart != nil {
		in.OnFileStart("")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Request: %s\n", in.Intent.Reasoning)
	if len(in.Intent.ExpectedChanges) > 0 {
		fmt.Fprintf(&b, "Expected changes: %s\n", strings.Join(in.Intent.ExpectedChanges, "; "))
	}
	if len(in.Plan.Phases) > 0 {
		fmt.Fprintf(&b, "Plan: %s\n", strings.Join(in.Plan.Phases, " -> "))
	}
	if in.ErrorContext != "" {
		fmt.Fprintf(&b, "\nPrevious attempt failed:\n%s\n", in.ErrorContext)
	}
	if len(in.Snapshot) > 0 {
		fmt.Fprintf(&b, "\nExisting files: %s\n", strings.Join(in.Snapshot.Paths(), ", "))
	}

	text, err := e.complete(ctx, creatorSystem, b.String())
	if err != nil {
		logging.Warn("creation request failed", "error", err)
		return nil
	}

	code := ExtractCode(text)
	if strings.TrimSpace(code) == "" {
		return nil
	}

	path := ExtractFilename(code)
	return []SurgicalEdit{{
		FilePath:          path,
		OriginalContent:   "",
		ModifiedContent:   code,
		ChangeDescription: fmt.Sprintf("created %s", path),
		LinesChanged:      ChangedLines("", code),
	}}
}

func (e *Editor) complete(ctx context.Context, system, prompt string) (string, error) {
	stream, err := e.client.Complete(ctx, llm.CompletionRequest{
		System:      system,
		Prompt:      prompt,
		Model:       e.model.Model,
		Temperature: e.model.Temperature,
		MaxTokens:   e.model.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	return llm.CollectText(ctx, stream, nil)
}
