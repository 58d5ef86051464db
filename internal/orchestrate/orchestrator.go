package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"appforge/internal/autofix"
	"appforge/internal/config"
	"appforge/internal/edit"
	"appforge/internal/intent"
	"appforge/internal/logging"
	"appforge/internal/plan"
	"appforge/internal/progress"
	"appforge/internal/retrieve"
	"appforge/internal/session"
	"appforge/internal/snapshot"
)

// ErrNoEdits fails the validation phase when a run produced nothing.
var ErrNoEdits = errors.New("no edits produced")

// Request is one generation request entering the pipeline.
type Request struct {
	Prompt    string
	SessionID string
	Files     snapshot.Snapshot

	// History seeds the session with prior turns supplied by the caller,
	// applied only when the session is new.
	History []session.Message
}

// Result is the structured outcome of one orchestration run.
type Result struct {
	Success         bool                    `json:"success"`
	SessionID       string                  `json:"sessionId"`
	Edits           []edit.SurgicalEdit     `json:"edits"`
	Intent          *intent.Analysis        `json:"intent,omitempty"`
	Plan            *plan.Plan              `json:"plan,omitempty"`
	Phases          []*ReasoningPhase       `json:"phases"`
	Attempts        int                     `json:"attempts"`
	AppliedFixes    []string                `json:"appliedFixes,omitempty"`
	RemainingErrors []autofix.DetectedError `json:"remainingErrors,omitempty"`
	Warnings        []string                `json:"warnings,omitempty"`
	Error           string                  `json:"error,omitempty"`
}

// Orchestrator wires the pipeline components and runs requests through
// them in order. Safe for concurrent use; per-session state is locked
// inside the session store.
type Orchestrator struct {
	classifier *intent.Classifier
	planner    *plan.Planner
	editor     *edit.Editor
	sessions   *session.Store
	embedder   retrieve.Embedder
	cfg        config.PipelineConfig
}

// New builds an orchestrator from already-constructed phase components.
func New(classifier *intent.Classifier, planner *plan.Planner, editor *edit.Editor, sessions *session.Store, embedder retrieve.Embedder, cfg config.PipelineConfig) *Orchestrator {
	if embedder == nil {
		embedder = retrieve.NoopEmbedder{}
	}
	return &Orchestrator{
		classifier: classifier,
		planner:    planner,
		editor:     editor,
		sessions:   sessions,
		embedder:   embedder,
		cfg:        cfg,
	}
}

// Run executes the full pipeline for one request, emitting progress to
// stream. Phases run strictly in order; the first failed phase aborts
// the rest. The returned result is never nil.
func (o *Orchestrator) Run(ctx context.Context, req Request, stream *progress.Streamer) *Result {
	state := o.sessions.GetOrCreate(req.SessionID)
	result := &Result{SessionID: state.ID()}

	// Caller-supplied history only seeds sessions that have no turns yet,
	// so replaying a conversation into an existing session is a no-op.
	if len(req.History) > 0 && len(state.Messages()) == 0 {
		seedHistory(state, req.History)
	}

	if state.IsDuplicateRequest(req.Prompt) {
		result.Warnings = append(result.Warnings, "this request closely matches a recent one in this session")
		stream.Emit(progress.EventWarning, "request looks like a repeat of a recent message")
	}
	state.AddMessage("user", req.Prompt, nil)
	state.UpdateContext(req.Files)

	phases := []*ReasoningPhase{
		newPhase("intent"),
		newPhase("context-search"),
		newPhase("planning"),
		newPhase("execution"),
		newPhase("validation"),
	}
	result.Phases = phases

	var (
		analysis  *intent.Analysis
		relevant  []retrieve.FileAnalysis
		thePlan   *plan.Plan
		retryRes  RetryResult
		failedErr error
	)

	steps := []struct {
		phase *ReasoningPhase
		run   func(context.Context) (any, error)
	}{
		{phases[0], func(pctx context.Context) (any, error) {
			stream.Emit(progress.EventStatus, "analyzing request intent")
			analysis = o.classifier.Analyze(pctx, req.Prompt, req.Files, intent.ProjectMeta{
				Components:  state.Components(),
				RecentEdits: editSummaries(state.RecentEdits()),
			})
			result.Intent = analysis
			stream.EmitMeta(progress.EventIntentAnalysis, analysis.Reasoning, map[string]any{
				"editType":   analysis.EditType,
				"confidence": analysis.Confidence,
			})
			return analysis, nil
		}},
		{phases[1], func(pctx context.Context) (any, error) {
			stream.Emit(progress.EventContextBuilding, "scoring project files for relevance")
			retriever := retrieve.NewRetriever(pctx, req.Files, o.embedder, o.cfg.RelevanceThreshold)
			relevant = retriever.FindRelevantFiles(pctx, req.Prompt, o.cfg.MaxContextFiles)
			return relevant, nil
		}},
		{phases[2], func(pctx context.Context) (any, error) {
			stream.Emit(progress.EventPlanThinking, "building implementation plan")
			thePlan = o.planner.CreatePlan(pctx, plan.Input{
				Intent:              analysis,
				Context:             relevant,
				ProjectSummary:      state.ConversationContext(),
				Preferences:         state.PreferredPatterns(),
				ProjectFileCount:    req.Files.Len(),
				RetrievalConfidence: meanScore(relevant),
			})
			result.Plan = thePlan
			stream.EmitMeta(progress.EventPlanComplete, thePlan.Reasoning, map[string]any{
				"approach":   thePlan.Approach,
				"complexity": thePlan.EstimatedComplexity,
				"phases":     thePlan.Phases,
			})
			return thePlan, nil
		}},
		{phases[3], func(pctx context.Context) (any, error) {
			if analysis.SurgicalEdit {
				stream.Emit(progress.EventSurgicalThinking, "working out minimal edits for the target files")
			}
			retryRes = RunWithRetry(pctx, o.cfg, autofix.Context{TaskCategory: taskCategory(req.Prompt)}, func(bctx context.Context, errCtx string) ([]edit.SurgicalEdit, error) {
				return o.editor.PerformEdits(bctx, edit.Input{
					Intent:       analysis,
					Plan:         thePlan,
					Snapshot:     req.Files,
					ErrorContext: errCtx,
					OnFileStart:  fileStartEmitter(stream, analysis.SurgicalEdit),
				}), nil
			}, stream)

			result.Edits = retryRes.Edits
			result.Attempts = retryRes.Attempts
			result.AppliedFixes = retryRes.AppliedFixes
			result.RemainingErrors = retryRes.RemainingErrors

			if !retryRes.Success && len(retryRes.Edits) == 0 && len(retryRes.RemainingErrors) > 0 {
				return nil, fmt.Errorf("generation failed after %d attempts", retryRes.Attempts)
			}
			return retryRes.Edits, nil
		}},
		{phases[4], func(pctx context.Context) (any, error) {
			if len(result.Edits) == 0 {
				return nil, ErrNoEdits
			}
			for _, e := range result.Edits {
				state.RecordFileEdit(e.FilePath, string(analysis.EditType), e.ChangeDescription, componentName(e.FilePath))
				stream.ComponentDetected()
			}
			state.AddMessage("assistant", summarizeEdits(result.Edits), nil)
			return len(result.Edits), nil
		}},
	}

	for _, step := range steps {
		step.phase.start()
		out, err := o.runPhase(ctx, step.run)
		if err != nil {
			step.phase.fail(err)
			failedErr = err
			break
		}
		step.phase.complete(out)
	}

	if failedErr != nil {
		result.Success = false
		result.Error = failedErr.Error()
		logging.Warn("orchestration run failed", "session", state.ID(), "error", failedErr)
		return result
	}

	result.Success = true
	if len(retryRes.RemainingErrors) > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%d detected issues remain unresolved", len(retryRes.RemainingErrors)))
	}
	return result
}

// runPhase applies the configured per-phase timeout.
func (o *Orchestrator) runPhase(ctx context.Context, run func(context.Context) (any, error)) (any, error) {
	if o.cfg.PhaseTimeout <= 0 {
		return run(ctx)
	}
	pctx, cancel := context.WithTimeout(ctx, o.cfg.PhaseTimeout)
	defer cancel()
	return run(pctx)
}

func fileStartEmitter(stream *progress.Streamer, surgical bool) func(string) {
	return func(path string) {
		if surgical {
			stream.EmitMeta(progress.EventSurgicalEdit, fmt.Sprintf("editing %s", path), map[string]any{"file": path})
			return
		}
		stream.Emit(progress.EventFileGeneration, "generating new file")
	}
}

func seedHistory(state *session.State, history []session.Message) {
	for _, m := range history {
		state.AddMessage(m.Role, m.Content, m.Metadata)
	}
}

func editSummaries(edits []session.FileEdit) []string {
	out := make([]string, 0, len(edits))
	for _, e := range edits {
		out = append(out, fmt.Sprintf("%s (%s): %s", e.FileName, e.EditType, e.Description))
	}
	return out
}

func meanScore(files []retrieve.FileAnalysis) float64 {
	if len(files) == 0 {
		return 0
	}
	var sum float64
	for _, f := range files {
		sum += f.Score
	}
	return sum / float64(len(files))
}

// taskCategory tags requests whose wording implies a market-data app so
// the financial logical check applies.
func taskCategory(prompt string) string {
	lower := strings.ToLower(prompt)
	for _, kw := range []string{"stock", "market data", "ticker", "portfolio", "financial"} {
		if strings.Contains(lower, kw) {
			return "financial"
		}
	}
	return ""
}

// componentName derives a component name from a file path, empty when
// the file does not look like a component source file.
func componentName(path string) string {
	base := path
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.Index(base, "."); i >= 0 {
		base = base[:i]
	}
	if base == "" || base[0] < 'A' || base[0] > 'Z' {
		return ""
	}
	return base
}

func summarizeEdits(edits []edit.SurgicalEdit) string {
	parts := make([]string, 0, len(edits))
	for _, e := range edits {
		parts = append(parts, fmt.Sprintf("%s: %s", e.FilePath, e.ChangeDescription))
	}
	return "Applied edits. " + strings.Join(parts, "; ")
}
