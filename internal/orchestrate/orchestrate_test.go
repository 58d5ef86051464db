package orchestrate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appforge/internal/autofix"
	"appforge/internal/config"
	"appforge/internal/edit"
	"appforge/internal/intent"
	"appforge/internal/llm"
	"appforge/internal/plan"
	"appforge/internal/progress"
	"appforge/internal/session"
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

func pipelineConfig(maxRetries int) config.PipelineConfig {
	return config.PipelineConfig{
		MaxRetries:         maxRetries,
		FileCaps:           config.FileCaps{Update: 1, Fix: 1, Enhance: 2, Refactor: 3, Default: 1},
		RelevanceThreshold: 0.1,
		MaxContextFiles:    5,
	}
}

func TestRetryBound(t *testing.T) {
	builds := 0
	build := func(ctx context.Context, errCtx string) ([]edit.SurgicalEdit, error) {
		builds++
		// Every attempt produces code with an unfixable placeholder.
		return []edit.SurgicalEdit{{
			FilePath:        "App.tsx",
			ModifiedContent: "const key = YOUR_API_KEY;",
		}}, nil
	}

	stream := progress.NewStreamer(nil)
	defer stream.Close()

	result := RunWithRetry(context.Background(), pipelineConfig(2), autofix.Context{}, build, stream)

	assert.Equal(t, 3, builds)
	assert.Equal(t, 3, result.Attempts)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.RemainingErrors)
	assert.NotEmpty(t, result.LastErrorContext)
}

func TestRetrySucceedsImmediatelyOnCleanCode(t *testing.T) {
	builds := 0
	build := func(ctx context.Context, errCtx string) ([]edit.SurgicalEdit, error) {
		builds++
		return []edit.SurgicalEdit{{FilePath: "App.tsx", ModifiedContent: "const x = 1;"}}, nil
	}

	stream := progress.NewStreamer(nil)
	defer stream.Close()

	result := RunWithRetry(context.Background(), pipelineConfig(2), autofix.Context{}, build, stream)

	assert.Equal(t, 1, builds)
	assert.True(t, result.Success)
	require.Len(t, result.Edits, 1)
}

func TestRetrySucceedsAfterAutoFix(t *testing.T) {
	build := func(ctx context.Context, errCtx string) ([]edit.SurgicalEdit, error) {
		return []edit.SurgicalEdit{{
			FilePath:        "App.tsx",
			ModifiedContent: "fetch('url/${x}')",
		}}, nil
	}

	stream := progress.NewStreamer(nil)
	defer stream.Close()

	result := RunWithRetry(context.Background(), pipelineConfig(2), autofix.Context{}, build, stream)

	require.True(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	require.Len(t, result.Edits, 1)
	assert.Contains(t, result.Edits[0].ModifiedContent, "`url/${x}`")
	assert.NotEmpty(t, result.AppliedFixes)
}

func newTestOrchestrator(client llm.Client, maxRetries int) (*Orchestrator, *session.Store) {
	model := config.PhaseModel{Model: "fake"}
	sessions := session.NewStore(config.SessionConfig{MessageCap: 50, EditCap: 20, DuplicateThreshold: 0.8})
	cfg := pipelineConfig(maxRetries)

	orc := New(
		intent.NewClassifier(client, intent.NewCatalog(), model),
		plan.NewPlanner(client, model),
		edit.NewEditor(client, model, cfg.FileCaps),
		sessions,
		nil,
		cfg,
	)
	return orc, sessions
}

func TestRunFailsValidationOnZeroEdits(t *testing.T) {
	// Every completion call fails: intent and plan degrade to fallbacks,
	// the editor produces nothing, and validation must reject the run.
	orc, sessions := newTestOrchestrator(&fakeClient{err: errors.New("unreachable")}, 0)
	defer sessions.Close()

	stream := progress.NewStreamer(nil)
	result := orc.Run(context.Background(), Request{
		Prompt: "build a dashboard",
		Files:  snapshot.Snapshot{},
	}, stream)
	stream.Close()

	assert.False(t, result.Success)
	assert.Equal(t, ErrNoEdits.Error(), result.Error)

	require.Len(t, result.Phases, 5)
	for _, p := range result.Phases[:4] {
		assert.Equal(t, PhaseCompleted, p.Status, p.Name)
	}
	assert.Equal(t, PhaseFailed, result.Phases[4].Status)
}

func TestRunSucceedsAndUpdatesSession(t *testing.T) {
	// A single canned response serves every phase: it parses as a plan
	// and intent JSON fails over to fallbacks, while the editor extracts
	// the fenced code as a new file.
	client := &fakeClient{text: "```tsx\n// Dashboard.tsx\nexport default function Dashboard() { return null; }\n```"}
	orc, sessions := newTestOrchestrator(client, 0)
	defer sessions.Close()

	stream := progress.NewStreamer(nil)
	result := orc.Run(context.Background(), Request{
		Prompt: "build a dashboard page",
		Files:  snapshot.Snapshot{},
	}, stream)
	stream.Close()

	require.True(t, result.Success, result.Error)
	require.Len(t, result.Edits, 1)
	assert.Equal(t, "Dashboard.tsx", result.Edits[0].FilePath)

	for _, p := range result.Phases {
		assert.Equal(t, PhaseCompleted, p.Status, p.Name)
	}

	state := sessions.Get(result.SessionID)
	require.NotNil(t, state)
	assert.Len(t, state.RecentEdits(), 1)
	assert.Contains(t, state.Components(), "Dashboard")

	msgs := state.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "assistant", msgs[1].Role)
}

func TestDuplicateRequestWarning(t *testing.T) {
	client := &fakeClient{text: "```tsx\n// Widget.tsx\nexport default function Widget() { return null; }\n```"}
	orc, sessions := newTestOrchestrator(client, 0)
	defer sessions.Close()

	req := Request{Prompt: "build a weather widget", Files: snapshot.Snapshot{}}

	stream := progress.NewStreamer(nil)
	first := orc.Run(context.Background(), req, stream)
	stream.Close()
	assert.Empty(t, first.Warnings)

	req.SessionID = first.SessionID
	stream = progress.NewStreamer(nil)
	second := orc.Run(context.Background(), req, stream)
	stream.Close()

	require.NotEmpty(t, second.Warnings)
	assert.Contains(t, second.Warnings[0], "closely matches")
}

func TestPhaseTransitionsAreMonotonic(t *testing.T) {
	p := newPhase("intent")
	assert.Equal(t, PhasePending, p.Status)

	p.complete("ignored before start")
	assert.Equal(t, PhasePending, p.Status)

	p.start()
	p.complete("done")
	assert.Equal(t, PhaseCompleted, p.Status)

	p.fail(errors.New("late"))
	assert.Equal(t, PhaseCompleted, p.Status)
	assert.Empty(t, p.Error)
}
