package plan

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appforge/internal/config"
	"appforge/internal/intent"
	"appforge/internal/llm"
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

func TestEstimateComplexity(t *testing.T) {
	assert.Equal(t, ComplexityLow, EstimateComplexity(intent.EditFix, 1, 10))
	assert.Equal(t, ComplexityMedium, EstimateComplexity(intent.EditUpdate, 1, 20))
	assert.Equal(t, ComplexityMedium, EstimateComplexity(intent.EditEnhance, 2, 10))
	assert.Equal(t, ComplexityHigh, EstimateComplexity(intent.EditRefactor, 3, 100))
	// Target count saturates at 3, project size contribution at 2.
	assert.Equal(t,
		EstimateComplexity(intent.EditRefactor, 3, 1000),
		EstimateComplexity(intent.EditRefactor, 30, 100))
}

func TestCreatePlanParsesJSON(t *testing.T) {
	response := `{"approach":"surgical_edit","reasoning":"small change","phases":["find","edit","verify"],` +
		`"riskAssessment":["may break layout"],"successCriteria":["toggle renders"]}`
	p := NewPlanner(&fakeClient{text: response}, config.PhaseModel{Model: "fake"})

	result := p.CreatePlan(context.Background(), Input{
		Intent:           &intent.Analysis{EditType: intent.EditUpdate, SurgicalEdit: true, TargetFiles: []string{"Header.tsx"}},
		ProjectFileCount: 4,
	})

	assert.Equal(t, ApproachSurgical, result.Approach)
	assert.Equal(t, []string{"find", "edit", "verify"}, result.Phases)
	assert.Equal(t, ComplexityLow, result.EstimatedComplexity)
}

func TestCreatePlanFallbackOnTransportError(t *testing.T) {
	p := NewPlanner(&fakeClient{err: errors.New("rate limited")}, config.PhaseModel{Model: "fake"})

	result := p.CreatePlan(context.Background(), Input{
		Intent: &intent.Analysis{EditType: intent.EditCreate, SurgicalEdit: false},
	})

	require.NotNil(t, result)
	assert.Equal(t, ApproachCreation, result.Approach)
	assert.Len(t, result.Phases, 3)
	assert.NotEmpty(t, result.RiskAssessment)
	assert.NotEmpty(t, result.SuccessCriteria)
}

func TestCreatePlanExtractsMarkdownSections(t *testing.T) {
	response := `The plan is straightforward.

## Phases
- locate the header component
- add the toggle button

## Risks
1. state may reset on rerender

## Success criteria
- toggle switches the theme`
	p := NewPlanner(&fakeClient{text: response}, config.PhaseModel{Model: "fake"})

	result := p.CreatePlan(context.Background(), Input{
		Intent: &intent.Analysis{EditType: intent.EditEnhance, SurgicalEdit: true},
	})

	assert.Equal(t, []string{"locate the header component", "add the toggle button"}, result.Phases)
	assert.Equal(t, []string{"state may reset on rerender"}, result.RiskAssessment)
	assert.Equal(t, []string{"toggle switches the theme"}, result.SuccessCriteria)
	assert.Equal(t, "The plan is straightforward.", result.Reasoning)
}

func TestFallbackApproachFollowsRefactorIntent(t *testing.T) {
	p := NewPlanner(&fakeClient{err: errors.New("down")}, config.PhaseModel{Model: "fake"})

	result := p.CreatePlan(context.Background(), Input{
		Intent: &intent.Analysis{EditType: intent.EditRefactor, SurgicalEdit: true},
	})
	assert.Equal(t, ApproachRefactor, result.Approach)
}
