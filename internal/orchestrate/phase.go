// Package orchestrate sequences the generation pipeline: intent analysis,
// context retrieval, planning, execution with bounded retry, and a final
// validation gate.
package orchestrate

import (
	"time"
)

// PhaseStatus is the lifecycle of one reasoning phase.
type PhaseStatus string

const (
	PhasePending    PhaseStatus = "pending"
	PhaseInProgress PhaseStatus = "in_progress"
	PhaseCompleted  PhaseStatus = "completed"
	PhaseFailed     PhaseStatus = "failed"
)

// ReasoningPhase records one pipeline stage for the run report. Status
// transitions are monotonic: pending to in_progress to a terminal state,
// then frozen.
type ReasoningPhase struct {
	Name     string        `json:"name"`
	Status   PhaseStatus   `json:"status"`
	Result   any           `json:"result,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Error    string        `json:"error,omitempty"`

	started time.Time
}

func newPhase(name string) *ReasoningPhase {
	return &ReasoningPhase{Name: name, Status: PhasePending}
}

func (p *ReasoningPhase) start() {
	if p.Status != PhasePending {
		return
	}
	p.Status = PhaseInProgress
	p.started = time.Now()
}

func (p *ReasoningPhase) complete(result any) {
	if p.Status != PhaseInProgress {
		return
	}
	p.Status = PhaseCompleted
	p.Result = result
	p.Duration = time.Since(p.started)
}

func (p *ReasoningPhase) fail(err error) {
	if p.Status != PhaseInProgress {
		return
	}
	p.Status = PhaseFailed
	if err != nil {
		p.Error = err.Error()
	}
	p.Duration = time.Since(p.started)
}
