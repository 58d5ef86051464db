// Package plan produces the strategic plan that drives execution: an
// approach, ordered phases, risks, success criteria, and a complexity
// estimate.
package plan

import "appforge/internal/intent"

// Approach names the overall editing strategy.
type Approach string

const (
	ApproachSurgical Approach = "surgical_edit"
	ApproachCreation Approach = "new_creation"
	ApproachRefactor Approach = "multi_file_refactor"
)

// ParseApproach normalizes a string to a known approach; unknown values
// map to new_creation.
func ParseApproach(s string) Approach {
	switch Approach(s) {
	case ApproachSurgical, ApproachRefactor:
		return Approach(s)
	default:
		return ApproachCreation
	}
}

// Complexity buckets the estimated effort.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// Plan is the structured output of the planning phase. Immutable once
// produced.
type Plan struct {
	Approach            Approach   `json:"approach"`
	Reasoning           string     `json:"reasoning"`
	Phases              []string   `json:"phases"`
	RiskAssessment      []string   `json:"riskAssessment"`
	SuccessCriteria     []string   `json:"successCriteria"`
	EstimatedComplexity Complexity `json:"estimatedComplexity"`
}

// editTypeWeight is the complexity base weight per edit type.
func editTypeWeight(t intent.EditType) float64 {
	switch t {
	case intent.EditFix:
		return 1
	case intent.EditCreate, intent.EditUpdate:
		return 2
	case intent.EditEnhance:
		return 3
	case intent.EditRefactor:
		return 5
	default:
		return 2
	}
}

// EstimateComplexity scores edit type weight + min(targetFiles,3) +
// min(projectFiles/10, 2), bucketed at ≤3 low, ≤6 medium, else high.
func EstimateComplexity(editType intent.EditType, targetFileCount, projectFileCount int) Complexity {
	score := editTypeWeight(editType)

	targets := float64(targetFileCount)
	if targets > 3 {
		targets = 3
	}
	score += targets

	spread := float64(projectFileCount) / 10
	if spread > 2 {
		spread = 2
	}
	score += spread

	switch {
	case score <= 3:
		return ComplexityLow
	case score <= 6:
		return ComplexityMedium
	default:
		return ComplexityHigh
	}
}
