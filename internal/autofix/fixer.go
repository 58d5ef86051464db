package autofix

import "appforge/internal/logging"

// Result reports what Fix accomplished. RemainingErrors holds the errors
// whose rewrites changed nothing plus everything unfixable.
type Result struct {
	FixedCode       string          `json:"fixedCode"`
	AppliedFixes    []string        `json:"appliedFixes"`
	RemainingErrors []DetectedError `json:"remainingErrors"`
	Success         bool            `json:"success"`
}

// Fix applies the rewrite for each auto-fixable error in detection order,
// once per error. A rewrite that leaves the code unchanged demotes its
// error to RemainingErrors. Success means at least one rewrite took
// effect.
func Fix(code string, errs []DetectedError) Result {
	fixes := fixStrategies()

	result := Result{FixedCode: code}
	for _, e := range errs {
		if !e.AutoFixable {
			result.RemainingErrors = append(result.RemainingErrors, e)
			continue
		}

		fix, ok := fixes[e.FixStrategy]
		if !ok {
			logging.Warn("no rewrite registered for fix strategy", "strategy", e.FixStrategy)
			result.RemainingErrors = append(result.RemainingErrors, e)
			continue
		}

		rewritten := fix(result.FixedCode)
		if rewritten == result.FixedCode {
			result.RemainingErrors = append(result.RemainingErrors, e)
			continue
		}

		result.FixedCode = rewritten
		result.AppliedFixes = append(result.AppliedFixes, e.FixStrategy)
		result.Success = true
	}
	return result
}

// fixStrategies indexes rule rewrites by rule ID, which doubles as the
// FixStrategy recorded on detected errors.
func fixStrategies() map[string]func(string) string {
	fixes := make(map[string]func(string) string)
	for _, rule := range Rules() {
		if rule.Fix != nil {
			fixes[rule.ID] = rule.Fix
		}
	}
	return fixes
}
