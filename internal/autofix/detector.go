package autofix

import "appforge/internal/logging"

// Detect runs every rule against the code and concatenates findings in
// catalog order. An empty slice means the code passed all checks.
func Detect(code string, rctx Context) []DetectedError {
	var errs []DetectedError
	for _, rule := range Rules() {
		found := rule.Detect(code, rctx)
		if len(found) > 0 {
			logging.Debug("autofix rule matched", "rule", rule.ID, "count", len(found))
		}
		errs = append(errs, found...)
	}
	return errs
}

// HasCritical reports whether any detected error is critical severity.
func HasCritical(errs []DetectedError) bool {
	for _, e := range errs {
		if e.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// Fixable splits errors into those with a rewrite strategy and those
// without.
func Fixable(errs []DetectedError) (fixable, unfixable []DetectedError) {
	for _, e := range errs {
		if e.AutoFixable {
			fixable = append(fixable, e)
		} else {
			unfixable = append(unfixable, e)
		}
	}
	return fixable, unfixable
}
