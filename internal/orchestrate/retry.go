package orchestrate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"appforge/internal/autofix"
	"appforge/internal/config"
	"appforge/internal/edit"
	"appforge/internal/logging"
	"appforge/internal/progress"
)

// BuildFunc produces edits for one attempt. errorContext is empty on the
// first attempt and carries the previous attempt's failure detail after.
type BuildFunc func(ctx context.Context, errorContext string) ([]edit.SurgicalEdit, error)

// RetryResult is the outcome of the bounded build/detect/fix loop.
type RetryResult struct {
	Edits           []edit.SurgicalEdit
	Attempts        int
	AppliedFixes    []string
	RemainingErrors []autofix.DetectedError
	Success         bool

	// LastErrorContext is the failure detail of the final attempt when
	// the loop exhausts without success.
	LastErrorContext string
}

// RunWithRetry drives build, detect, and auto-fix for at most
// maxRetries+1 attempts. An attempt succeeds when detection finds
// nothing, or when auto-fix clears every error and the fixed code still
// validates. Failure detail from each attempt feeds the next one. The
// loop never returns an error; exhaustion yields Success=false with the
// last error context attached.
func RunWithRetry(ctx context.Context, cfg config.PipelineConfig, rctx autofix.Context, build BuildFunc, stream *progress.Streamer) RetryResult {
	result := RetryResult{}
	maxAttempts := cfg.MaxRetries + 1
	errCtx := ""

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.Attempts = attempt

		if attempt > 1 {
			stream.Emit(progress.EventErrorRecovery, fmt.Sprintf("retrying generation (attempt %d of %d)", attempt, maxAttempts))
			if !waitAttemptDelay(ctx, cfg.AttemptDelay) {
				result.LastErrorContext = errCtx
				return result
			}
		}

		edits, err := build(ctx, errCtx)
		if err != nil {
			logging.Warn("build attempt failed", "attempt", attempt, "error", err)
			errCtx = err.Error()
			continue
		}

		detected := detectAll(edits, rctx)
		if len(detected) == 0 {
			result.Edits = edits
			result.Success = true
			return result
		}

		logging.Info("defects detected in generated code", "attempt", attempt, "count", len(detected))
		fixed, applied, remaining := fixAll(edits, rctx)
		result.AppliedFixes = append(result.AppliedFixes, applied...)

		if len(remaining) == 0 {
			result.Edits = fixed
			result.Success = true
			return result
		}

		result.RemainingErrors = remaining
		errCtx = describeFailure(fixed, remaining, result.AppliedFixes)
	}

	result.LastErrorContext = errCtx
	return result
}

// detectAll runs detection over every produced edit.
func detectAll(edits []edit.SurgicalEdit, rctx autofix.Context) []autofix.DetectedError {
	var all []autofix.DetectedError
	for _, e := range edits {
		all = append(all, autofix.Detect(e.ModifiedContent, rctx)...)
	}
	return all
}

// fixAll rewrites each edit's content through the auto-fixer and
// re-validates. Remaining errors are re-detected on the fixed content so
// cleared defects do not linger.
func fixAll(edits []edit.SurgicalEdit, rctx autofix.Context) ([]edit.SurgicalEdit, []string, []autofix.DetectedError) {
	var applied []string
	var remaining []autofix.DetectedError

	fixed := make([]edit.SurgicalEdit, len(edits))
	for i, e := range edits {
		errs := autofix.Detect(e.ModifiedContent, rctx)
		if len(errs) == 0 {
			fixed[i] = e
			continue
		}

		res := autofix.Fix(e.ModifiedContent, errs)
		applied = append(applied, res.AppliedFixes...)

		if res.Success {
			e.ModifiedContent = res.FixedCode
			e.ChangeDescription = edit.DescribeChanges(e.OriginalContent, res.FixedCode)
			e.LinesChanged = edit.ChangedLines(e.OriginalContent, res.FixedCode)
		}

		post := autofix.Detect(e.ModifiedContent, rctx)
		remaining = append(remaining, post...)
		if len(post) == 0 {
			if err := autofix.ValidateCode(e.ModifiedContent); err != nil {
				remaining = append(remaining, autofix.DetectedError{
					Type:     autofix.ErrorSyntax,
					Severity: autofix.SeverityCritical,
					Message:  err.Error(),
					Location: e.FilePath,
				})
			}
		}
		fixed[i] = e
	}
	return fixed, applied, remaining
}

func describeFailure(edits []edit.SurgicalEdit, remaining []autofix.DetectedError, applied []string) string {
	var b strings.Builder
	b.WriteString("Previous attempt produced code with unresolved errors:\n")
	for _, e := range remaining {
		fmt.Fprintf(&b, "- [%s/%s] %s\n", e.Type, e.Severity, e.Message)
	}
	if len(applied) > 0 {
		fmt.Fprintf(&b, "Fixes already applied: %s\n", strings.Join(applied, ", "))
	}
	for _, e := range edits {
		fmt.Fprintf(&b, "\nFile %s:\n%s\n", e.FilePath, truncateCode(e.ModifiedContent, 2000))
	}
	return b.String()
}

func truncateCode(code string, n int) string {
	if len(code) <= n {
		return code
	}
	return code[:n] + "\n... (truncated)"
}

// waitAttemptDelay sleeps between attempts, returning false if the
// context was cancelled while waiting.
func waitAttemptDelay(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
