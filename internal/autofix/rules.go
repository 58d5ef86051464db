// Package autofix detects a fixed set of known defect patterns in
// generated code and applies deterministic rewrites for the fixable ones.
// Detection is regex and heuristic based, not parsing: it catches the
// defects the generation models actually produce, nothing more.
package autofix

import (
	"fmt"
	"regexp"
	"strings"
)

// ErrorType is the defect taxonomy.
type ErrorType string

const (
	ErrorSyntax            ErrorType = "syntax"
	ErrorTemplateLiteral   ErrorType = "template_literal"
	ErrorUndefinedVariable ErrorType = "undefined_variable"
	ErrorMissingImport     ErrorType = "missing_import"
	ErrorCORS              ErrorType = "cors"
	ErrorLogical           ErrorType = "logical"
)

// Severity ranks a detected error.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// DetectedError is one defect found in generated code. It is data driving
// the fix loop, never a raised error.
type DetectedError struct {
	Type        ErrorType `json:"type"`
	Severity    Severity  `json:"severity"`
	Message     string    `json:"message"`
	Location    string    `json:"location,omitempty"`
	AutoFixable bool      `json:"autoFixable"`
	FixStrategy string    `json:"fixStrategy,omitempty"`
}

// Context carries request-level signals into detection.
type Context struct {
	// TaskCategory tags the request domain; "financial" enables the
	// market-data endpoint check.
	TaskCategory string
}

// Rule is one named defect detector with its optional rewrite. Rules are
// data so each can be unit-tested independently of the fix loop.
type Rule struct {
	ID       string
	Type     ErrorType
	Severity Severity
	Fixable  bool

	// Detect returns the errors this rule finds in code.
	Detect func(code string, rctx Context) []DetectedError

	// Fix rewrites code for one error instance; nil for unfixable rules.
	Fix func(code string) string
}

var (
	singleQuoteTemplateRe = regexp.MustCompile(`'[^'\n]*\$\{[^}]*\}[^'\n]*'`)
	doubleQuoteTemplateRe = regexp.MustCompile(`"[^"\n]*\$\{[^}]*\}[^"\n]*"`)

	placeholderVarRe = regexp.MustCompile(`\bYOUR_[A-Z_]+\b|\{\{\s*\w+\s*\}\}|<REPLACE_[A-Z_]+>`)

	hookUsageRe   = regexp.MustCompile(`\buse(State|Effect|Ref|Memo|Callback)\s*\(`)
	reactImportRe = regexp.MustCompile(`import\s+[^;\n]*from\s+['"]react['"]`)

	relativeFetchRe = regexp.MustCompile(`fetch\(\s*(['"` + "`" + `])(/[^'"` + "`" + `]*)['"` + "`" + `]`)

	localhostURLRe = regexp.MustCompile(`['"` + "`" + `]https?://localhost[:0-9/][^'"` + "`" + `]*['"` + "`" + `]`)
)

// Rules is the fixed, ordered detector catalog. Order matters: errors are
// fixed in detection order.
func Rules() []Rule {
	return []Rule{
		{
			ID:       "template-literal-quotes",
			Type:     ErrorTemplateLiteral,
			Severity: SeverityHigh,
			Fixable:  true,
			Detect: func(code string, _ Context) []DetectedError {
				var errs []DetectedError
				for _, m := range singleQuoteTemplateRe.FindAllString(code, -1) {
					errs = append(errs, DetectedError{
						Type:        ErrorTemplateLiteral,
						Severity:    SeverityHigh,
						Message:     fmt.Sprintf("template expression inside single-quoted string: %s", m),
						AutoFixable: true,
						FixStrategy: "template-literal-quotes",
					})
				}
				for _, m := range doubleQuoteTemplateRe.FindAllString(code, -1) {
					errs = append(errs, DetectedError{
						Type:        ErrorTemplateLiteral,
						Severity:    SeverityHigh,
						Message:     fmt.Sprintf("template expression inside double-quoted string: %s", m),
						AutoFixable: true,
						FixStrategy: "template-literal-quotes",
					})
				}
				return errs
			},
			Fix: func(code string) string {
				code = singleQuoteTemplateRe.ReplaceAllStringFunc(code, requoteBacktick)
				return doubleQuoteTemplateRe.ReplaceAllStringFunc(code, requoteBacktick)
			},
		},
		{
			ID:       "undefined-placeholder",
			Type:     ErrorUndefinedVariable,
			Severity: SeverityHigh,
			Fixable:  false,
			Detect: func(code string, _ Context) []DetectedError {
				var errs []DetectedError
				for _, m := range placeholderVarRe.FindAllString(code, -1) {
					errs = append(errs, DetectedError{
						Type:        ErrorUndefinedVariable,
						Severity:    SeverityHigh,
						Message:     fmt.Sprintf("unresolved placeholder: %s", m),
						AutoFixable: false,
					})
				}
				return errs
			},
		},
		{
			ID:       "missing-react-import",
			Type:     ErrorMissingImport,
			Severity: SeverityHigh,
			Fixable:  true,
			Detect: func(code string, _ Context) []DetectedError {
				if hookUsageRe.MatchString(code) && !reactImportRe.MatchString(code) {
					return []DetectedError{{
						Type:        ErrorMissingImport,
						Severity:    SeverityHigh,
						Message:     "React hooks used without importing from 'react'",
						AutoFixable: true,
						FixStrategy: "missing-react-import",
					}}
				}
				return nil
			},
			Fix: func(code string) string {
				hooks := usedHooks(code)
				if len(hooks) == 0 || reactImportRe.MatchString(code) {
					return code
				}
				return fmt.Sprintf("import { %s } from 'react';\n%s", strings.Join(hooks, ", "), code)
			},
		},
		{
			ID:       "relative-fetch-url",
			Type:     ErrorLogical,
			Severity: SeverityMedium,
			Fixable:  true,
			Detect: func(code string, _ Context) []DetectedError {
				var errs []DetectedError
				for _, m := range relativeFetchRe.FindAllStringSubmatch(code, -1) {
					errs = append(errs, DetectedError{
						Type:        ErrorLogical,
						Severity:    SeverityMedium,
						Message:     fmt.Sprintf("relative URL in fetch call: %s", m[2]),
						AutoFixable: true,
						FixStrategy: "relative-fetch-url",
					})
				}
				return errs
			},
			Fix: func(code string) string {
				return relativeFetchRe.ReplaceAllString(code, "fetch(`${API_BASE_URL}$2`")
			},
		},
		{
			ID:       "localhost-url",
			Type:     ErrorCORS,
			Severity: SeverityMedium,
			Fixable:  false,
			Detect: func(code string, _ Context) []DetectedError {
				var errs []DetectedError
				for _, m := range localhostURLRe.FindAllString(code, -1) {
					errs = append(errs, DetectedError{
						Type:        ErrorCORS,
						Severity:    SeverityMedium,
						Message:     fmt.Sprintf("hard-coded localhost URL will fail cross-origin in the preview sandbox: %s", m),
						AutoFixable: false,
					})
				}
				return errs
			},
		},
		{
			ID:       "unbalanced-brackets",
			Type:     ErrorSyntax,
			Severity: SeverityCritical,
			Fixable:  false,
			Detect: func(code string, _ Context) []DetectedError {
				if err := ValidateCode(code); err != nil {
					return []DetectedError{{
						Type:        ErrorSyntax,
						Severity:    SeverityCritical,
						Message:     err.Error(),
						AutoFixable: false,
					}}
				}
				return nil
			},
		},
		{
			ID:       "financial-endpoint",
			Type:     ErrorLogical,
			Severity: SeverityHigh,
			Fixable:  false,
			Detect: func(code string, rctx Context) []DetectedError {
				if rctx.TaskCategory == "financial" && !strings.Contains(code, "/api/stock-data") {
					return []DetectedError{{
						Type:        ErrorLogical,
						Severity:    SeverityHigh,
						Message:     "financial task does not reference the /api/stock-data endpoint",
						AutoFixable: false,
					}}
				}
				return nil
			},
		},
	}
}

// requoteBacktick swaps the surrounding quotes of a matched string literal
// for backticks.
func requoteBacktick(literal string) string {
	if len(literal) < 2 {
		return literal
	}
	return "`" + literal[1:len(literal)-1] + "`"
}

// usedHooks lists the distinct React hooks referenced by the code.
func usedHooks(code string) []string {
	seen := make(map[string]struct{})
	var hooks []string
	for _, m := range hookUsageRe.FindAllStringSubmatch(code, -1) {
		name := "use" + m[1]
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		hooks = append(hooks, name)
	}
	return hooks
}
