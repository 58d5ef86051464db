package intent

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ConfidenceTier ranks how strongly a catalog example predicts an edit.
type ConfidenceTier int

const (
	TierLow ConfidenceTier = iota + 1
	TierMedium
	TierHigh
)

// Estimate converts a tier to a confidence value for averaging with the
// model's own estimate.
func (t ConfidenceTier) Estimate() float64 {
	switch t {
	case TierHigh:
		return 0.9
	case TierMedium:
		return 0.7
	default:
		return 0.5
	}
}

// FuncNamePlaceholder in a regex pattern is expanded once per search term.
const FuncNamePlaceholder = "FUNC_NAME"

// Example is one catalog entry: a known edit scenario with the patterns
// that locate its edit sites.
type Example struct {
	ID              string
	EditType        EditType
	Description     string
	SearchTerms     []string
	RegexPatterns   []string
	TargetFileTypes []string // doublestar globs, e.g. "**/*.tsx"
	Tier            ConfidenceTier
}

// scenario groups examples under descriptive phrases matched against the
// prompt.
type scenario struct {
	Phrases  []string
	Examples []Example
}

// Catalog is the static table of edit scenarios. Read-only after
// initialization; Append exists for future learning but nothing in the
// pipeline calls it.
type Catalog struct {
	scenarios []scenario
}

// NewCatalog builds the built-in catalog.
func NewCatalog() *Catalog {
	return &Catalog{scenarios: builtinScenarios()}
}

func builtinScenarios() []scenario {
	return []scenario{
		{
			Phrases: []string{"dark mode", "theme toggle", "light mode"},
			Examples: []Example{
				{
					ID:              "theme-toggle",
					EditType:        EditEnhance,
					Description:     "Add a theme toggle wired to a dark-mode state flag",
					SearchTerms:     []string{"theme", "dark", "toggle", "useState"},
					RegexPatterns:   []string{`className=["'][^"']*["']`, `(?:const|let)\s+\[\w+,\s*set\w+\]`},
					TargetFileTypes: []string{"**/*.tsx", "**/*.jsx"},
					Tier:            TierHigh,
				},
			},
		},
		{
			Phrases: []string{"fix the fetch", "api call fails", "not loading data", "broken request"},
			Examples: []Example{
				{
					ID:              "fetch-repair",
					EditType:        EditFix,
					Description:     "Repair a fetch call: URL quoting, error handling, response parsing",
					SearchTerms:     []string{"fetch", "await", "response", "json"},
					RegexPatterns:   []string{`fetch\([^)]*\)`, `\.then\(`, `await\s+` + FuncNamePlaceholder + `\(`},
					TargetFileTypes: []string{"**/*.ts", "**/*.tsx", "**/*.js", "**/*.jsx"},
					Tier:            TierHigh,
				},
			},
		},
		{
			Phrases: []string{"add a form", "form validation", "validate input"},
			Examples: []Example{
				{
					ID:              "form-validation",
					EditType:        EditEnhance,
					Description:     "Add client-side validation to a form component",
					SearchTerms:     []string{"form", "onSubmit", "validate", "error"},
					RegexPatterns:   []string{`<form[^>]*>`, `onSubmit=\{`},
					TargetFileTypes: []string{"**/*.tsx", "**/*.jsx"},
					Tier:            TierMedium,
				},
			},
		},
		{
			Phrases: []string{"new component", "create a page", "add a section"},
			Examples: []Example{
				{
					ID:              "new-component",
					EditType:        EditCreate,
					Description:     "Create a new component file and export it",
					SearchTerms:     []string{"component", "export", "props"},
					RegexPatterns:   []string{`export\s+(?:default\s+)?function\s+[A-Z]\w*`},
					TargetFileTypes: []string{"**/*.tsx", "**/*.jsx"},
					Tier:            TierMedium,
				},
			},
		},
		{
			Phrases: []string{"rename", "restructure", "clean up the code", "split the file"},
			Examples: []Example{
				{
					ID:              "refactor-split",
					EditType:        EditRefactor,
					Description:     "Restructure code across files without behavior change",
					SearchTerms:     []string{"import", "export", "module"},
					RegexPatterns:   []string{`import\s+.*\s+from\s+['"]`, FuncNamePlaceholder + `\s*\(`},
					TargetFileTypes: []string{"**/*.ts", "**/*.tsx"},
					Tier:            TierLow,
				},
			},
		},
		{
			Phrases: []string{"change the text", "update the copy", "change the color", "adjust styling"},
			Examples: []Example{
				{
					ID:              "surface-tweak",
					EditType:        EditUpdate,
					Description:     "Small targeted change to rendered text or styling",
					SearchTerms:     []string{"className", "style", "text"},
					RegexPatterns:   []string{`className=["'][^"']*["']`, `style=\{\{`},
					TargetFileTypes: []string{"**/*.tsx", "**/*.jsx", "**/*.css"},
					Tier:            TierMedium,
				},
			},
		},
		{
			Phrases: []string{"stock", "market data", "price chart", "financial"},
			Examples: []Example{
				{
					ID:              "market-data-widget",
					EditType:        EditCreate,
					Description:     "Component fetching market data from the stock-data endpoint",
					SearchTerms:     []string{"stock", "symbol", "chart", "price"},
					RegexPatterns:   []string{`/api/stock-data`, `symbol=`},
					TargetFileTypes: []string{"**/*.tsx", "**/*.jsx"},
					Tier:            TierMedium,
				},
			},
		},
	}
}

// Append registers an extra example under a new scenario. Unused by the
// pipeline; kept for catalog learning experiments.
func (c *Catalog) Append(phrases []string, ex Example) {
	c.scenarios = append(c.scenarios, scenario{Phrases: phrases, Examples: []Example{ex}})
}

// FindMatching returns catalog examples matching the request, best
// confidence first. An example matches if its scenario phrase appears in
// the lowercased prompt, its edit type matches exactly, or any of its
// search terms overlaps a candidate term (case-insensitive, bidirectional
// substring test). Order among equal tiers is catalog declaration order.
func (c *Catalog) FindMatching(prompt string, editType EditType, searchTerms []string) []Example {
	lowerPrompt := strings.ToLower(prompt)

	var matches []Example
	for _, sc := range c.scenarios {
		phraseHit := false
		for _, phrase := range sc.Phrases {
			if strings.Contains(lowerPrompt, phrase) {
				phraseHit = true
				break
			}
		}

		for _, ex := range sc.Examples {
			if phraseHit || ex.EditType == editType || termsOverlap(ex.SearchTerms, searchTerms) {
				matches = append(matches, ex)
			}
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Tier > matches[j].Tier
	})
	return matches
}

// BestExample returns the highest-confidence match, or nil.
func (c *Catalog) BestExample(prompt string, editType EditType, searchTerms []string) *Example {
	matches := c.FindMatching(prompt, editType, searchTerms)
	if len(matches) == 0 {
		return nil
	}
	return &matches[0]
}

// termsOverlap reports whether any example term and candidate term contain
// each other (either direction), case-insensitive.
func termsOverlap(exampleTerms, candidateTerms []string) bool {
	for _, et := range exampleTerms {
		etLower := strings.ToLower(et)
		for _, ct := range candidateTerms {
			ctLower := strings.ToLower(ct)
			if strings.Contains(etLower, ctLower) || strings.Contains(ctLower, etLower) {
				return true
			}
		}
	}
	return false
}

// ExpandPatterns expands FuncNamePlaceholder once per search term: one
// concrete pattern per term per templated pattern. Patterns without the
// placeholder pass through unchanged.
func (e *Example) ExpandPatterns(searchTerms []string) []string {
	var out []string
	for _, p := range e.RegexPatterns {
		if !strings.Contains(p, FuncNamePlaceholder) {
			out = append(out, p)
			continue
		}
		for _, term := range searchTerms {
			out = append(out, strings.ReplaceAll(p, FuncNamePlaceholder, term))
		}
	}
	return out
}

// TargetPaths filters snapshot paths to those matching the example's
// target file-type globs.
func (e *Example) TargetPaths(paths []string) []string {
	if len(e.TargetFileTypes) == 0 {
		return paths
	}

	var out []string
	for _, path := range paths {
		normalized := filepath.ToSlash(path)
		for _, glob := range e.TargetFileTypes {
			if ok, err := doublestar.Match(glob, normalized); err == nil && ok {
				out = append(out, path)
				break
			}
		}
	}
	return out
}
