// Package intent classifies user requests into edit types with extracted
// search terms and target files, backed by a completion call plus a static
// pattern catalog.
package intent

// EditType categorizes what kind of change a request asks for.
type EditType string

const (
	EditCreate   EditType = "CREATE"
	EditUpdate   EditType = "UPDATE"
	EditFix      EditType = "FIX"
	EditEnhance  EditType = "ENHANCE"
	EditRefactor EditType = "REFACTOR"
)

// ParseEditType normalizes a string to a known edit type; unknown values
// map to CREATE.
func ParseEditType(s string) EditType {
	switch EditType(s) {
	case EditUpdate, EditFix, EditEnhance, EditRefactor:
		return EditType(s)
	default:
		return EditCreate
	}
}

// Analysis is the classified intent for one user request. Created once per
// request; confidence may be revised once by catalog enrichment.
type Analysis struct {
	EditType        EditType `json:"editType"`
	Reasoning       string   `json:"reasoning"`
	TargetFiles     []string `json:"targetFiles"`
	SearchTerms     []string `json:"searchTerms"`
	RegexPatterns   []string `json:"regexPatterns,omitempty"`
	ExpectedChanges []string `json:"expectedChanges"`
	SurgicalEdit    bool     `json:"surgicalEdit"`
	Confidence      float64  `json:"confidence"`
}

// ProjectMeta carries session-derived context into classification: known
// component names and recent change descriptions.
type ProjectMeta struct {
	Components  []string
	RecentEdits []string
}
