package edit

import (
	"regexp"
	"strings"
)

var (
	fencedCodeRe = regexp.MustCompile("(?s)```[a-zA-Z]*\\n(.*?)```")

	// Leading comment carrying the intended filename, e.g.
	// "// src/components/Header.tsx" or "/* App.css */".
	filenameCommentRe = regexp.MustCompile(`^\s*(?://|/\*)\s*([\w./-]+\.[a-zA-Z]{2,4})\s*(?:\*/)?\s*$`)

	exportedNameRe = regexp.MustCompile(`export\s+(?:default\s+)?(?:function|class|const)\s+([A-Za-z_$][\w$]*)`)
	declaredNameRe = regexp.MustCompile(`(?:function|class|const)\s+([A-Za-z_$][\w$]*)`)
)

// DefaultFilename is used when no filename can be inferred from a
// creation response.
const DefaultFilename = "GeneratedComponent.tsx"

// ExtractCode pulls source code out of a completion response: the first
// fenced code block if present, otherwise the whole trimmed response.
func ExtractCode(response string) string {
	if m := fencedCodeRe.FindStringSubmatch(response); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(response)
}

// ExtractFilename looks for a filename in the first few lines of generated
// code, then falls back to inferring one from the first exported or
// declared identifier, then to DefaultFilename.
func ExtractFilename(code string) string {
	lines := strings.Split(code, "\n")
	limit := 3
	if len(lines) < limit {
		limit = len(lines)
	}
	for _, line := range lines[:limit] {
		if m := filenameCommentRe.FindStringSubmatch(line); m != nil {
			return m[1]
		}
	}

	if m := exportedNameRe.FindStringSubmatch(code); m != nil {
		return m[1] + ".tsx"
	}
	if m := declaredNameRe.FindStringSubmatch(code); m != nil {
		return m[1] + ".tsx"
	}

	return DefaultFilename
}
