package edit

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// ChangedLines returns 1-based line numbers where original and modified
// differ positionally, scanning to the longer of the two; lines present
// only on one side count as changed.
func ChangedLines(original, modified string) []int {
	origLines := strings.Split(original, "\n")
	modLines := strings.Split(modified, "\n")

	n := len(origLines)
	if len(modLines) > n {
		n = len(modLines)
	}

	var changed []int
	for i := 0; i < n; i++ {
		var o, m string
		if i < len(origLines) {
			o = origLines[i]
		}
		if i < len(modLines) {
			m = modLines[i]
		}
		if o != m {
			changed = append(changed, i+1)
		}
	}
	return changed
}

// DescribeChanges summarizes the edit as inserted/deleted character and
// line counts for progress reporting.
func DescribeChanges(original, modified string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(original, modified, true)
	dmp.DiffCleanupSemantic(diffs)

	var inserted, deleted int
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			inserted += len(d.Text)
		case diffmatchpatch.DiffDelete:
			deleted += len(d.Text)
		}
	}

	lines := len(ChangedLines(original, modified))
	return fmt.Sprintf("%d lines changed (+%d/-%d chars)", lines, inserted, deleted)
}
