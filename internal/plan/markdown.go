package plan

import (
	"regexp"
	"strings"
)

var listItemRe = regexp.MustCompile(`^\s*(?:[-*+]|\d+[.)])\s+(.*)`)

// extractSection finds a markdown heading whose text contains name
// (case-insensitive) and collects the bullet or numbered list items below
// it, stopping at the next heading. Returns nil if the section is absent.
func extractSection(markdown, name string) []string {
	lines := strings.Split(markdown, "\n")
	lowerName := strings.ToLower(name)

	inSection := false
	var items []string

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "#") {
			heading := strings.ToLower(strings.TrimLeft(trimmed, "# "))
			inSection = strings.Contains(heading, lowerName)
			continue
		}

		if !inSection {
			continue
		}

		if m := listItemRe.FindStringSubmatch(line); m != nil {
			item := strings.TrimSpace(m[1])
			if item != "" {
				items = append(items, item)
			}
		}
	}

	return items
}

// sectionOrDefault extracts a named section's list items, substituting a
// fixed default when the section is absent or empty.
func sectionOrDefault(markdown, name string, fallback []string) []string {
	if items := extractSection(markdown, name); len(items) > 0 {
		return items
	}
	return fallback
}
