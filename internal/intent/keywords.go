package intent

import "strings"

// stopwords are skipped during naive keyword extraction.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "this": {},
	"from": {}, "into": {}, "make": {}, "want": {}, "need": {}, "have": {},
	"please": {}, "should": {}, "would": {}, "could": {}, "when": {},
	"then": {}, "than": {}, "some": {}, "able": {}, "about": {}, "also": {},
	"there": {}, "their": {}, "where": {}, "which": {}, "will": {},
	"what": {}, "your": {}, "just": {}, "like": {}, "them": {}, "does": {},
	"doesn't": {}, "don't": {}, "it's": {}, "its": {},
}

// ExtractKeywords pulls candidate search terms from free text: lowercased
// words longer than three characters with stopwords removed, in first-seen
// order without duplicates.
func ExtractKeywords(text string) []string {
	seen := make(map[string]struct{})
	var keywords []string

	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?'\"()[]{}")
		if len(word) <= 3 {
			continue
		}
		if _, stop := stopwords[word]; stop {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
	}

	return keywords
}
