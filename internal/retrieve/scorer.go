package retrieve

import "strings"

// QueryKeywords extracts scoring keywords from a query: lowercased,
// whitespace-split words longer than two characters.
func QueryKeywords(query string) []string {
	var keywords []string
	for _, word := range strings.Fields(strings.ToLower(query)) {
		word = strings.Trim(word, ".,;:!?'\"()")
		if len(word) > 2 {
			keywords = append(keywords, word)
		}
	}
	return keywords
}

// KeywordScore scores a file against query keywords: each keyword present
// in path or content contributes at most one point, normalized by the
// keyword count. Result is in [0,1].
func KeywordScore(keywords []string, path, content string) float64 {
	if len(keywords) == 0 {
		return 0
	}

	haystack := strings.ToLower(path) + "\n" + strings.ToLower(content)

	points := 0.0
	for _, kw := range keywords {
		if strings.Count(haystack, kw) > 0 {
			points++
		}
	}

	return points / float64(len(keywords))
}
