// Package parse extracts structured JSON from model responses.
//
// Completion models asked for JSON-only output still wrap it in prose or
// fenced code blocks often enough that a single json.Unmarshal is not
// reliable. Extraction runs a fixed strategy pipeline: direct parse, fenced
// code block, first balanced object substring. Each strategy is a pure
// function from string to candidate JSON text.
package parse

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when no strategy produced parseable JSON.
var ErrNoJSON = errors.New("no parseable JSON found in response")

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// strategy returns a candidate JSON substring, or "" if not applicable.
type strategy func(text string) string

var strategies = []strategy{
	direct,
	fencedBlock,
	balancedObject,
}

// Into extracts JSON from text and unmarshals it into v, trying each
// strategy in order. Returns ErrNoJSON if every strategy fails.
func Into(text string, v any) error {
	for _, s := range strategies {
		candidate := s(text)
		if candidate == "" {
			continue
		}
		if err := json.Unmarshal([]byte(candidate), v); err == nil {
			return nil
		}
	}
	return ErrNoJSON
}

// direct accepts the whole trimmed text as a candidate.
func direct(text string) string {
	return strings.TrimSpace(text)
}

// fencedBlock extracts the first ```json fenced block containing an object.
func fencedBlock(text string) string {
	m := fencedBlockRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// balancedObject extracts the first brace-balanced {...} substring. String
// literals are skipped so braces inside values don't break the count.
func balancedObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1]
				}
			}
		}
	}
	return ""
}
