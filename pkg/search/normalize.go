package search

import (
	"strings"
	"unicode"
)

// Normalize lowercases s, strips everything except letters (any script),
// digits and whitespace, collapses whitespace runs and trims.
// Indexing and querying both go through this function.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	pendingSpace := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSpace {
				b.WriteByte(' ')
				pendingSpace = false
			}
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// Segmenter splits text that has no whitespace word boundaries
type Segmenter interface {
	Segment(text string) []string
}

// Tokenize normalizes a query and splits it into distinct terms.
// Tokens in Japanese script are further split by seg when it is non-nil.
func Tokenize(query string, seg Segmenter) []string {
	fields := strings.Fields(Normalize(query))
	terms := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))

	add := func(term string) {
		if term == "" || seen[term] {
			return
		}
		seen[term] = true
		terms = append(terms, term)
	}

	for _, field := range fields {
		if seg == nil || !containsJapanese(field) {
			add(field)
			continue
		}
		pieces := seg.Segment(field)
		if len(pieces) <= 1 {
			add(field)
			continue
		}
		for _, piece := range pieces {
			add(Normalize(piece))
		}
	}
	return terms
}

func containsJapanese(text string) bool {
	for _, r := range text {
		if unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han) {
			return true
		}
	}
	return false
}
