package search

import (
	"strings"
	"unicode/utf8"
)

// Matcher scores how well term occurs in text. Both are already normalized.
// The result is in [0,1]; 0 means no match.
type Matcher interface {
	Match(text, term string, threshold float64) float64
}

// SubstringMatcher only accepts exact containment
type SubstringMatcher struct{}

// Match returns 1 when text contains term
func (SubstringMatcher) Match(text, term string, threshold float64) float64 {
	if term != "" && strings.Contains(text, term) {
		return 1
	}
	return 0
}

// FuzzyMatcher accepts containment, or a word of text whose edit-distance
// similarity to term is at least 1-threshold.
type FuzzyMatcher struct {
	// Terms shorter than this (in runes) must match exactly
	MinTermLength int
}

// DefaultFuzzyMatcher returns the matcher used when fuzzy matching is enabled
func DefaultFuzzyMatcher() FuzzyMatcher {
	return FuzzyMatcher{MinTermLength: 3}
}

// Match scores term against the words of text
func (m FuzzyMatcher) Match(text, term string, threshold float64) float64 {
	if term == "" {
		return 0
	}
	if strings.Contains(text, term) {
		return 1
	}
	if utf8.RuneCountInString(term) < m.MinTermLength || threshold <= 0 {
		return 0
	}

	need := 1 - threshold
	// A length difference above this already rules out enough similarity
	maxGap := float64(len(term)) * threshold / need
	if need <= 0 {
		maxGap = float64(len(text))
	}

	best := 0.0
	for _, word := range strings.Fields(text) {
		if float64(lengthGap(len(word), len(term))) > maxGap {
			continue
		}
		if sim := Similarity(word, term); sim > best {
			best = sim
		}
	}
	if best >= need {
		return best
	}
	return 0
}
