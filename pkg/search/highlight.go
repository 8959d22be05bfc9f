package search

import (
	"sort"
	"strings"
	"unicode"
)

const ellipsis = "..."

// Highlighter cuts short snippets around matched terms
type Highlighter struct {
	// Snippet length in runes, excluding ellipsis markers
	Length int
	// Maximum snippets per result
	Max int
}

// Highlights returns up to Max snippets around occurrences of terms in the
// entry body, then its description. With no occurrence it falls back to the
// description truncated to Length.
func (h Highlighter) Highlights(e IndexEntry, terms []string) []string {
	out := make([]string, 0, h.Max)
	seen := make(map[string]bool)

	for _, text := range []string{e.Content, e.Description} {
		if len(out) >= h.Max {
			break
		}
		for _, snippet := range h.snippets(text, terms) {
			if len(out) >= h.Max {
				break
			}
			if seen[snippet] {
				continue
			}
			seen[snippet] = true
			out = append(out, snippet)
		}
	}

	if len(out) == 0 {
		if d := h.truncate(e.Description); d != "" {
			out = append(out, d)
		}
	}
	return out
}

// snippets finds term positions in text, merges positions that fit in one
// window and centers a window on each group
func (h Highlighter) snippets(text string, terms []string) []string {
	if text == "" || len(terms) == 0 {
		return nil
	}

	runes := []rune(text)
	lower := make([]rune, len(runes))
	for i, r := range runes {
		lower[i] = unicode.ToLower(r)
	}

	type span struct{ start, end int }
	var matches []span
	for _, term := range terms {
		t := []rune(term)
		for _, pos := range indexAll(lower, t) {
			matches = append(matches, span{pos, pos + len(t)})
		}
	}
	if len(matches) == 0 {
		return nil
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].start < matches[j].start })

	// Group occurrences that fit inside one window
	var groups []span
	current := matches[0]
	for _, m := range matches[1:] {
		if m.end-current.start <= h.Length {
			if m.end > current.end {
				current.end = m.end
			}
			continue
		}
		groups = append(groups, current)
		current = m
	}
	groups = append(groups, current)

	out := make([]string, 0, len(groups))
	for _, g := range groups {
		out = append(out, h.window(runes, g.start, g.end))
	}
	return out
}

// window returns Length runes centered on [start,end) with ellipsis markers
// on truncated sides
func (h Highlighter) window(runes []rune, start, end int) string {
	center := (start + end) / 2
	from := center - h.Length/2
	if from < 0 {
		from = 0
	}
	to := from + h.Length
	if to > len(runes) {
		to = len(runes)
		from = to - h.Length
		if from < 0 {
			from = 0
		}
	}

	snippet := strings.TrimSpace(string(runes[from:to]))
	if from > 0 {
		snippet = ellipsis + snippet
	}
	if to < len(runes) {
		snippet += ellipsis
	}
	return snippet
}

func (h Highlighter) truncate(s string) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= h.Length {
		return s
	}
	return strings.TrimSpace(string(runes[:h.Length])) + ellipsis
}

// indexAll returns every start offset of needle in haystack
func indexAll(haystack, needle []rune) []int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return nil
	}
	var out []int
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j, r := range needle {
			if haystack[i+j] != r {
				match = false
				break
			}
		}
		if match {
			out = append(out, i)
			i += len(needle) - 1
		}
	}
	return out
}
