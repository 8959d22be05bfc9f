package search

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

const (
	minSuggestionQuery = 2
	defaultSuggestions = 5
	// Minimum similarity for a did-you-mean substitution
	correctionSimilarity = 0.5
)

// Suggestions returns up to limit title words and tags containing query,
// best fuzzy match first. Queries shorter than two characters yield nothing.
func Suggestions(idx *Index, query string, limit int) []string {
	q := Normalize(query)
	if idx == nil || len([]rune(q)) < minSuggestionQuery {
		return []string{}
	}
	if limit <= 0 {
		limit = defaultSuggestions
	}

	seen := make(map[string]bool)
	var candidates []string
	add := func(s string) {
		if s == "" || seen[s] || !strings.Contains(s, q) {
			return
		}
		seen[s] = true
		candidates = append(candidates, s)
	}
	for i := range idx.fields {
		for _, word := range strings.Fields(idx.fields[i].title) {
			add(word)
		}
		for _, tag := range idx.fields[i].tags {
			add(tag)
		}
	}
	if len(candidates) == 0 {
		return []string{}
	}

	scores := make(map[string]int, len(candidates))
	for _, m := range fuzzy.Find(q, candidates) {
		scores[m.Str] = m.Score
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if scores[a] != scores[b] {
			return scores[a] > scores[b]
		}
		return a < b
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// RelatedContent scores every other entry against the entry with id:
// one point for the same category and one per shared tag. Entries scoring
// zero are dropped; the rest are ordered by score, then id.
func RelatedContent(idx *Index, id string, limit int) []Related {
	if idx == nil {
		return []Related{}
	}
	pos := idx.find(id)
	if pos < 0 {
		return []Related{}
	}
	if limit <= 0 {
		limit = defaultSuggestions
	}

	source := &idx.Entries[pos]
	sourceTags := idx.fields[pos].tagSet

	related := make([]Related, 0)
	for i := range idx.Entries {
		if i == pos || idx.Entries[i].ID == id {
			continue
		}
		score := 0.0
		if source.Category != "" && strings.EqualFold(source.Category, idx.Entries[i].Category) {
			score++
		}
		for _, tag := range idx.fields[i].tags {
			if sourceTags[tag] {
				score++
			}
		}
		if score > 0 {
			related = append(related, Related{ID: idx.Entries[i].ID, Score: score})
		}
	}

	sort.SliceStable(related, func(i, j int) bool {
		if related[i].Score != related[j].Score {
			return related[i].Score > related[j].Score
		}
		return related[i].ID < related[j].ID
	})
	if len(related) > limit {
		related = related[:limit]
	}
	return related
}

// SuggestedQueries proposes alternatives for a query that matched nothing:
// unknown terms replaced by their closest indexed word, then completions of
// the last term.
func SuggestedQueries(idx *Index, terms []string, limit int) []string {
	if idx == nil || len(terms) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = defaultSuggestions
	}
	vocab := idx.Vocabulary()
	original := strings.Join(terms, " ")

	var out []string
	seen := map[string]bool{original: true}
	add := func(q string) {
		if len(out) >= limit || seen[q] {
			return
		}
		seen[q] = true
		out = append(out, q)
	}

	corrected := make([]string, len(terms))
	changed := false
	for i, term := range terms {
		corrected[i] = term
		if vocab.Contains(term) {
			continue
		}
		if word, ok := vocab.Closest(term, correctionSimilarity); ok {
			corrected[i] = word
			changed = true
		}
	}
	if changed {
		add(strings.Join(corrected, " "))
	}

	last := len(terms) - 1
	for _, word := range vocab.WithPrefix(terms[last], limit+1) {
		completed := append(append([]string(nil), corrected[:last]...), word)
		add(strings.Join(completed, " "))
	}
	return out
}

func (e *Engine) suggestQueries(idx *Index, terms []string) []string {
	return SuggestedQueries(idx, terms, e.config.MaxSuggested)
}
