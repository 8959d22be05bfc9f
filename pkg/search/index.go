package search

import (
	"sort"
	"strings"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	bsearch "github.com/blevesearch/bleve/v2/search"
)

// Index is an immutable snapshot of the search index. A search holds one
// Index for its whole scoring pass, so updates never mix into a running query.
type Index struct {
	Entries []IndexEntry
	BuiltAt time.Time

	fields     []entryFields
	vocabulary *Vocabulary
}

// entryFields caches the normalized per-field text of an entry
type entryFields struct {
	title       string
	description string
	tags        []string
	tagSet      map[string]bool
}

func newIndex(entries []IndexEntry, seg Segmenter) *Index {
	idx := &Index{
		Entries: entries,
		BuiltAt: time.Now(),
		fields:  make([]entryFields, len(entries)),
	}

	for i, e := range entries {
		f := entryFields{
			title:       Normalize(e.Title),
			description: Normalize(e.Description),
			tags:        make([]string, 0, len(e.Tags)),
			tagSet:      make(map[string]bool, len(e.Tags)),
		}
		for _, tag := range e.Tags {
			n := Normalize(tag)
			if n == "" || f.tagSet[n] {
				continue
			}
			f.tagSet[n] = true
			f.tags = append(f.tags, n)
		}
		idx.fields[i] = f
	}

	idx.vocabulary = newVocabulary(entries, seg)
	return idx
}

// Len returns the number of entries
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.Entries)
}

// Vocabulary returns the set of indexed words
func (idx *Index) Vocabulary() *Vocabulary {
	return idx.vocabulary
}

// find returns the position of the first entry with id, or -1
func (idx *Index) find(id string) int {
	for i := range idx.Entries {
		if idx.Entries[i].ID == id {
			return i
		}
	}
	return -1
}

// Vocabulary is the set of words appearing in the index. A bloom filter
// answers membership; the sorted word list backs nearest-word lookup.
type Vocabulary struct {
	filter *bloom.BloomFilter
	words  []string
}

func newVocabulary(entries []IndexEntry, seg Segmenter) *Vocabulary {
	set := make(map[string]bool)
	for _, e := range entries {
		for _, w := range strings.Fields(e.SearchableContent) {
			set[w] = true
			if seg != nil && containsJapanese(w) {
				for _, piece := range seg.Segment(w) {
					if n := Normalize(piece); n != "" {
						set[n] = true
					}
				}
			}
		}
	}

	words := make([]string, 0, len(set))
	for w := range set {
		words = append(words, w)
	}
	sort.Strings(words)

	n := uint(len(words))
	if n == 0 {
		n = 1
	}
	filter := bloom.NewWithEstimates(n, 0.01)
	for _, w := range words {
		filter.AddString(w)
	}

	return &Vocabulary{filter: filter, words: words}
}

// Contains reports whether word is (probably) an indexed word
func (v *Vocabulary) Contains(word string) bool {
	if v == nil {
		return false
	}
	return v.filter.TestString(word)
}

// Size returns the number of distinct words
func (v *Vocabulary) Size() int {
	if v == nil {
		return 0
	}
	return len(v.words)
}

// Closest returns the indexed word nearest to term by edit distance, provided
// its similarity is at least minSimilarity.
func (v *Vocabulary) Closest(term string, minSimilarity float64) (string, bool) {
	if v == nil || term == "" {
		return "", false
	}

	best := ""
	bestSim := -1.0
	for _, w := range v.words {
		// Words far longer or shorter than the term cannot be similar enough
		if lengthGap(len(w), len(term)) > len(term) {
			continue
		}
		sim := Similarity(w, term)
		if sim > bestSim {
			best, bestSim = w, sim
		}
	}
	if best == "" || bestSim < minSimilarity {
		return "", false
	}
	return best, true
}

// WithPrefix returns up to limit indexed words starting with prefix, in order
func (v *Vocabulary) WithPrefix(prefix string, limit int) []string {
	if v == nil || prefix == "" {
		return nil
	}
	i := sort.SearchStrings(v.words, prefix)
	var out []string
	for ; i < len(v.words) && len(out) < limit; i++ {
		if !strings.HasPrefix(v.words[i], prefix) {
			break
		}
		out = append(out, v.words[i])
	}
	return out
}

// Similarity maps the byte-level edit distance of a and b into [0,1], 1 meaning equal
func Similarity(a, b string) float64 {
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1
	}
	d := bsearch.LevenshteinDistance(a, b)
	return 1 - float64(d)/float64(longest)
}

func lengthGap(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
