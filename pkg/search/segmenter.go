package search

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// JapaneseSegmenter splits Japanese text into words with a morphological analyzer
type JapaneseSegmenter struct {
	mu sync.Mutex
	t  *tokenizer.Tokenizer
}

// NewJapaneseSegmenter loads the IPA dictionary. Loading takes a noticeable
// amount of memory, so callers should share one instance.
func NewJapaneseSegmenter() (*JapaneseSegmenter, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize japanese tokenizer: %w", err)
	}
	return &JapaneseSegmenter{t: t}, nil
}

// Segment returns the surface forms of text, dropping whitespace-only pieces
func (s *JapaneseSegmenter) Segment(text string) []string {
	s.mu.Lock()
	words := s.t.Wakati(text)
	s.mu.Unlock()

	out := words[:0]
	for _, w := range words {
		if strings.TrimSpace(w) != "" {
			out = append(out, w)
		}
	}
	return out
}
