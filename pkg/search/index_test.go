package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebuildup/my-web-2025-sub006/pkg/content"
)

func TestVocabulary(t *testing.T) {
	idx := indexOf([]content.Record{javascriptTips()})
	vocab := idx.Vocabulary()
	require.NotNil(t, vocab)
	assert.Greater(t, vocab.Size(), 0)

	assert.True(t, vocab.Contains("javascript"))
	assert.True(t, vocab.Contains("tips"))

	word, ok := vocab.Closest("javascrpt", 0.5)
	require.True(t, ok)
	assert.Equal(t, "javascript", word)

	_, ok = vocab.Closest("zzzzzzzzzzzz", 0.5)
	assert.False(t, ok)

	assert.Equal(t, []string{"javascript"}, vocab.WithPrefix("java", 5))
	assert.Empty(t, vocab.WithPrefix("", 5))
}

func TestNilVocabulary(t *testing.T) {
	var v *Vocabulary
	assert.False(t, v.Contains("x"))
	assert.Zero(t, v.Size())
	_, ok := v.Closest("x", 0)
	assert.False(t, ok)
	assert.Nil(t, v.WithPrefix("x", 1))
}

func TestVocabularySimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("", ""))
	assert.Equal(t, 1.0, Similarity("react", "react"))
	assert.InDelta(t, 0.8, Similarity("react", "reakt"), 1e-9)
	assert.Equal(t, 0.0, Similarity("abc", "xyz"))
}

func TestIndexFind(t *testing.T) {
	idx := indexOf(siteRecords())
	assert.GreaterOrEqual(t, idx.find("blog1"), 0)
	assert.Equal(t, -1, idx.find("missing"))
	assert.Equal(t, 4, idx.Len())

	var empty *Index
	assert.Zero(t, empty.Len())
}
