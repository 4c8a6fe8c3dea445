package index

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/model/encoder"
)

func newFixtureIndex() *Index {
	enc := encoder.New("index-test", encoder.Config{
		Hidden: 32, Layers: 1, Intermediate: 64, MaxSeq: 32, Vocab: 128,
		EmbeddingDim: 32, NormalizeOutput: true,
	})
	return New(enc)
}

func TestAddAndSearchReturnsSelf(t *testing.T) {
	idx := newFixtureIndex()
	idx.Add("doc1", Document{Title: "First", Content: "the quick brown fox"})
	idx.Add("doc2", Document{Title: "Second", Content: "completely unrelated text about weather"})

	matches := idx.Search("the quick brown fox", 5, -1)
	require.NotEmpty(t, matches)
	assert.Equal(t, "doc1", matches[0].DocID)
}

func TestRemoveDropsDocument(t *testing.T) {
	idx := newFixtureIndex()
	idx.Add("doc1", Document{Content: "hello world"})
	idx.Remove("doc1")

	docCount, embCount := idx.Stats()
	assert.Equal(t, 0, docCount)
	assert.Equal(t, 0, embCount)
}

func TestFindSimilarExcludesSelf(t *testing.T) {
	idx := newFixtureIndex()
	idx.Add("doc1", Document{Content: "alpha beta gamma"})
	idx.Add("doc2", Document{Content: "alpha beta gamma"})

	matches := idx.FindSimilar("doc1", 5)
	for _, m := range matches {
		assert.NotEqual(t, "doc1", m.DocID)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	idx := newFixtureIndex()
	idx.Add("doc1", Document{Title: "T", Content: "hello there"})
	dir := t.TempDir()
	require.NoError(t, idx.Save(dir))

	reloaded := newFixtureIndex()
	require.NoError(t, reloaded.Load(dir))
	docCount, embCount := reloaded.Stats()
	assert.Equal(t, 1, docCount)
	assert.Equal(t, 1, embCount)
	assert.FileExists(t, filepath.Join(dir, "documents.json"))
}
