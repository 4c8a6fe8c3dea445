package encoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeNormalizedCosineIdentity(t *testing.T) {
	m := New("encoder-test", Config{
		Hidden: 64, Layers: 2, Intermediate: 128, MaxSeq: 16, Vocab: 500,
		EmbeddingDim: 64, NormalizeOutput: true,
	})

	ids := [][]int{{1, 2, 3, 4, 5}}
	a := m.Encode(ids)
	b := m.Encode(ids)

	require.Equal(t, a.Data, b.Data)

	sim := Similarity(a, b)
	assert.InDelta(t, 1.0, sim.Data[0], 1e-3)
}

func TestEncodeShape(t *testing.T) {
	m := New("encoder-test", Config{
		Hidden: 32, Layers: 1, Intermediate: 64, MaxSeq: 16, Vocab: 300,
		EmbeddingDim: 16, NormalizeOutput: false,
	})
	out := m.Encode([][]int{{1, 2, 3}, {4, 5, 6}})
	assert.Equal(t, []int{2, 16}, out.Shape)
}

func TestSearchRanksDescending(t *testing.T) {
	m := New("encoder-test", Config{
		Hidden: 16, Layers: 1, Intermediate: 32, MaxSeq: 8, Vocab: 100,
		EmbeddingDim: 16, NormalizeOutput: true,
	})
	query := [][]int{{1, 2, 3}}
	corpus := [][]int{{1, 2, 3}, {40, 50, 60}, {1, 2, 4}}

	matches := m.Search(query, corpus, 2)
	require.Len(t, matches, 2)
	assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)
}
