package transformer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForwardShape(t *testing.T) {
	m := New("encoder-test", Config{Hidden: 64, Layers: 2, Heads: 2, Intermediate: 128, MaxSeq: 32, Vocab: 1000})

	ids := make([][]int, 2)
	for i := range ids {
		ids[i] = make([]int, 16)
		for j := range ids[i] {
			ids[i][j] = (i*16 + j) % 1000
		}
	}

	out, err := m.Forward(ids, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 16, 64}, out.Shape)
}

func TestEncodeMeanPooling(t *testing.T) {
	m := New("encoder-test", Config{Hidden: 32, Layers: 1, Heads: 2, Intermediate: 64, MaxSeq: 16, Vocab: 500})
	ids := [][]int{{1, 2, 3, 4}, {5, 6, 7, 8}}

	out, err := m.Encode(ids, nil, PoolMean)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 32}, out.Shape)
}

func TestEncodeUnknownPoolingIsConfigError(t *testing.T) {
	m := New("encoder-test", Config{Hidden: 16, Layers: 1, Heads: 2, Intermediate: 32, MaxSeq: 8, Vocab: 100})
	_, err := m.Encode([][]int{{1, 2}}, nil, Pooling("bogus"))
	require.Error(t, err)
}

func TestAttentionMaskSuppressesPosition(t *testing.T) {
	m := New("encoder-test", Config{Hidden: 16, Layers: 1, Heads: 2, Intermediate: 32, MaxSeq: 8, Vocab: 100})
	ids := [][]int{{1, 2, 3}}
	mask := [][]int{{1, 1, 0}}

	out, err := m.Forward(ids, mask)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 16}, out.Shape)
}
