package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRespectsMaxNewTokens(t *testing.T) {
	m := NewSeeded("generator-test", Config{Hidden: 16, Layers: 1, Intermediate: 32, MaxSeq: 32, Vocab: 64}, 3)
	prompt := []int{1, 2, 3}
	out := m.Generate(prompt, SampleConfig{MaxNewTokens: 5, Temperature: 1.0})
	assert.Equal(t, len(prompt)+5, len(out))
	for _, id := range out {
		assert.GreaterOrEqual(t, id, 0)
		assert.Less(t, id, 64)
	}
}

func TestGenerateStopsAtEOS(t *testing.T) {
	m := NewSeeded("generator-test", Config{Hidden: 8, Layers: 1, Intermediate: 16, MaxSeq: 16, Vocab: 8}, 9)
	out := m.Generate([]int{0}, SampleConfig{MaxNewTokens: 50, Temperature: 1.0, HasEOS: true, EOSID: 0})
	require.LessOrEqual(t, len(out), 51)
}

func TestGenerateTopKAndTopP(t *testing.T) {
	m := NewSeeded("generator-test", Config{Hidden: 16, Layers: 2, Intermediate: 32, MaxSeq: 20, Vocab: 50}, 5)
	out := m.Generate([]int{1, 2}, SampleConfig{MaxNewTokens: 4, Temperature: 0.8, TopK: 5, TopP: 0.9})
	assert.Equal(t, 6, len(out))
}
