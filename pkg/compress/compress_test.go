package compress

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/model/compressor"
)

func TestRecommendAlgorithmBuckets(t *testing.T) {
	assert.Equal(t, "rle", RecommendAlgorithm(0.5))
	assert.Equal(t, "dictionary", RecommendAlgorithm(2.0))
	assert.Equal(t, "hybrid", RecommendAlgorithm(4.5))
	assert.Equal(t, "arithmetic", RecommendAlgorithm(7.0))
}

func TestAnalyzeRepetitiveDataLowEntropy(t *testing.T) {
	m := compressor.New("compress-test", compressor.Config{ContextSize: 32, Hidden: 16, Layers: 1})
	data := bytes.Repeat([]byte{'A'}, 1024)
	a := Analyze(m, data)
	assert.Equal(t, 1024, a.OriginalSize)
	assert.GreaterOrEqual(t, a.Entropy, 0.0)
}

func TestAnalyzeEmptyInput(t *testing.T) {
	m := compressor.New("compress-test", compressor.Config{ContextSize: 16, Hidden: 16, Layers: 1})
	a := Analyze(m, nil)
	assert.Equal(t, 0, a.OriginalSize)
	assert.Equal(t, 0.0, a.Entropy)
}

func TestScanNGramsFindsRepeats(t *testing.T) {
	data := []byte("abcabcabcabcxyz")
	ngrams := ScanNGrams(data)
	assert.NotEmpty(t, ngrams)
	assert.LessOrEqual(t, len(ngrams), 10)
}

func TestEnhanceCompressionBoundedBoost(t *testing.T) {
	e := EnhanceCompression(4.0, 1.0)
	// theoreticalMax=2.0, efficiencyBefore=0.5, ml_boost=min(0.3,(1-0.5)*0.5)=0.25,
	// new_ratio=1.0*1.25=1.25, efficiencyAfter=1.25/2.0=0.625.
	assert.InDelta(t, 0.5, e.EfficiencyBefore, 1e-9)
	assert.InDelta(t, 1.25, e.EstimatedNewRatio, 1e-9)
	assert.InDelta(t, 0.625, e.EfficiencyAfter, 1e-9)
	assert.GreaterOrEqual(t, e.EfficiencyAfter, e.EfficiencyBefore)
}

func TestEnhanceCompressionBoostCapsAtThirtyPercent(t *testing.T) {
	// Large headroom (efficiencyBefore near 0) should clamp ml_boost to 0.30
	// rather than following (1-efficiencyBefore)*0.5 unbounded.
	e := EnhanceCompression(8.0, 0.01)
	assert.InDelta(t, 0.01*1.30, e.EstimatedNewRatio, 1e-9)
}

func TestRecommendStrategyPassesWithinRange(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	data := make([]byte, 2048)
	r.Read(data)
	m := compressor.New("compress-test", compressor.Config{ContextSize: 16, Hidden: 16, Layers: 1})
	a := Analyze(m, data)
	ngrams := ScanNGrams(data)
	s := RecommendStrategy(a, ngrams)
	assert.GreaterOrEqual(t, s.Passes, 1)
	assert.LessOrEqual(t, s.Passes, 3)
	assert.NotEmpty(t, s.Algorithms)
}
