// Package compress implements entropy estimation and compression strategy
// recommendation built on top of the LSTM byte-predictor.
// Grounded on original_source/ml/models/neural_compressor.py
// (estimate_entropy, compress_context, _recommend_algorithm) for the
// bucket thresholds, generalized with a Shannon-weighted n-gram scan using
// gonum's stat helpers for the strategy recommender.
package compress

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/model/compressor"
)

const entropyChunkSize = 256

// Analysis is the result of Analyze.
type Analysis struct {
	OriginalSize            int
	Entropy                 float64 // bits/byte
	EstimatedCompressedSize int
	Ratio                   float64
	RecommendedAlgorithm    string
	NextByteConfidences     []float32
}

// Analyze runs the byte-predictor over data and summarizes its entropy,
// estimated compressed size, and recommended algorithm.
func Analyze(model *compressor.Model, data []byte) Analysis {
	if len(data) == 0 {
		return Analysis{RecommendedAlgorithm: RecommendAlgorithm(0)}
	}

	entropy := model.EstimateEntropy(data, entropyChunkSize)
	size := len(data)
	estCompressed := int(math.Floor(float64(size) * entropy / 8))
	ratio := 0.0
	if estCompressed > 0 {
		ratio = float64(size) / float64(estCompressed)
	}

	return Analysis{
		OriginalSize:            size,
		Entropy:                 entropy,
		EstimatedCompressedSize: estCompressed,
		Ratio:                   ratio,
		RecommendedAlgorithm:    RecommendAlgorithm(entropy),
		NextByteConfidences:     nextByteConfidences(model, data),
	}
}

// nextByteConfidences returns, for every position with a known successor,
// the model's predicted probability of the actual next byte.
func nextByteConfidences(model *compressor.Model, data []byte) []float32 {
	if len(data) < 2 {
		return nil
	}
	confidences := make([]float32, 0, len(data)-1)
	carry := compressor.NewCarry(model.Config.Layers, 1, model.Config.Hidden)
	for i := 0; i < len(data)-1; i++ {
		ids := []int{int(data[i])}
		probs, newCarry := model.PredictNextByte([][]int{ids}, carry, 1.0)
		carry = newCarry
		confidences = append(confidences, probs.Data[data[i+1]])
	}
	return confidences
}

// RecommendAlgorithm buckets entropy into fixed thresholds.
func RecommendAlgorithm(entropyBitsPerByte float64) string {
	switch {
	case entropyBitsPerByte < 1:
		return "rle"
	case entropyBitsPerByte < 3:
		return "dictionary"
	case entropyBitsPerByte < 6:
		return "hybrid"
	default:
		return "arithmetic"
	}
}

// NGram is one repeating pattern found by ScanNGrams.
type NGram struct {
	Pattern string
	Count   int
}

// ScanNGrams finds the top-10 repeating n-grams (count >= 2) for n in
// [2,16], ranked by a Shannon-weighted score count * (1 + H), where H is
// gonum's stat.Entropy (natural log) of the normalized pair [count, 1].
// Equal scores are ordered longest pattern first.
func ScanNGrams(data []byte) []NGram {
	counts := make(map[string]int)
	for n := 2; n <= 16 && n <= len(data); n++ {
		for i := 0; i+n <= len(data); i++ {
			counts[string(data[i:i+n])]++
		}
	}

	type scored struct {
		pattern string
		count   int
		score   float64
	}
	var all []scored
	for pattern, count := range counts {
		if count < 2 {
			continue
		}
		p := []float64{float64(count), 1}
		normalize(p)
		weight := stat.Entropy(p) + 1
		all = append(all, scored{pattern, count, float64(count) * weight})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return len(all[i].pattern) > len(all[j].pattern)
	})

	top := 10
	if len(all) < top {
		top = len(all)
	}
	out := make([]NGram, top)
	for i := 0; i < top; i++ {
		out[i] = NGram{Pattern: all[i].pattern, Count: all[i].count}
	}
	return out
}

func normalize(p []float64) {
	var sum float64
	for _, v := range p {
		sum += v
	}
	if sum == 0 {
		return
	}
	for i := range p {
		p[i] /= sum
	}
}

// Strategy is the multi-pass recommendation produced by RecommendStrategy.
type Strategy struct {
	Passes     int
	Algorithms []string
}

// RecommendStrategy combines an Analysis with an n-gram scan to choose a
// pass count (1-3) and ordered algorithm list.
func RecommendStrategy(a Analysis, ngrams []NGram) Strategy {
	passes := 1
	algorithms := []string{a.RecommendedAlgorithm}

	if len(ngrams) >= 3 {
		passes = 2
		algorithms = append([]string{"dictionary"}, algorithms...)
	}
	if a.Entropy >= 6 && len(ngrams) > 0 {
		passes = 3
		algorithms = append(algorithms, "arithmetic")
	}
	if passes > 3 {
		passes = 3
	}
	return Strategy{Passes: passes, Algorithms: algorithms}
}

// Enhancement is the result of EnhanceCompression.
type Enhancement struct {
	EstimatedNewRatio   float64
	EfficiencyBefore    float64
	EfficiencyAfter     float64
}

// EnhanceCompression computes the theoretical max ratio (8/entropy), derives
// the current efficiency, grants an ml_boost capped at 30% and proportional
// to half the remaining headroom, and applies it multiplicatively to the
// ratio (not additively to efficiency): new_ratio = existing_ratio *
// (1 + ml_boost), efficiency_after = new_ratio / theoretical_max.
func EnhanceCompression(entropy float64, currentRatio float64) Enhancement {
	if entropy <= 0 {
		entropy = 1e-6
	}
	theoreticalMax := 8 / entropy
	efficiencyBefore := currentRatio / theoreticalMax
	mlBoost := (1 - efficiencyBefore) * 0.5
	if mlBoost > 0.30 {
		mlBoost = 0.30
	}
	if mlBoost < 0 {
		mlBoost = 0
	}
	newRatio := currentRatio * (1 + mlBoost)
	efficiencyAfter := newRatio / theoreticalMax

	return Enhancement{
		EstimatedNewRatio: newRatio,
		EfficiencyBefore:  efficiencyBefore,
		EfficiencyAfter:   efficiencyAfter,
	}
}
