package tensor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSoftmaxSumsToOne(t *testing.T) {
	x := FromSlice([]float32{1, 2, 3, 4, -1, 0, 1, 2}, 2, 4)
	out := Softmax(x)
	for i := 0; i < 2; i++ {
		var sum float32
		for _, v := range out.Row(i) {
			assert.GreaterOrEqual(t, v, float32(0))
			sum += v
		}
		assert.InDelta(t, 1.0, sum, 1e-2)
	}
}

func TestSoftmaxStableUnderLargeValues(t *testing.T) {
	x := FromSlice([]float32{1000, 1001, 1002}, 1, 3)
	out := Softmax(x)
	var sum float32
	for _, v := range out.Data {
		require.False(t, math.IsNaN(float64(v)))
		require.False(t, math.IsInf(float64(v), 0))
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-3)
}

func TestLayerNormMeanVariance(t *testing.T) {
	x := FromSlice([]float32{1, 2, 3, 4, 5, 6, 7, 8}, 2, 4)
	gamma := []float32{1, 1, 1, 1}
	beta := []float32{0, 0, 0, 0}
	out := LayerNorm(x, gamma, beta, 1e-5)

	for i := 0; i < 2; i++ {
		row := out.Row(i)
		var mean float32
		for _, v := range row {
			mean += v
		}
		mean /= float32(len(row))
		assert.InDelta(t, 0.0, mean, 1e-4)

		var variance float32
		for _, v := range row {
			d := v - mean
			variance += d * d
		}
		variance /= float32(len(row))
		assert.InDelta(t, 1.0, variance, 1e-3)
	}
}

func TestL2NormalizeUnitNorm(t *testing.T) {
	x := FromSlice([]float32{3, 4, 0, 0}, 1, 4)
	out := L2Normalize(x, 1e-8)
	assert.InDelta(t, 1.0, Norm2(out.Row(0)), 1e-2)
}

func TestGELUKnownValues(t *testing.T) {
	x := FromSlice([]float32{0, 1, -1}, 3)
	out := GELU(x)
	assert.InDelta(t, 0.0, out.Data[0], 1e-6)
	assert.InDelta(t, 0.8412, out.Data[1], 1e-3)
	assert.InDelta(t, -0.1588, out.Data[2], 1e-3)
}

func TestMatMulBasic(t *testing.T) {
	a := FromSlice([]float32{1, 2, 3, 4}, 2, 2)
	b := FromSlice([]float32{1, 0, 0, 1}, 2, 2)
	out := MatMul(a, b)
	assert.Equal(t, []float32{1, 2, 3, 4}, out.Data)
}

func TestMeanMaxFirstTokenPooling(t *testing.T) {
	x := FromSlice([]float32{
		1, 1, 2, 2,
		3, 3, 4, 4,
	}, 1, 2, 2)

	mean := MeanPool(x)
	assert.Equal(t, []float32{2, 2}, mean.Data)

	max := MaxPool(x)
	assert.Equal(t, []float32{3, 3}, max.Data)

	cls := FirstToken(x)
	assert.Equal(t, []float32{1, 1}, cls.Data)
}

func TestCosineSimilarityIdentity(t *testing.T) {
	v := []float32{1, 2, 3}
	sim := CosineSimilarity(v, v, 1e-8)
	assert.InDelta(t, 1.0, sim, 1e-3)
}
