package quantize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/core/tensor"
)

func TestQuantizeInt8AsymmetricSpreadsAcrossRange(t *testing.T) {
	// min=100, max=200: scale=(200-100)/255, zero_point=round(-100/scale)
	// clipped to [-128,127]. With the zero point added before clipping,
	// values across the tensor's range must spread across distinct
	// quantized levels instead of all saturating to the same bound.
	t.Helper()
	in := tensor.FromSlice([]float32{100, 125, 150, 175, 200}, 5)

	q, p, err := QuantizeTensor(in, Int8, false)
	require.NoError(t, err)

	scale := (200.0 - 100.0) / 255.0
	zp := clipRound(float32(-100.0/scale), -128, 127)
	assert.InDelta(t, scale, p.Scale, 1e-4)
	assert.Equal(t, int8(zp), p.ZeroPoint)

	want := make([]float32, len(in.Data))
	for i, v := range in.Data {
		want[i] = clipRound(v/p.Scale+zp, -128, 127)
	}
	assert.Equal(t, want, q.Data)

	// The regression this guards against: clipping v/scale before adding
	// zp collapses every element to the same saturated bound.
	distinct := map[float32]bool{}
	for _, v := range q.Data {
		distinct[v] = true
	}
	assert.Greater(t, len(distinct), 1, "asymmetric quantization must not collapse the tensor to a single level")
}

func TestQuantizeInt8AsymmetricRoundTrip(t *testing.T) {
	in := tensor.FromSlice([]float32{-10, -5, 0, 5, 10}, 5)

	q, p, err := QuantizeTensor(in, Int8, false)
	require.NoError(t, err)

	out, err := DequantizeTensor(q, p, Int8)
	require.NoError(t, err)

	for i, v := range in.Data {
		assert.InDelta(t, v, out.Data[i], float64(p.Scale)+1e-3)
	}
}

func TestQuantizeInt8SymmetricUnaffected(t *testing.T) {
	in := tensor.FromSlice([]float32{-4, -2, 0, 2, 4}, 5)

	q, p, err := QuantizeTensor(in, Int8, true)
	require.NoError(t, err)
	assert.Equal(t, int8(0), p.ZeroPoint)

	scale := float32(4.0 / 127.0)
	assert.InDelta(t, scale, p.Scale, 1e-6)
	for i, v := range in.Data {
		want := clipRound(v/p.Scale, -128, 127)
		assert.Equal(t, want, q.Data[i])
	}
}

func TestQuantizeFP16RoundTripIsIdentityPromotion(t *testing.T) {
	in := tensor.FromSlice([]float32{1.5, -3.25, 0, 100.0}, 4)
	q, p, err := QuantizeTensor(in, FP16, false)
	require.NoError(t, err)

	out, err := DequantizeTensor(q, p, FP16)
	require.NoError(t, err)
	assert.Equal(t, q.Data, out.Data)
}

func TestQuantizeInt4ClampsToFourBitRange(t *testing.T) {
	in := tensor.FromSlice([]float32{-100, 0, 100}, 3)
	q, _, err := QuantizeTensor(in, Int4, false)
	require.NoError(t, err)

	for _, v := range q.Data {
		assert.GreaterOrEqual(t, v, float32(-8))
		assert.LessOrEqual(t, v, float32(7))
	}
}

func TestQuantizeUnknownModeIsConfigError(t *testing.T) {
	in := tensor.FromSlice([]float32{1}, 1)
	_, _, err := QuantizeTensor(in, Mode("bogus"), false)
	require.Error(t, err)
}

func TestClipRoundClampsBothBounds(t *testing.T) {
	assert.Equal(t, float32(-128), clipRound(-999, -128, 127))
	assert.Equal(t, float32(127), clipRound(999, -128, 127))
	assert.Equal(t, float32(3), clipRound(3.4, -128, 127))
	assert.True(t, math.Round(3.4) == 3)
}
