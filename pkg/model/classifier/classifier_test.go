package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/core/tensor"
)

func TestClassifierRoundTrip(t *testing.T) {
	m := New("classifier-test", Config{InputDim: 8, Hidden: []int{4}, NumClasses: 2, Head: MultiClass})
	x := tensor.RandomInit(7, 1.0, 4, 8)

	out, err := m.Predict(x)
	require.NoError(t, err)
	require.Equal(t, []int{4, 2}, out.Shape)

	for i := 0; i < 4; i++ {
		row := out.Row(i)
		var sum float32
		for _, v := range row {
			assert.GreaterOrEqual(t, v, float32(0))
			sum += v
		}
		assert.InDelta(t, 1.0, sum, 1e-3)
	}
}

func TestPredictClassesMultiClassArgmax(t *testing.T) {
	m := New("classifier-test", Config{InputDim: 4, Hidden: []int{4}, NumClasses: 3, Head: MultiClass})
	x := tensor.RandomInit(11, 1.0, 2, 4)
	labels, err := m.PredictClasses(x)
	require.NoError(t, err)
	require.Len(t, labels, 2)
	for _, l := range labels {
		require.Len(t, l, 1)
		assert.GreaterOrEqual(t, l[0], 0)
		assert.Less(t, l[0], 3)
	}
}

func TestPredictClassesMultiLabelThreshold(t *testing.T) {
	m := New("classifier-test", Config{InputDim: 4, Hidden: nil, NumClasses: 3, Head: MultiLabel})
	x := tensor.RandomInit(13, 1.0, 2, 4)
	labels, err := m.PredictClasses(x)
	require.NoError(t, err)
	require.Len(t, labels, 2)
}

func TestPredictUnknownHeadIsConfigError(t *testing.T) {
	m := New("classifier-test", Config{InputDim: 4, Hidden: nil, NumClasses: 2, Head: HeadKind("bogus")})
	x := tensor.RandomInit(17, 1.0, 1, 4)
	_, err := m.Predict(x)
	require.Error(t, err)

	_, err = m.PredictClasses(x)
	require.Error(t, err)
}
