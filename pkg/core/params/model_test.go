package params

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/core/tensor"
	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/quantize"
)

func newFixtureModel() *Model {
	m := NewModel(ModelMetadata{
		Name:         "fixture",
		Version:      "0.0.1",
		Architecture: VariantClassifier,
		InputShape:   []int{8},
		OutputShape:  []int{2},
		Device:       "cpu",
		Quantization: "fp32",
	})
	m.SetParameter("w1", tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6, 7, 8}, 2, 4))
	m.SetParameter("b1", tensor.FromSlice([]float32{0.1, 0.2}, 2))
	m.MarkInitialized()
	return m
}

func TestNumParametersMatchesSumOfShapes(t *testing.T) {
	m := newFixtureModel()
	assert.Equal(t, 10, m.NumParameters())
	assert.Equal(t, StateInitialized, m.State)
}

func TestRequireParameterMissingIsFatal(t *testing.T) {
	m := newFixtureModel()
	_, err := m.RequireParameter("does_not_exist")
	require.Error(t, err)
}

func TestSaveLoadRoundTripFP32(t *testing.T) {
	m := newFixtureModel()
	dir := t.TempDir()
	path := filepath.Join(dir, "model.bin")

	require.NoError(t, m.Save(path))
	_, err := os.Stat(path + ".meta.json")
	require.NoError(t, err)

	reloaded := newFixtureModel()
	require.NoError(t, reloaded.Load(path))
	assert.Equal(t, StateTrained, reloaded.State)

	w1, ok := reloaded.GetParameter("w1")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6, 7, 8}, w1.Data)
	assert.Equal(t, "fixture", reloaded.Metadata.Name)
}

func TestQuantizeSetsScaleBuffersAndDType(t *testing.T) {
	m := newFixtureModel()
	require.NoError(t, m.Quantize(quantize.Int8, true))

	assert.Equal(t, "int8", m.Params.DType("w1"))
	_, ok := m.GetBuffer("w1_scale")
	require.True(t, ok)
	assert.Equal(t, "int8", m.Metadata.Quantization)
}

func TestSummaryListsEveryParameter(t *testing.T) {
	m := newFixtureModel()
	s := m.Summary()
	assert.Contains(t, s, "w1")
	assert.Contains(t, s, "b1")
}
