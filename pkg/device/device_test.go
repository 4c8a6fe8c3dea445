package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectAllAlwaysIncludesCPU(t *testing.T) {
	all := DetectAll()
	require.NotEmpty(t, all)
	var hasCPU bool
	for _, d := range all {
		if d.Type == CPU {
			hasCPU = true
		}
	}
	assert.True(t, hasCPU)
}

func TestSelectAutoReturnsMostPreferred(t *testing.T) {
	d, err := Select("auto")
	require.NoError(t, err)
	assert.Equal(t, DetectAll()[0].Canonical, d.Canonical)
}

func TestSelectUnknownTokenFallsBackToCPU(t *testing.T) {
	d, err := Select("quantum")
	require.NoError(t, err)
	assert.Equal(t, CPU, d.Type)
	assert.Equal(t, "cpu", d.Canonical)
}

func TestSelectCPUExplicit(t *testing.T) {
	d, err := Select("cpu")
	require.NoError(t, err)
	assert.Equal(t, "cpu", d.Canonical)
}
