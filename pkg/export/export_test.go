package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/model/classifier"
)

func TestExportCWritesAllFiles(t *testing.T) {
	m := classifier.New("export-test", classifier.Config{InputDim: 4, Hidden: []int{4}, NumClasses: 2, Head: classifier.MultiClass})
	dir := t.TempDir()

	require.NoError(t, ExportC(m.Model, dir))
	for _, f := range []string{"model_weights.h", "model_config.h", "model_inference.h", "model_inference.c"} {
		assert.FileExists(t, filepath.Join(dir, f))
	}
	assert.Equal(t, "EXPORTED", string(m.State))
}

func TestExportWASMWritesBundle(t *testing.T) {
	m := classifier.New("export-test", classifier.Config{InputDim: 4, Hidden: []int{4}, NumClasses: 2, Head: classifier.MultiClass})
	dir := t.TempDir()

	require.NoError(t, ExportWASM(m.Model, dir))
	for _, f := range []string{"model.json", "weights.bin", "loader.js", "demo.html"} {
		assert.FileExists(t, filepath.Join(dir, f))
	}
}

func TestExportONNXManifest(t *testing.T) {
	m := classifier.New("export-test", classifier.Config{InputDim: 4, Hidden: []int{4}, NumClasses: 2, Head: classifier.MultiClass})
	path := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, ExportONNXManifest(m.Model, path))
	assert.FileExists(t, path)
}
