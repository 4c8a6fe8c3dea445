package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/kerrors"
)

func TestLoadParsesNestedSections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kolibri.yaml")
	contents := `
classifier:
  input_dim: 8
  hidden: [4]
  num_classes: 2
  head: multiclass
scheduler:
  workers: 2
  max_batch_size: 4
  max_wait_ms: 10
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Classifier)
	assert.Equal(t, 8, cfg.Classifier.InputDim)
	assert.Equal(t, []int{4}, cfg.Classifier.Hidden)
	require.NotNil(t, cfg.Scheduler)
	assert.Equal(t, 2, cfg.Scheduler.Workers)
}

func TestLoadMissingFileIsIOError(t *testing.T) {
	_, err := Load("/nonexistent/path/kolibri.yaml")
	require.Error(t, err)
	var ioErr *kerrors.IOError
	assert.ErrorAs(t, err, &ioErr)
}
