// Package config loads the YAML configuration that parameterizes every
// model family, the predictor, and the scheduler, mirroring the shape of
// original_source/ml/utils/config.py's dataclasses (one nested section per
// component) as a single Go struct tree decoded with gopkg.in/yaml.v3.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/kerrors"
)

// TransformerConfig mirrors transformer.Config's YAML shape.
type TransformerConfig struct {
	Hidden       int     `yaml:"hidden"`
	Layers       int     `yaml:"layers"`
	Heads        int     `yaml:"heads"`
	Intermediate int     `yaml:"intermediate"`
	MaxSeq       int     `yaml:"max_seq"`
	Vocab        int     `yaml:"vocab"`
	DropoutTrain float32 `yaml:"dropout_train"`
}

// CompressorConfig mirrors compressor.Config's YAML shape.
type CompressorConfig struct {
	ContextSize int `yaml:"context_size"`
	Hidden      int `yaml:"hidden"`
	Layers      int `yaml:"layers"`
}

// EncoderConfig mirrors encoder.Config's YAML shape.
type EncoderConfig struct {
	Hidden          int  `yaml:"hidden"`
	Layers          int  `yaml:"layers"`
	Intermediate    int  `yaml:"intermediate"`
	MaxSeq          int  `yaml:"max_seq"`
	Vocab           int  `yaml:"vocab"`
	EmbeddingDim    int  `yaml:"embedding_dim"`
	NormalizeOutput bool `yaml:"normalize_output"`
}

// ClassifierConfig mirrors classifier.Config's YAML shape.
type ClassifierConfig struct {
	InputDim   int     `yaml:"input_dim"`
	Hidden     []int   `yaml:"hidden"`
	NumClasses int     `yaml:"num_classes"`
	Head       string  `yaml:"head"`
	Threshold  float32 `yaml:"threshold"`
}

// GeneratorConfig mirrors generator.Config's YAML shape.
type GeneratorConfig struct {
	Hidden       int `yaml:"hidden"`
	Layers       int `yaml:"layers"`
	Intermediate int `yaml:"intermediate"`
	MaxSeq       int `yaml:"max_seq"`
	Vocab        int `yaml:"vocab"`
}

// PredictorConfig mirrors predictor.Config's YAML shape.
type PredictorConfig struct {
	DevicePreference string `yaml:"device_preference"`
	BatchSize        int    `yaml:"batch_size"`
	ONNXArtifactPath string `yaml:"onnx_artifact_path"`
}

// SchedulerConfig mirrors scheduler.Config's YAML shape.
type SchedulerConfig struct {
	Workers      int `yaml:"workers"`
	MaxBatchSize int `yaml:"max_batch_size"`
	MaxWaitMS    int `yaml:"max_wait_ms"`
	QueueSize    int `yaml:"queue_size"`
}

// Config is the top-level YAML document: every component's config nested
// under its own key, all optional (zero values fall back to each
// constructor's defaults).
type Config struct {
	Transformer *TransformerConfig `yaml:"transformer,omitempty"`
	Compressor  *CompressorConfig  `yaml:"compressor,omitempty"`
	Encoder     *EncoderConfig     `yaml:"encoder,omitempty"`
	Classifier  *ClassifierConfig  `yaml:"classifier,omitempty"`
	Generator   *GeneratorConfig   `yaml:"generator,omitempty"`
	Predictor   *PredictorConfig   `yaml:"predictor,omitempty"`
	Scheduler   *SchedulerConfig   `yaml:"scheduler,omitempty"`
}

// Load reads and parses a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, kerrors.NewIOError(path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "config: parse %s", path)
	}
	return &cfg, nil
}
