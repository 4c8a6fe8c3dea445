// Package classifier implements an MLP with ReLU hidden layers and
// either a softmax (multi-class) or sigmoid (multi-label) head. Grounded on
// original_source/ml/models/classifier.py (forward, predict,
// predict_classes).
package classifier

import (
	"math"

	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/core/params"
	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/core/tensor"
	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/kerrors"
)

// HeadKind selects the prediction head.
type HeadKind string

const (
	MultiClass HeadKind = "multiclass" // softmax + argmax
	MultiLabel HeadKind = "multilabel" // sigmoid + per-class threshold
)

// Config describes a Classifier instance.
type Config struct {
	InputDim    int
	Hidden      []int
	NumClasses  int
	Head        HeadKind
	Threshold   float32 // multi-label decision threshold, default 0.5
}

// Model is an MLP classifier built over params.Model.
type Model struct {
	*params.Model
	Config Config
}

func layerW(i int) string { return "hidden_" + itoaCls(i) + "_weight" }
func layerB(i int) string { return "hidden_" + itoaCls(i) + "_bias" }

func itoaCls(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

// New constructs a Model with deterministically initialized parameters.
func New(name string, cfg Config) *Model {
	if cfg.Threshold == 0 {
		cfg.Threshold = 0.5
	}
	m := &Model{
		Model: params.NewModel(params.ModelMetadata{
			Name:         name,
			Architecture: params.VariantClassifier,
			InputShape:   []int{cfg.InputDim},
			OutputShape:  []int{cfg.NumClasses},
			Device:       "cpu",
			Quantization: "fp32",
		}),
		Config: cfg,
	}

	dims := append([]int{cfg.InputDim}, cfg.Hidden...)
	for i := 0; i < len(cfg.Hidden); i++ {
		in, out := dims[i], dims[i+1]
		scale := float32(1.0 / math.Sqrt(float64(in)))
		w := layerW(i)
		m.SetParameter(w, tensor.RandomInit(tensor.SeedFor(w), scale, in, out))
		m.SetParameter(layerB(i), tensor.Zeros(out))
	}

	finalIn := dims[len(dims)-1]
	scale := float32(1.0 / math.Sqrt(float64(finalIn)))
	m.SetParameter("output_weight", tensor.RandomInit(tensor.SeedFor("output_weight"), scale, finalIn, cfg.NumClasses))
	m.SetParameter("output_bias", tensor.Zeros(cfg.NumClasses))

	m.MarkInitialized()
	return m
}

func (m *Model) param(name string) []float32 {
	t, _ := m.GetParameter(name)
	return t.Data
}

func (m *Model) paramT(name string) *tensor.Tensor {
	t, _ := m.GetParameter(name)
	return t
}

// Forward runs the MLP over x [B,InputDim] and returns raw logits
// [B,NumClasses] (no head applied).
func (m *Model) Forward(x *tensor.Tensor) *tensor.Tensor {
	cur := x
	for i := range m.Config.Hidden {
		cur = tensor.Linear(cur, m.paramT(layerW(i)), m.param(layerB(i)))
		cur = tensor.ReLU(cur)
	}
	return tensor.Linear(cur, m.paramT("output_weight"), m.param("output_bias"))
}

// Predict runs Forward and applies the configured head, returning
// per-class probabilities [B,NumClasses].
func (m *Model) Predict(x *tensor.Tensor) (*tensor.Tensor, error) {
	logits := m.Forward(x)
	switch m.Config.Head {
	case MultiClass:
		return tensor.Softmax(logits), nil
	case MultiLabel:
		return tensor.Sigmoid(logits), nil
	default:
		return nil, kerrors.NewConfigError("head", string(m.Config.Head))
	}
}

// PredictClasses runs Predict and reduces to discrete labels: for
// MultiClass, the argmax index per row; for MultiLabel, the set of class
// indices whose probability exceeds Config.Threshold.
func (m *Model) PredictClasses(x *tensor.Tensor) ([][]int, error) {
	probs, err := m.Predict(x)
	if err != nil {
		return nil, err
	}
	b, c := probs.Shape[0], probs.Shape[1]
	out := make([][]int, b)

	for bi := 0; bi < b; bi++ {
		row := probs.Data[bi*c : bi*c+c]
		switch m.Config.Head {
		case MultiLabel:
			var labels []int
			for j, p := range row {
				if p > m.Config.Threshold {
					labels = append(labels, j)
				}
			}
			out[bi] = labels
		default:
			best := 0
			for j := 1; j < c; j++ {
				if row[j] > row[best] {
					best = j
				}
			}
			out[bi] = []int{best}
		}
	}
	return out, nil
}
