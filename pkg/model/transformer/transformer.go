// Package transformer implements a bidirectional transformer encoder:
// multi-head self-attention, pre-norm residual FFN blocks, and pooled
// encode. Grounded on original_source/ml/models/transformer_lite.py
// (_attention, _ffn, _transformer_block, forward, encode) and on the
// tensor package's primitives for the numerics.
package transformer

import (
	"fmt"
	"math"

	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/core/params"
	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/core/tensor"
	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/kerrors"
)

// Config describes a TransformerLite instance.
type Config struct {
	Hidden       int
	Layers       int
	Heads        int
	Intermediate int
	MaxSeq       int
	Vocab        int
	DropoutTrain float32 // persisted for metadata parity only; never applied
}

// Pooling names an encode-time reduction strategy.
type Pooling string

const (
	PoolMean Pooling = "mean"
	PoolCLS  Pooling = "cls"
	PoolMax  Pooling = "max"
)

// Model is a transformer encoder built over params.Model.
type Model struct {
	*params.Model
	Config Config
}

func layerName(i int, part string) string {
	return fmt.Sprintf("layer_%d_%s", i, part)
}

// New constructs a Model with deterministically initialized parameters,
// named following a layer_i prefix convention, and transitions it to
// INITIALIZED.
func New(name string, cfg Config) *Model {
	m := &Model{
		Model: params.NewModel(params.ModelMetadata{
			Name:         name,
			Architecture: params.VariantTransformer,
			InputShape:   []int{cfg.MaxSeq},
			OutputShape:  []int{cfg.MaxSeq, cfg.Hidden},
			Device:       "cpu",
			Quantization: "fp32",
		}),
		Config: cfg,
	}

	h, in := cfg.Hidden, cfg.Intermediate
	scale := float32(1.0 / math.Sqrt(float64(h)))

	m.SetParameter("token_emb", tensor.RandomInit(tensor.SeedFor("token_emb"), scale, cfg.Vocab, h))
	m.SetParameter("pos_emb", tensor.RandomInit(tensor.SeedFor("pos_emb"), scale, cfg.MaxSeq, h))
	m.SetParameter("final_ln_gamma", tensor.Ones(h))
	m.SetParameter("final_ln_beta", tensor.Zeros(h))

	for i := 0; i < cfg.Layers; i++ {
		for _, proj := range []string{"query", "key", "value", "out"} {
			wName := layerName(i, proj+"_weight")
			bName := layerName(i, proj+"_bias")
			m.SetParameter(wName, tensor.RandomInit(tensor.SeedFor(wName), scale, h, h))
			m.SetParameter(bName, tensor.Zeros(h))
		}
		m.SetParameter(layerName(i, "ln1_gamma"), tensor.Ones(h))
		m.SetParameter(layerName(i, "ln1_beta"), tensor.Zeros(h))
		m.SetParameter(layerName(i, "ln2_gamma"), tensor.Ones(h))
		m.SetParameter(layerName(i, "ln2_beta"), tensor.Zeros(h))

		upName := layerName(i, "ffn_up_weight")
		downName := layerName(i, "ffn_down_weight")
		m.SetParameter(upName, tensor.RandomInit(tensor.SeedFor(upName), scale, h, in))
		m.SetParameter(layerName(i, "ffn_up_bias"), tensor.Zeros(in))
		m.SetParameter(downName, tensor.RandomInit(tensor.SeedFor(downName), scale, in, h))
		m.SetParameter(layerName(i, "ffn_down_bias"), tensor.Zeros(h))
	}

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

// Forward runs the encoder over inputIDs [B][T] (T <= MaxSeq), with an
// optional mask [B][T] of {0,1} (nil means "attend everywhere"), returning
// [B,T,Hidden].
func (m *Model) Forward(inputIDs [][]int, mask [][]int) (*tensor.Tensor, error) {
	b := len(inputIDs)
	if b == 0 {
		return tensor.New(0, 0, m.Config.Hidden), nil
	}
	t := len(inputIDs[0])
	if t > m.Config.MaxSeq {
		return nil, kerrors.NewShapeError("transformer.Forward", []int{m.Config.MaxSeq}, []int{t})
	}
	h := m.Config.Hidden

	tokenEmb := m.param("token_emb")
	posEmb := m.param("pos_emb")
	x := tensor.New(b*t, h)
	for bi := 0; bi < b; bi++ {
		for ti := 0; ti < t; ti++ {
			id := inputIDs[bi][ti]
			row := x.Data[(bi*t+ti)*h : (bi*t+ti)*h+h]
			copy(row, tokenEmb[id*h:id*h+h])
			pos := posEmb[ti*h : ti*h+h]
			for j := range row {
				row[j] += pos[j]
			}
		}
	}

	for i := 0; i < m.Config.Layers; i++ {
		normed := tensor.LayerNorm(x.Reshape(b*t, h),
			m.param(layerName(i, "ln1_gamma")), m.param(layerName(i, "ln1_beta")), 1e-5)

		attnOut := m.attention(i, normed, b, t, mask)
		x = tensor.Add(x, attnOut)

		normed2 := tensor.LayerNorm(x.Reshape(b*t, h),
			m.param(layerName(i, "ln2_gamma")), m.param(layerName(i, "ln2_beta")), 1e-5)
		up := tensor.Linear(normed2, m.paramT(layerName(i, "ffn_up_weight")), m.param(layerName(i, "ffn_up_bias")))
		act := tensor.GELU(up)
		down := tensor.Linear(act, m.paramT(layerName(i, "ffn_down_weight")), m.param(layerName(i, "ffn_down_bias")))
		x = tensor.Add(x, down)
	}

	out := tensor.LayerNorm(x.Reshape(b*t, h), m.param("final_ln_gamma"), m.param("final_ln_beta"), 1e-5)
	return out.Reshape(b, t, h), nil
}

// attention computes multi-head self-attention for layer i over normed
// [B*T, hidden], returning the output projection [B*T, hidden] (not yet
// residual-added).
func (m *Model) attention(i int, normed *tensor.Tensor, b, t int, mask [][]int) *tensor.Tensor {
	h := m.Config.Hidden
	heads := m.Config.Heads
	headDim := h / heads
	scale := float32(1.0 / math.Sqrt(float64(headDim)))

	q := tensor.Linear(normed, m.paramT(layerName(i, "query_weight")), m.param(layerName(i, "query_bias")))
	k := tensor.Linear(normed, m.paramT(layerName(i, "key_weight")), m.param(layerName(i, "key_bias")))
	v := tensor.Linear(normed, m.paramT(layerName(i, "value_weight")), m.param(layerName(i, "value_bias")))

	concat := tensor.New(b*t, h)

	for bi := 0; bi < b; bi++ {
		var maskRow []int
		if mask != nil {
			maskRow = mask[bi]
		}
		for hd := 0; hd < heads; hd++ {
			off := hd * headDim
			for ti := 0; ti < t; ti++ {
				qRow := q.Data[(bi*t+ti)*h+off : (bi*t+ti)*h+off+headDim]
				scores := make([]float32, t)
				for tj := 0; tj < t; tj++ {
					kRow := k.Data[(bi*t+tj)*h+off : (bi*t+tj)*h+off+headDim]
					var dot float32
					for d := 0; d < headDim; d++ {
						dot += qRow[d] * kRow[d]
					}
					s := dot * scale
					if maskRow != nil && maskRow[tj] == 0 {
						s += -1e9
					}
					scores[tj] = s
				}
				weights := tensor.SoftmaxRow(scores)

				outRow := concat.Data[(bi*t+ti)*h+off : (bi*t+ti)*h+off+headDim]
				for tj := 0; tj < t; tj++ {
					w := weights[tj]
					if w == 0 {
						continue
					}
					vRow := v.Data[(bi*t+tj)*h+off : (bi*t+tj)*h+off+headDim]
					for d := 0; d < headDim; d++ {
						outRow[d] += w * vRow[d]
					}
				}
			}
		}
	}

	return tensor.Linear(concat, m.paramT(layerName(i, "out_weight")), m.param(layerName(i, "out_bias")))
}

// Encode runs Forward then reduces the time axis via pooling.
func (m *Model) Encode(inputIDs [][]int, mask [][]int, pooling Pooling) (*tensor.Tensor, error) {
	out, err := m.Forward(inputIDs, mask)
	if err != nil {
		return nil, err
	}
	switch pooling {
	case PoolMean:
		return tensor.MeanPool(out), nil
	case PoolCLS:
		return tensor.FirstToken(out), nil
	case PoolMax:
		return tensor.MaxPool(out), nil
	default:
		return nil, kerrors.NewConfigError("pooling", string(pooling))
	}
}
