// Package generator implements an autoregressive token generator built on
// the same residual-FFN block shape as the semantic encoder — deliberately
// not causally masked. Grounded on original_source/ml/models/text_generator.py
// (_decoder_layer, forward, generate), with a top-k / top-p sampling-loop
// construction style carried over from gomlx's seq2seq generation code.
package generator

import (
	"math"
	"math/rand"
	"sort"

	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/core/params"
	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/core/tensor"
)

// Config describes a TextGenerator instance.
type Config struct {
	Hidden       int
	Layers       int
	Intermediate int
	MaxSeq       int
	Vocab        int
}

// SampleConfig controls one generate() call.
type SampleConfig struct {
	MaxNewTokens int
	Temperature  float32
	TopK         int  // 0 disables
	TopP         float32 // 0 disables
	EOSID        int
	HasEOS       bool
}

// Model is an autoregressive generator built over params.Model.
type Model struct {
	*params.Model
	Config Config
	rng    *rand.Rand
}

func blockName(i int, part string) string { return "decblock_" + itoaGen(i) + "_" + part }

func itoaGen(n int) string {
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

// New constructs a Model with deterministically initialized parameters and
// a seeded sampler (seed is exposed only through NewSeeded for tests —
// regular construction seeds from a fixed constant so behavior is
// reproducible across runs, matching this repository's "no hidden global
// random state" stance).
func New(name string, cfg Config) *Model {
	return NewSeeded(name, cfg, 1)
}

// NewSeeded is New with an explicit sampler seed, for deterministic tests.
func NewSeeded(name string, cfg Config, seed int64) *Model {
	m := &Model{
		Model: params.NewModel(params.ModelMetadata{
			Name:         name,
			Architecture: params.VariantGenerator,
			InputShape:   []int{cfg.MaxSeq},
			OutputShape:  []int{cfg.MaxSeq, cfg.Vocab},
			Device:       "cpu",
			Quantization: "fp32",
		}),
		Config: cfg,
		rng:    rand.New(rand.NewSource(seed)),
	}

	h, in := cfg.Hidden, cfg.Intermediate
	scale := float32(1.0 / math.Sqrt(float64(h)))

	m.SetParameter("token_emb", tensor.RandomInit(tensor.SeedFor("gen_token_emb"), scale, cfg.Vocab, h))
	m.SetParameter("pos_emb", tensor.RandomInit(tensor.SeedFor("gen_pos_emb"), scale, cfg.MaxSeq, h))

	for i := 0; i < cfg.Layers; i++ {
		upName := blockName(i, "up_weight")
		downName := blockName(i, "down_weight")
		m.SetParameter(upName, tensor.RandomInit(tensor.SeedFor(upName), scale, h, in))
		m.SetParameter(blockName(i, "up_bias"), tensor.Zeros(in))
		m.SetParameter(downName, tensor.RandomInit(tensor.SeedFor(downName), scale, in, h))
		m.SetParameter(blockName(i, "down_bias"), tensor.Zeros(h))
	}

	m.SetParameter("output_weight", tensor.RandomInit(tensor.SeedFor("gen_output_weight"), scale, h, cfg.Vocab))
	m.SetParameter("output_bias", tensor.Zeros(cfg.Vocab))

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

// Forward runs the residual FFN stack over a single sequence of token ids
// and projects every position to vocabulary logits, returning [T,Vocab].
func (m *Model) Forward(ids []int) *tensor.Tensor {
	h := m.Config.Hidden
	t := len(ids)
	if t == 0 {
		return tensor.New(0, m.Config.Vocab)
	}

	tokenEmb := m.param("token_emb")
	posEmb := m.param("pos_emb")
	x := tensor.New(t, h)
	for ti, id := range ids {
		row := x.Data[ti*h : ti*h+h]
		copy(row, tokenEmb[id*h:id*h+h])
		pos := posEmb[ti*h : ti*h+h]
		for j := range row {
			row[j] += pos[j]
		}
	}

	for i := 0; i < m.Config.Layers; i++ {
		up := tensor.Linear(x, m.paramT(blockName(i, "up_weight")), m.param(blockName(i, "up_bias")))
		act := tensor.ReLU(up)
		down := tensor.Linear(act, m.paramT(blockName(i, "down_weight")), m.param(blockName(i, "down_bias")))
		x = tensor.Add(x, down)
	}

	return tensor.Linear(x, m.paramT("output_weight"), m.param("output_bias"))
}

// Generate extends prompt autoregressively per cfg, returning the full
// sequence including the prompt.
func (m *Model) Generate(prompt []int, cfg SampleConfig) []int {
	seq := append([]int(nil), prompt...)
	temp := cfg.Temperature
	if temp == 0 {
		temp = 1.0
	}

	for i := 0; i < cfg.MaxNewTokens; i++ {
		window := seq
		if len(window) > m.Config.MaxSeq {
			window = window[len(window)-m.Config.MaxSeq:]
		}
		logits := m.Forward(window)
		last := logits.Row(logits.Shape[0] - 1)

		scaled := make([]float32, len(last))
		for j, v := range last {
			scaled[j] = v / temp
		}

		if cfg.TopK > 0 {
			applyTopK(scaled, cfg.TopK)
		}

		probs := tensor.SoftmaxRow(scaled)

		if cfg.TopP > 0 {
			probs = applyTopP(probs, cfg.TopP)
		}

		next := sample(m.rng, probs)
		seq = append(seq, next)

		if cfg.HasEOS && next == cfg.EOSID {
			break
		}
		if len(seq) >= m.Config.MaxSeq {
			break
		}
	}
	return seq
}

// applyTopK sets every logit outside the k largest to -inf, in place.
func applyTopK(logits []float32, k int) {
	if k >= len(logits) {
		return
	}
	sorted := append([]float32(nil), logits...)
	sort.Sort(sort.Reverse(sort.Float32Slice(sorted)))
	threshold := sorted[k-1]
	for i, v := range logits {
		if v < threshold {
			logits[i] = float32(math.Inf(-1))
		}
	}
}

// applyTopP retains the smallest prefix of the sorted-descending
// distribution whose cumulative probability exceeds p (keeping at least
// one entry), zeroing the rest and renormalizing.
func applyTopP(probs []float32, p float32) []float32 {
	type idxProb struct {
		idx  int
		prob float32
	}
	ranked := make([]idxProb, len(probs))
	for i, v := range probs {
		ranked[i] = idxProb{i, v}
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].prob > ranked[j].prob })

	var cum float32
	keep := make(map[int]bool)
	for i, r := range ranked {
		keep[r.idx] = true
		cum += r.prob
		if cum > p && i > 0 {
			break
		}
		if cum > p {
			break
		}
	}

	out := make([]float32, len(probs))
	var sum float32
	for i, v := range probs {
		if keep[i] {
			out[i] = v
			sum += v
		}
	}
	if sum == 0 {
		sum = 1e-8
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func sample(r *rand.Rand, probs []float32) int {
	x := r.Float32()
	var cum float32
	for i, p := range probs {
		cum += p
		if x <= cum {
			return i
		}
	}
	return len(probs) - 1
}
