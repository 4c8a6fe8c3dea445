// Package encoder implements a mean-pooled semantic encoder:
// token+position embedding, residual feed-forward blocks, mean pooling,
// optional L2-normalized embedding, cosine similarity and top-K search.
// Grounded on original_source/ml/models/semantic_encoder.py (_normalize,
// _encoder_layer, forward, encode, similarity, search).
package encoder

import (
	"math"
	"sort"

	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/core/params"
	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/core/tensor"
)

// Config describes a SemanticEncoder instance.
type Config struct {
	Hidden          int
	Layers          int
	Intermediate    int
	MaxSeq          int
	Vocab           int
	EmbeddingDim    int
	NormalizeOutput bool
}

// Model is a mean-pooled semantic encoder built over params.Model.
type Model struct {
	*params.Model
	Config Config
}

func blockName(i int, part string) string { return "block_" + itoaEnc(i) + "_" + part }

func itoaEnc(n int) string {
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
	m := &Model{
		Model: params.NewModel(params.ModelMetadata{
			Name:         name,
			Architecture: params.VariantEncoder,
			InputShape:   []int{cfg.MaxSeq},
			OutputShape:  []int{cfg.EmbeddingDim},
			Device:       "cpu",
			Quantization: "fp32",
		}),
		Config: cfg,
	}

	h, in := cfg.Hidden, cfg.Intermediate
	scale := float32(1.0 / math.Sqrt(float64(h)))

	m.SetParameter("token_emb", tensor.RandomInit(tensor.SeedFor("enc_token_emb"), scale, cfg.Vocab, h))
	m.SetParameter("pos_emb", tensor.RandomInit(tensor.SeedFor("enc_pos_emb"), scale, cfg.MaxSeq, h))

	for i := 0; i < cfg.Layers; i++ {
		upName := blockName(i, "up_weight")
		downName := blockName(i, "down_weight")
		m.SetParameter(upName, tensor.RandomInit(tensor.SeedFor(upName), scale, h, in))
		m.SetParameter(blockName(i, "up_bias"), tensor.Zeros(in))
		m.SetParameter(downName, tensor.RandomInit(tensor.SeedFor(downName), scale, in, h))
		m.SetParameter(blockName(i, "down_bias"), tensor.Zeros(h))
	}

	projName := "projection_weight"
	m.SetParameter(projName, tensor.RandomInit(tensor.SeedFor(projName), scale, h, cfg.EmbeddingDim))
	m.SetParameter("projection_bias", tensor.Zeros(cfg.EmbeddingDim))

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

// Forward runs the residual FFN stack over ids [B][T], returning the
// pre-pool, pre-projection hidden states [B,T,Hidden].
func (m *Model) Forward(ids [][]int) *tensor.Tensor {
	b := len(ids)
	h := m.Config.Hidden
	if b == 0 {
		return tensor.New(0, 0, h)
	}
	t := len(ids[0])

	tokenEmb := m.param("token_emb")
	posEmb := m.param("pos_emb")
	x := tensor.New(b*t, h)
	for bi := 0; bi < b; bi++ {
		for ti := 0; ti < t; ti++ {
			id := ids[bi][ti]
			row := x.Data[(bi*t+ti)*h : (bi*t+ti)*h+h]
			copy(row, tokenEmb[id*h:id*h+h])
			pos := posEmb[ti*h : ti*h+h]
			for j := range row {
				row[j] += pos[j]
			}
		}
	}

	for i := 0; i < m.Config.Layers; i++ {
		up := tensor.Linear(x, m.paramT(blockName(i, "up_weight")), m.param(blockName(i, "up_bias")))
		act := tensor.ReLU(up)
		down := tensor.Linear(act, m.paramT(blockName(i, "down_weight")), m.param(blockName(i, "down_bias")))
		x = tensor.Add(x, down)
	}

	return x.Reshape(b, t, h)
}

// Encode runs Forward, mean-pools across time, projects to EmbeddingDim,
// and optionally L2-normalizes each row.
func (m *Model) Encode(ids [][]int) *tensor.Tensor {
	hidden := m.Forward(ids)
	pooled := tensor.MeanPool(hidden)
	projected := tensor.Linear(pooled, m.paramT("projection_weight"), m.param("projection_bias"))
	if m.Config.NormalizeOutput {
		return tensor.L2Normalize(projected, 1e-8)
	}
	return projected
}

// Similarity returns the cosine similarity matrix [|a|,|b|] between two sets
// of already-encoded embedding rows, renormalizing each row defensively
// before the dot product regardless of whether the encoder already
// normalized its output.
func Similarity(a, b *tensor.Tensor) *tensor.Tensor {
	an := tensor.L2Normalize(a, 1e-8)
	bn := tensor.L2Normalize(b, 1e-8)
	na, d := an.Shape[0], an.Shape[1]
	nb := bn.Shape[0]
	out := tensor.New(na, nb)
	for i := 0; i < na; i++ {
		for j := 0; j < nb; j++ {
			out.Data[i*nb+j] = tensor.Dot(an.Data[i*d:i*d+d], bn.Data[j*d:j*d+d])
		}
	}
	return out
}

// Match is one ranked search result.
type Match struct {
	Index int
	Score float32
}

// Search encodes query and corpus, scores query against every corpus row,
// and returns the top K matches sorted by descending score.
func (m *Model) Search(query [][]int, corpus [][]int, k int) []Match {
	queryEmb := m.Encode(query)
	corpusEmb := m.Encode(corpus)
	sim := Similarity(queryEmb, corpusEmb)

	nb := sim.Shape[1]
	matches := make([]Match, nb)
	for j := 0; j < nb; j++ {
		matches[j] = Match{Index: j, Score: sim.Data[j]}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if k < len(matches) {
		matches = matches[:k]
	}
	return matches
}
