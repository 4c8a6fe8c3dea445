// Package compressor implements a causal LSTM byte-predictor: stacked
// LSTM layers over raw bytes, next-byte probability, entropy estimation.
// Grounded on
// original_source/ml/models/neural_compressor.py (_lstm_cell, forward,
// predict_next_byte, estimate_entropy).
package compressor

import (
	"math"

	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/core/params"
	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/core/tensor"
)

const vocab = 256

// Config describes a NeuralCompressor instance.
type Config struct {
	ContextSize int
	Hidden      int
	Layers      int
}

// Carry holds the per-layer (h, c) recurrent state across Forward calls,
// one B*Hidden slice per layer. A nil Carry means "start from zero state".
type Carry struct {
	H [][]float32
	C [][]float32
}

// NewCarry returns a zero-initialized carry for b batch items.
func NewCarry(layers, b, hidden int) *Carry {
	c := &Carry{H: make([][]float32, layers), C: make([][]float32, layers)}
	for l := 0; l < layers; l++ {
		c.H[l] = make([]float32, b*hidden)
		c.C[l] = make([]float32, b*hidden)
	}
	return c
}

// clone returns a copy of the carry, preserving copy-on-write semantics for
// the caller.
func (c *Carry) clone() *Carry {
	out := &Carry{H: make([][]float32, len(c.H)), C: make([][]float32, len(c.C))}
	for l := range c.H {
		out.H[l] = append([]float32(nil), c.H[l]...)
		out.C[l] = append([]float32(nil), c.C[l]...)
	}
	return out
}

// Model is a causal LSTM byte-predictor built over params.Model.
type Model struct {
	*params.Model
	Config Config
}

func layerParam(i int, part string) string {
	return "layer_" + itoa(i) + "_" + part
}

func itoa(n int) string {
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
			Architecture: params.VariantCompressor,
			InputShape:   []int{cfg.ContextSize},
			OutputShape:  []int{cfg.ContextSize, vocab},
			Device:       "cpu",
			Quantization: "fp32",
		}),
		Config: cfg,
	}

	h := cfg.Hidden
	scale := float32(1.0 / math.Sqrt(float64(h)))

	m.SetParameter("byte_emb", tensor.RandomInit(tensor.SeedFor("byte_emb"), scale, vocab, h))
	m.SetParameter("out_proj_weight", tensor.RandomInit(tensor.SeedFor("out_proj_weight"), scale, h, vocab))
	m.SetParameter("out_proj_bias", tensor.Zeros(vocab))

	for l := 0; l < cfg.Layers; l++ {
		wih := layerParam(l, "w_ih")
		whh := layerParam(l, "w_hh")
		m.SetParameter(wih, tensor.RandomInit(tensor.SeedFor(wih), scale, h, 4*h))
		m.SetParameter(whh, tensor.RandomInit(tensor.SeedFor(whh), scale, h, 4*h))
		m.SetParameter(layerParam(l, "bias"), tensor.Zeros(4*h))
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

// Forward runs the LSTM stack over byteIDs [B][T] with an optional carry
// (nil starts from zero state), returning logits [B,T,256] and the updated
// carry.
func (m *Model) Forward(byteIDs [][]int, carry *Carry) (*tensor.Tensor, *Carry) {
	b := len(byteIDs)
	h := m.Config.Hidden
	if b == 0 {
		return tensor.New(0, 0, vocab), NewCarry(m.Config.Layers, 0, h)
	}
	t := len(byteIDs[0])

	if carry == nil {
		carry = NewCarry(m.Config.Layers, b, h)
	}
	newCarry := &Carry{H: make([][]float32, m.Config.Layers), C: make([][]float32, m.Config.Layers)}

	byteEmb := m.param("byte_emb")
	layerInput := make([]float32, b*t*h)
	for bi := 0; bi < b; bi++ {
		for ti := 0; ti < t; ti++ {
			id := byteIDs[bi][ti]
			copy(layerInput[(bi*t+ti)*h:(bi*t+ti)*h+h], byteEmb[id*h:id*h+h])
		}
	}

	for l := 0; l < m.Config.Layers; l++ {
		wih := m.param(layerParam(l, "w_ih"))
		whh := m.param(layerParam(l, "w_hh"))
		bias := m.param(layerParam(l, "bias"))

		hPrev := append([]float32(nil), carry.H[l]...)
		cPrev := append([]float32(nil), carry.C[l]...)
		outSeq := make([]float32, b*t*h)

		gates := make([]float32, 4*h)
		for ti := 0; ti < t; ti++ {
			for bi := 0; bi < b; bi++ {
				x := layerInput[(bi*t+ti)*h : (bi*t+ti)*h+h]
				hb := hPrev[bi*h : bi*h+h]
				cb := cPrev[bi*h : bi*h+h]

				for j := 0; j < 4*h; j++ {
					var sum float32
					for d := 0; d < h; d++ {
						sum += x[d]*wih[d*4*h+j] + hb[d]*whh[d*4*h+j]
					}
					gates[j] = sum + bias[j]
				}

				iGate := sigmoidSlice(gates[0:h])
				fGate := sigmoidSlice(gates[h : 2*h])
				gGate := tanhSlice(gates[2*h : 3*h])
				oGate := sigmoidSlice(gates[3*h : 4*h])

				outH := outSeq[(bi*t+ti)*h : (bi*t+ti)*h+h]
				for d := 0; d < h; d++ {
					cNew := fGate[d]*cb[d] + iGate[d]*gGate[d]
					hNew := oGate[d] * tanh1(cNew)
					cb[d] = cNew
					hb[d] = hNew
					outH[d] = hNew
				}
			}
		}

		newCarry.H[l] = hPrev
		newCarry.C[l] = cPrev
		layerInput = outSeq
	}

	logits := tensor.Linear(tensor.FromSlice(layerInput, b*t, h), m.paramT("out_proj_weight"), m.param("out_proj_bias"))
	return logits.Reshape(b, t, vocab), newCarry
}

func sigmoidSlice(x []float32) []float32 {
	out := make([]float32, len(x))
	for i, v := range x {
		if v >= 0 {
			z := float32(math.Exp(float64(-v)))
			out[i] = 1 / (1 + z)
		} else {
			z := float32(math.Exp(float64(v)))
			out[i] = z / (1 + z)
		}
	}
	return out
}

func tanhSlice(x []float32) []float32 {
	out := make([]float32, len(x))
	for i, v := range x {
		out[i] = tanh1(v)
	}
	return out
}

func tanh1(v float32) float32 { return float32(math.Tanh(float64(v))) }

// PredictNextByte runs Forward over context and returns the probability
// distribution over the next byte for every batch row ([B,256]) along with
// the updated carry.
func (m *Model) PredictNextByte(context [][]int, carry *Carry, temperature float32) (*tensor.Tensor, *Carry) {
	logits, newCarry := m.Forward(context, carry)
	b, t := logits.Shape[0], logits.Shape[1]
	out := tensor.New(b, vocab)
	for bi := 0; bi < b; bi++ {
		row := logits.Data[(bi*t+t-1)*vocab : (bi*t+t-1)*vocab+vocab]
		scaled := make([]float32, vocab)
		for i, v := range row {
			scaled[i] = v / temperature
		}
		probs := tensor.SoftmaxRow(scaled)
		copy(out.Data[bi*vocab:bi*vocab+vocab], probs)
	}
	return out, newCarry
}

// EstimateEntropy feeds bytes through the model in chunks of chunkSize
// (carrying state across chunk boundaries) and accumulates -log p(actual
// next byte) over every target, returning bits/byte = total / ln(2) /
// max(len-1, 1). Defined as 0 for empty input.
func (m *Model) EstimateEntropy(data []byte, chunkSize int) float64 {
	if len(data) == 0 {
		return 0
	}
	if chunkSize <= 0 {
		chunkSize = len(data)
	}

	h := m.Config.Hidden
	carry := NewCarry(m.Config.Layers, 1, h)
	var totalNats float64

	for start := 0; start < len(data); start += chunkSize {
		end := start + chunkSize
		if end > len(data) {
			end = len(data)
		}
		chunk := data[start:end]
		ids := make([]int, len(chunk))
		for i, bb := range chunk {
			ids[i] = int(bb)
		}

		logits, newCarry := m.Forward([][]int{ids}, carry)
		carry = newCarry

		for ti := 0; ti < len(ids); ti++ {
			globalIdx := start + ti
			if globalIdx+1 >= len(data) {
				continue
			}
			row := logits.Data[ti*vocab : ti*vocab+vocab]
			probs := tensor.SoftmaxRow(row)
			actual := data[globalIdx+1]
			p := probs[actual]
			if p < 1e-12 {
				p = 1e-12
			}
			totalNats += -math.Log(float64(p))
		}
	}

	divisor := float64(len(data) - 1)
	if divisor < 1 {
		divisor = 1
	}
	return totalNats / divisor / math.Ln2
}
