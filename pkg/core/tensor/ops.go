package tensor

import "math"

// MatMul multiplies a [M,K] by b [K,N] and returns [M,N]. Both tensors must
// be rank 2; callers that have a batch axis flatten it into M first (the
// pattern every model in this package uses for "bsh,hd->bsd"-style
// projections) and reshape the result back.
func MatMul(a, b *Tensor) *Tensor {
	m, k := a.Shape[0], a.Shape[1]
	k2, n := b.Shape[0], b.Shape[1]
	if k != k2 {
		panic("tensor.MatMul: inner dimensions do not match")
	}
	out := New(m, n)
	for i := 0; i < m; i++ {
		arow := a.Data[i*k : i*k+k]
		orow := out.Data[i*n : i*n+n]
		for kk := 0; kk < k; kk++ {
			av := arow[kk]
			if av == 0 {
				continue
			}
			brow := b.Data[kk*n : kk*n+n]
			for j := 0; j < n; j++ {
				orow[j] += av * brow[j]
			}
		}
	}
	return out
}

// Linear applies x·W + b where x is [N,In], W is [In,Out], b is [Out] (or
// nil for no bias), returning [N,Out].
func Linear(x, w *Tensor, bias []float32) *Tensor {
	out := MatMul(x, w)
	if bias == nil {
		return out
	}
	n, outDim := out.Shape[0], out.Shape[1]
	for i := 0; i < n; i++ {
		row := out.Data[i*outDim : i*outDim+outDim]
		for j := 0; j < outDim; j++ {
			row[j] += bias[j]
		}
	}
	return out
}

// AddBias adds a length-D bias vector to every row of a [N,D] tensor,
// returning a new tensor.
func AddBias(x *Tensor, bias []float32) *Tensor {
	out := x.Clone()
	d := x.Shape[len(x.Shape)-1]
	rows := len(x.Data) / d
	for i := 0; i < rows; i++ {
		row := out.Data[i*d : i*d+d]
		for j := 0; j < d; j++ {
			row[j] += bias[j]
		}
	}
	return out
}

// Add returns the elementwise sum of two equal-shaped tensors.
func Add(a, b *Tensor) *Tensor {
	if len(a.Data) != len(b.Data) {
		panic("tensor.Add: length mismatch")
	}
	out := New(a.Shape...)
	for i := range a.Data {
		out.Data[i] = a.Data[i] + b.Data[i]
	}
	return out
}

// ReLU returns max(0, x) elementwise.
func ReLU(x *Tensor) *Tensor {
	out := New(x.Shape...)
	for i, v := range x.Data {
		if v > 0 {
			out.Data[i] = v
		}
	}
	return out
}

// Tanh applies math.Tanh elementwise.
func Tanh(x *Tensor) *Tensor {
	out := New(x.Shape...)
	for i, v := range x.Data {
		out.Data[i] = float32(math.Tanh(float64(v)))
	}
	return out
}

// Sigmoid applies a numerically stable logistic sigmoid elementwise.
func Sigmoid(x *Tensor) *Tensor {
	out := New(x.Shape...)
	for i, v := range x.Data {
		out.Data[i] = sigmoid1(v)
	}
	return out
}

func sigmoid1(x float32) float32 {
	if x >= 0 {
		z := float32(math.Exp(float64(-x)))
		return 1 / (1 + z)
	}
	z := float32(math.Exp(float64(x)))
	return z / (1 + z)
}

const geluConst = 0.7978845608028654 // sqrt(2/pi)

// GELU applies the tanh approximation of GELU:
// 0.5*x*(1 + tanh(sqrt(2/pi)*(x + 0.044715*x^3))).
func GELU(x *Tensor) *Tensor {
	out := New(x.Shape...)
	for i, v := range x.Data {
		v64 := float64(v)
		inner := geluConst * (v64 + 0.044715*v64*v64*v64)
		out.Data[i] = float32(0.5 * v64 * (1 + math.Tanh(inner)))
	}
	return out
}

// Softmax applies a numerically stable softmax along the last axis of a
// rank-2 tensor [rows, cols]: subtract the per-row max before exponentiating.
func Softmax(x *Tensor) *Tensor {
	rows, cols := x.Shape[0], x.Shape[1]
	out := New(rows, cols)
	for i := 0; i < rows; i++ {
		row := x.Data[i*cols : i*cols+cols]
		orow := out.Data[i*cols : i*cols+cols]
		max := row[0]
		for _, v := range row[1:] {
			if v > max {
				max = v
			}
		}
		var sum float32
		for j, v := range row {
			e := float32(math.Exp(float64(v - max)))
			orow[j] = e
			sum += e
		}
		if sum == 0 {
			sum = 1e-8
		}
		for j := range orow {
			orow[j] /= sum
		}
	}
	return out
}

// SoftmaxRow applies numerically stable softmax to a single row, returning
// a new slice and leaving row unchanged. Used by sampling paths that operate on a single
// vocabulary-sized vector.
func SoftmaxRow(row []float32) []float32 {
	out := make([]float32, len(row))
	max := row[0]
	for _, v := range row[1:] {
		if v > max {
			max = v
		}
	}
	var sum float32
	for i, v := range row {
		e := float32(math.Exp(float64(v - max)))
		out[i] = e
		sum += e
	}
	if sum == 0 {
		sum = 1e-8
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// LayerNorm normalizes a [rows, cols] tensor along its last axis: subtract
// the per-row mean, divide by sqrt(variance + eps), then apply the affine
// gamma/beta. eps defaults to 1e-5.
func LayerNorm(x *Tensor, gamma, beta []float32, eps float32) *Tensor {
	rows, cols := x.Shape[0], x.Shape[1]
	out := New(rows, cols)
	for i := 0; i < rows; i++ {
		row := x.Data[i*cols : i*cols+cols]
		orow := out.Data[i*cols : i*cols+cols]

		var mean float32
		for _, v := range row {
			mean += v
		}
		mean /= float32(cols)

		var variance float32
		for _, v := range row {
			d := v - mean
			variance += d * d
		}
		variance /= float32(cols)

		inv := float32(1.0 / math.Sqrt(float64(variance)+float64(eps)))
		for j, v := range row {
			orow[j] = gamma[j]*((v-mean)*inv) + beta[j]
		}
	}
	return out
}

// L2Normalize divides each row of a [rows, cols] tensor by its L2 norm
// (plus eps, default 1e-8).
func L2Normalize(x *Tensor, eps float32) *Tensor {
	rows, cols := x.Shape[0], x.Shape[1]
	out := New(rows, cols)
	for i := 0; i < rows; i++ {
		row := x.Data[i*cols : i*cols+cols]
		orow := out.Data[i*cols : i*cols+cols]
		var sumSq float32
		for _, v := range row {
			sumSq += v * v
		}
		norm := float32(math.Sqrt(float64(sumSq))) + eps
		for j, v := range row {
			orow[j] = v / norm
		}
	}
	return out
}

// MeanPool averages a [batch, seq, dim] tensor across the seq axis,
// returning [batch, dim].
func MeanPool(x *Tensor) *Tensor {
	b, s, d := x.Shape[0], x.Shape[1], x.Shape[2]
	out := New(b, d)
	for bi := 0; bi < b; bi++ {
		orow := out.Data[bi*d : bi*d+d]
		for si := 0; si < s; si++ {
			row := x.Data[(bi*s+si)*d : (bi*s+si)*d+d]
			for j := 0; j < d; j++ {
				orow[j] += row[j]
			}
		}
		for j := 0; j < d; j++ {
			orow[j] /= float32(s)
		}
	}
	return out
}

// MaxPool reduces a [batch, seq, dim] tensor to [batch, dim] by taking the
// elementwise maximum across the seq axis.
func MaxPool(x *Tensor) *Tensor {
	b, s, d := x.Shape[0], x.Shape[1], x.Shape[2]
	out := New(b, d)
	for bi := 0; bi < b; bi++ {
		orow := out.Data[bi*d : bi*d+d]
		first := x.Data[(bi*s)*d : (bi*s)*d+d]
		copy(orow, first)
		for si := 1; si < s; si++ {
			row := x.Data[(bi*s+si)*d : (bi*s+si)*d+d]
			for j := 0; j < d; j++ {
				if row[j] > orow[j] {
					orow[j] = row[j]
				}
			}
		}
	}
	return out
}

// FirstToken reduces a [batch, seq, dim] tensor to [batch, dim] by taking
// position 0 of every batch row (the "cls" pooling strategy).
func FirstToken(x *Tensor) *Tensor {
	b, s, d := x.Shape[0], x.Shape[1], x.Shape[2]
	out := New(b, d)
	for bi := 0; bi < b; bi++ {
		copy(out.Data[bi*d:bi*d+d], x.Data[(bi*s)*d:(bi*s)*d+d])
	}
	return out
}

// Dot returns the dot product of two equal-length vectors.
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Norm2 returns the Euclidean (L2) norm of a vector.
func Norm2(a []float32) float32 {
	return float32(math.Sqrt(float64(Dot(a, a))))
}

// CosineSimilarity returns the cosine similarity of a and b, with eps added
// to the denominator to avoid division by zero on zero vectors.
func CosineSimilarity(a, b []float32, eps float32) float32 {
	return Dot(a, b) / (Norm2(a)*Norm2(b) + eps)
}
