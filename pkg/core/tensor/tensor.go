// Package tensor implements the dense float32 tensor primitives the rest of
// the runtime composes: matmul, broadcast arithmetic, activations, softmax,
// layer norm, and L2 normalize. Tensors are values — every operator returns
// a new Tensor — so a Model's forward pass never mutates its own
// parameters; only Quantize and Load do, and callers are expected to
// synchronize around those themselves.
package tensor

import (
	"fmt"

	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/kerrors"
)

// Tensor is a dense rectangular array of float32 values in row-major order.
type Tensor struct {
	Data  []float32
	Shape []int
}

// New allocates a zero-valued Tensor with the given shape.
func New(shape ...int) *Tensor {
	return &Tensor{Data: make([]float32, Size(shape)), Shape: append([]int(nil), shape...)}
}

// FromSlice wraps data as a Tensor with the given shape. It panics if data's
// length does not match the shape's product — this is a programmer error,
// not a runtime input error, so it is not reported via kerrors.
func FromSlice(data []float32, shape ...int) *Tensor {
	if len(data) != Size(shape) {
		panic(fmt.Sprintf("tensor.FromSlice: data length %d does not match shape %v", len(data), shape))
	}
	return &Tensor{Data: data, Shape: append([]int(nil), shape...)}
}

// Size returns the product of shape's dimensions (1 for a zero-length shape).
func Size(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int { return len(t.Shape) }

// Dim returns the extent of axis i.
func (t *Tensor) Dim(i int) int { return t.Shape[i] }

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	data := make([]float32, len(t.Data))
	copy(data, t.Data)
	return &Tensor{Data: data, Shape: append([]int(nil), t.Shape...)}
}

// Reshape returns a view over the same backing data with a new shape. The
// product of the new shape must equal len(t.Data).
func (t *Tensor) Reshape(shape ...int) *Tensor {
	if Size(shape) != len(t.Data) {
		panic(fmt.Sprintf("tensor.Reshape: size mismatch: %v has %d elements, %v wants %d", t.Shape, len(t.Data), shape, Size(shape)))
	}
	return &Tensor{Data: t.Data, Shape: append([]int(nil), shape...)}
}

// Row returns a view over row i of a rank-2 tensor.
func (t *Tensor) Row(i int) []float32 {
	cols := t.Shape[1]
	return t.Data[i*cols : (i+1)*cols]
}

// EqualShape reports whether a and b have identical shapes.
func EqualShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// CheckShape returns a ShapeError if got does not equal want.
func CheckShape(op string, want, got []int) error {
	if !EqualShape(want, got) {
		return kerrors.NewShapeError(op, want, got)
	}
	return nil
}
