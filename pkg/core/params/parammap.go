// Package params implements the uniform parameter/buffer container every
// model family is built on: ParameterMap and BufferMap preserve insertion
// order (so save/load/summary/export all iterate identically), ModelMetadata
// captures a model's descriptive fields, and ModelState tracks the
// UNINITIALIZED→INITIALIZED→TRAINING→TRAINED→EXPORTED lifecycle.
package params

import "github.com/rd8r8bkd9m-tech/kolibri-project/pkg/core/tensor"

// entry pairs a tensor with the dtype it should be serialized as. DType is
// "fp32" for every ordinary parameter; Quantize rewrites it in place.
type entry struct {
	tensor *tensor.Tensor
	dtype  string
}

// TensorMap is an insertion-ordered name→tensor container shared by
// ParameterMap and BufferMap. Names encode hierarchy via dot/underscore
// segments (e.g. "layer_3_query"); TensorMap never interprets them — it
// only guarantees the iteration order matches insertion order, which the
// binary artifact format depends on.
type TensorMap struct {
	order   []string
	entries map[string]entry
}

// NewTensorMap returns an empty, ready-to-use TensorMap.
func NewTensorMap() *TensorMap {
	return &TensorMap{entries: make(map[string]entry)}
}

// Get returns the tensor stored under name and whether it was present.
func (m *TensorMap) Get(name string) (*tensor.Tensor, bool) {
	e, ok := m.entries[name]
	if !ok {
		return nil, false
	}
	return e.tensor, true
}

// Set stores t under name as an fp32 entry, appending name to the
// iteration order the first time it is used.
func (m *TensorMap) Set(name string, t *tensor.Tensor) {
	m.setDType(name, t, "fp32")
}

// setDType stores t under name with an explicit serialization dtype; used
// by Quantize to rewrite an existing entry's dtype without disturbing its
// position in the iteration order.
func (m *TensorMap) setDType(name string, t *tensor.Tensor, dtype string) {
	if _, exists := m.entries[name]; !exists {
		m.order = append(m.order, name)
	}
	m.entries[name] = entry{tensor: t, dtype: dtype}
}

// DType returns the serialization dtype of name ("fp32" if never quantized).
func (m *TensorMap) DType(name string) string {
	return m.entries[name].dtype
}

// Names returns every stored name in insertion order.
func (m *TensorMap) Names() []string {
	return append([]string(nil), m.order...)
}

// Len returns the number of stored entries.
func (m *TensorMap) Len() int { return len(m.order) }

// Each calls fn for every entry in insertion order.
func (m *TensorMap) Each(fn func(name string, t *tensor.Tensor, dtype string)) {
	for _, name := range m.order {
		e := m.entries[name]
		fn(name, e.tensor, e.dtype)
	}
}

// ParameterMap holds a model's trainable weights.
type ParameterMap struct{ *TensorMap }

// NewParameterMap returns an empty ParameterMap.
func NewParameterMap() ParameterMap { return ParameterMap{NewTensorMap()} }

// BufferMap holds a model's non-trainable tensors (quantization scales,
// zero points, precomputed caches) under the same ordering contract.
type BufferMap struct{ *TensorMap }

// NewBufferMap returns an empty BufferMap.
func NewBufferMap() BufferMap { return BufferMap{NewTensorMap()} }

// NumElements returns Σ product(shape(p)) over every entry, i.e. the
// total scalar parameter count across the map.
func (m *TensorMap) NumElements() int {
	total := 0
	m.Each(func(_ string, t *tensor.Tensor, _ string) {
		total += len(t.Data)
	})
	return total
}
