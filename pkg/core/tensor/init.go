package tensor

import (
	"hash/fnv"
	"math/rand"
)

// SeedFor derives a deterministic PRNG seed from a parameter name, so every
// model constructor can call RandomInit(SeedFor(name), ...) and get the
// same initialization every run without threading a shared generator
// through every layer.
func SeedFor(name string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return int64(h.Sum64())
}

// RandomInit returns a tensor of the given shape filled with values drawn
// uniformly from [-scale, scale), using a private PRNG seeded with seed so
// that a model's initialization is reproducible across runs without
// depending on global random state (every constructor passes a distinct
// seed derived from its parameter name).
func RandomInit(seed int64, scale float32, shape ...int) *Tensor {
	t := New(shape...)
	r := rand.New(rand.NewSource(seed))
	for i := range t.Data {
		t.Data[i] = (r.Float32()*2 - 1) * scale
	}
	return t
}

// Zeros returns a zero-filled tensor — the standard bias initialization.
func Zeros(shape ...int) *Tensor { return New(shape...) }

// Ones returns a tensor filled with 1 — the standard layer-norm gamma
// initialization.
func Ones(shape ...int) *Tensor {
	t := New(shape...)
	for i := range t.Data {
		t.Data[i] = 1
	}
	return t
}
