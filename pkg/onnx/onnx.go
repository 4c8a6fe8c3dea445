// Package onnx implements an optional delegation contract: a Session
// interface any ONNX-runtime binding could satisfy, a provider-chain
// selector, and benchmarking. This build links no ONNX runtime (none of the
// retrieved example repos wire one in pure Go — see DESIGN.md), so
// NewSession always reports DelegationUnavailable; callers are expected to
// absorb that locally and fall back to the native path.
package onnx

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
	"k8s.io/klog/v2"

	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/core/tensor"
	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/kerrors"
)

// Provider names one entry in an ONNX execution-provider chain.
type Provider string

const (
	ProviderGPU         Provider = "gpu"
	ProviderGPUTensorRT Provider = "gpu_tensorrt"
	ProviderCPU         Provider = "cpu"
)

// Session is the contract a loaded ONNX model exposes: named-tensor
// predict plus input/output introspection.
type Session interface {
	Predict(inputs map[string]*tensor.Tensor) (map[string]*tensor.Tensor, error)
	InputNames() []string
	OutputNames() []string
}

// ProviderChain returns the provider preference order for a device token:
// one of (GPU, GPU+TensorRT, CPU) chosen from the device preference.
func ProviderChain(devicePreference string) []Provider {
	switch devicePreference {
	case "cuda":
		return []Provider{ProviderGPUTensorRT, ProviderGPU, ProviderCPU}
	case "metal":
		return []Provider{ProviderGPU, ProviderCPU}
	default:
		return []Provider{ProviderCPU}
	}
}

// NewSession attempts to load an ONNX artifact at path. This build has no
// runtime to load it with, so it always returns DelegationUnavailable; the
// error is informational, not fatal — see kerrors.DelegationUnavailable's
// doc comment.
func NewSession(path string, devicePreference string) (Session, error) {
	klog.V(2).Infof("onnx: no runtime linked into this build, falling back to native path (artifact=%s providers=%v)",
		path, ProviderChain(devicePreference))
	return nil, kerrors.NewDelegationUnavailable("onnx", "no onnx runtime linked into this build")
}

// BenchmarkResult carries the advisory latency/throughput statistics
// produced by Benchmark.
type BenchmarkResult struct {
	Mean       time.Duration
	StdDev     time.Duration
	Min        time.Duration
	Max        time.Duration
	P50        time.Duration
	P95        time.Duration
	P99        time.Duration
	Throughput float64 // samples/sec
}

// Benchmark runs iterations calls of run and summarizes their wall-clock
// latency. It is decoupled from Session so it can equally benchmark the
// native forward path chosen as a fallback.
func Benchmark(iterations int, run func() error) (BenchmarkResult, error) {
	if iterations <= 0 {
		iterations = 1
	}
	samples := make([]float64, iterations)
	for i := 0; i < iterations; i++ {
		start := time.Now()
		if err := run(); err != nil {
			return BenchmarkResult{}, err
		}
		samples[i] = float64(time.Since(start))
	}

	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)

	mean := stat.Mean(samples, nil)
	std := stat.StdDev(samples, nil)

	return BenchmarkResult{
		Mean:       time.Duration(mean),
		StdDev:     time.Duration(std),
		Min:        time.Duration(sorted[0]),
		Max:        time.Duration(sorted[len(sorted)-1]),
		P50:        time.Duration(quantileAt(sorted, 0.50)),
		P95:        time.Duration(quantileAt(sorted, 0.95)),
		P99:        time.Duration(quantileAt(sorted, 0.99)),
		Throughput: 1e9 / math.Max(mean, 1),
	}, nil
}

func quantileAt(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	return stat.Quantile(q, stat.Empirical, sorted, nil)
}
