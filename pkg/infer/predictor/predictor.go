// Package predictor implements a device-aware facade around any model's
// forward function, with warmup, latency statistics, and chunked batch
// prediction. Optionally delegates to an ONNX session, falling back to the
// native path when unavailable. Grounded on
// original_source/ml/inference/predictor.py (Predictor, predict,
// predict_batch, warmup, get_stats, StreamingPredictor).
package predictor

import (
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"k8s.io/klog/v2"

	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/core/tensor"
	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/device"
	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/kerrors"
	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/onnx"
)

// ForwardFunc runs a model forward pass over a batched tensor input,
// returning a batched tensor output. Every model family exposes (or is
// adapted to expose) one of these for Predictor to wrap.
type ForwardFunc func(*tensor.Tensor) (*tensor.Tensor, error)

// Stats is the cumulative counters exposed by GetStats.
type Stats struct {
	InferenceCount int64
	TotalLatency   time.Duration
	AverageLatency time.Duration
	Device         string
	Memory         string
}

// Config configures a Predictor.
type Config struct {
	DevicePreference string
	InputShape       []int // shape without the leading batch axis
	BatchSize        int   // default chunk size for PredictBatch
	ONNXArtifactPath string // empty disables ONNX delegation
}

// Predictor wraps a model's forward function with device placement and
// statistics. Single-threaded by default; stats updates take an internal
// lock since a predictor is logically owned by one caller.
type Predictor struct {
	forward    ForwardFunc
	inputShape []int
	batchSize  int
	dev        device.Info
	session    onnx.Session

	mu    sync.Mutex
	stats Stats
}

// New constructs a Predictor. If cfg.ONNXArtifactPath is set, it attempts
// ONNX delegation; DelegationUnavailable is absorbed and logged, not
// propagated.
func New(forward ForwardFunc, cfg Config) (*Predictor, error) {
	dev, err := device.Select(cfg.DevicePreference)
	if err != nil {
		return nil, err
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}

	p := &Predictor{
		forward:    forward,
		inputShape: cfg.InputShape,
		batchSize:  batchSize,
		dev:        dev,
		stats:      Stats{Device: dev.Canonical},
	}

	if cfg.ONNXArtifactPath != "" {
		session, err := onnx.NewSession(cfg.ONNXArtifactPath, cfg.DevicePreference)
		if err != nil {
			if _, ok := err.(*kerrors.DelegationUnavailable); ok {
				klog.V(2).Infof("predictor: %v; using native path", err)
			} else {
				return nil, err
			}
		} else {
			p.session = session
		}
	}

	return p, nil
}

// Predict adds a leading batch axis to a 1-D input (matching inputShape),
// runs forward (or the ONNX session when available), and records latency.
func (p *Predictor) Predict(input *tensor.Tensor) (*tensor.Tensor, error) {
	x := input
	if len(p.inputShape) > 0 && tensor.EqualShape(input.Shape, p.inputShape) {
		x = input.Reshape(append([]int{1}, p.inputShape...)...)
	}

	start := time.Now()
	out, err := p.runForward(x)
	elapsed := time.Since(start)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.stats.InferenceCount++
	p.stats.TotalLatency += elapsed
	p.stats.AverageLatency = p.stats.TotalLatency / time.Duration(p.stats.InferenceCount)
	p.mu.Unlock()

	return out, nil
}

func (p *Predictor) runForward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if p.session != nil {
		names := p.session.InputNames()
		if len(names) > 0 {
			out, err := p.session.Predict(map[string]*tensor.Tensor{names[0]: x})
			if err == nil {
				outNames := p.session.OutputNames()
				if len(outNames) > 0 {
					return out[outNames[0]], nil
				}
			}
		}
	}
	return p.forward(x)
}

// PredictBatch chunks inputs by min(configured batch size, requestedBatch)
// (0 means "use the configured size"), predicts per chunk, and concatenates
// results in the original order.
func (p *Predictor) PredictBatch(inputs []*tensor.Tensor, requestedBatch int) ([]*tensor.Tensor, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	chunkSize := p.batchSize
	if requestedBatch > 0 && requestedBatch < chunkSize {
		chunkSize = requestedBatch
	}

	results := make([]*tensor.Tensor, 0, len(inputs))
	for start := 0; start < len(inputs); start += chunkSize {
		end := start + chunkSize
		if end > len(inputs) {
			end = len(inputs)
		}
		chunk := stack(inputs[start:end])
		out, err := p.Predict(chunk)
		if err != nil {
			return nil, err
		}
		results = append(results, splitRows(out)...)
	}
	return results, nil
}

func stack(items []*tensor.Tensor) *tensor.Tensor {
	rowShape := items[0].Shape
	rowSize := tensor.Size(rowShape)
	out := tensor.New(append([]int{len(items)}, rowShape...)...)
	for i, item := range items {
		copy(out.Data[i*rowSize:(i+1)*rowSize], item.Data)
	}
	return out
}

func splitRows(batched *tensor.Tensor) []*tensor.Tensor {
	b := batched.Shape[0]
	rowShape := batched.Shape[1:]
	rowSize := tensor.Size(rowShape)
	out := make([]*tensor.Tensor, b)
	for i := 0; i < b; i++ {
		row := append([]float32(nil), batched.Data[i*rowSize:(i+1)*rowSize]...)
		out[i] = tensor.FromSlice(row, rowShape...)
	}
	return out
}

// Warmup runs n forward passes over a zero tensor of shape [1,inputShape...].
// Counts toward stats.
func (p *Predictor) Warmup(n int) error {
	zero := tensor.New(append([]int{1}, p.inputShape...)...)
	for i := 0; i < n; i++ {
		if _, err := p.Predict(zero); err != nil {
			return err
		}
	}
	return nil
}

// GetStats returns a snapshot of the cumulative statistics.
func (p *Predictor) GetStats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.stats
	s.Memory = p.dev.MemoryString()
	return s
}

// ResetStats zeros every counter.
func (p *Predictor) ResetStats() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats = Stats{Device: p.dev.Canonical}
}

// humanizeLatency renders a duration as comma-grouped milliseconds with up
// to three decimal digits (go-humanize's CommafWithDigits), for log lines
// and summaries.
func humanizeLatency(d time.Duration) string {
	return humanize.CommafWithDigits(d.Seconds()*1000, 3) + "ms"
}

// LogSummary emits the current stats at klog's info level, suitable for a
// periodic diagnostic line.
func (p *Predictor) LogSummary() {
	s := p.GetStats()
	klog.V(1).Infof("predictor: device=%s count=%d total=%s avg=%s mem=%s",
		s.Device, s.InferenceCount, humanizeLatency(s.TotalLatency), humanizeLatency(s.AverageLatency), s.Memory)
}
