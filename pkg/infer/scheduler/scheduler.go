// Package scheduler implements a dynamic-batch request scheduler with
// N worker goroutines, a bounded-wait batch collector, and per-request
// response routing. Grounded on
// original_source/ml/inference/batch_processor.py (_worker_loop,
// _collect_batch, _process_batch, submit, process_batch_sync), translated
// from Python threading.Thread/queue.Queue into goroutines and channels.
package scheduler

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/core/tensor"
	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/kerrors"
)

// ProcessFunc runs one batched forward pass: it receives the stacked
// request inputs in submission order and must return outputs in the same
// order.
type ProcessFunc func([]*tensor.Tensor) ([]*tensor.Tensor, error)

// Response is what submit() returns: the output, the request id it was
// submitted with, and the measured batch latency.
type Response struct {
	RequestID string
	Output    *tensor.Tensor
	BatchMS   float64
}

type request struct {
	id         string
	input      *tensor.Tensor
	responseCh chan Response
}

// Config configures a Scheduler.
type Config struct {
	Workers      int
	MaxBatchSize int
	MaxWaitMS    int
	QueueSize    int // bounded-capacity request queue; 0 defaults to 4*MaxBatchSize*Workers
}

// Scheduler is the bounded-wait dynamic-batch collector.
type Scheduler struct {
	cfg     Config
	process ProcessFunc

	queue chan *request
	stop  chan struct{}
	wg    sync.WaitGroup

	mu      sync.Mutex
	running bool
}

// New constructs a Scheduler. It does not start workers; call Start.
func New(process ProcessFunc, cfg Config) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 4 * cfg.MaxBatchSize * cfg.Workers
	}
	return &Scheduler{
		cfg:     cfg,
		process: process,
		queue:   make(chan *request, cfg.QueueSize),
	}
}

// Start spawns N worker goroutines. Idempotent.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	for i := 0; i < s.cfg.Workers; i++ {
		s.wg.Add(1)
		go s.workerLoop(i)
	}
	klog.V(2).Infof("scheduler: started %d workers (max_batch=%d max_wait_ms=%d)",
		s.cfg.Workers, s.cfg.MaxBatchSize, s.cfg.MaxWaitMS)
}

// Stop clears the running flag and joins workers with a ~1s grace timeout.
// Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(1 * time.Second):
		klog.Warning("scheduler: stop() grace timeout exceeded, workers may still be draining")
	}
}

func (s *Scheduler) workerLoop(id int) {
	defer s.wg.Done()
	for {
		select {
		case <-s.stop:
			return
		case first, ok := <-s.queue:
			if !ok {
				return
			}
			s.processBatch(s.collectBatch(first))
		}
	}
}

// collectBatch blocks on the queue for a first request (already received by
// the caller), then drains additional requests with a shrinking,
// deadline-relative timeout until the batch reaches MaxBatchSize, the
// deadline expires, or the queue is empty.
func (s *Scheduler) collectBatch(first *request) []*request {
	batch := []*request{first}
	deadline := time.Now().Add(time.Duration(s.cfg.MaxWaitMS) * time.Millisecond)

	for len(batch) < s.cfg.MaxBatchSize {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		select {
		case r, ok := <-s.queue:
			if !ok {
				return batch
			}
			batch = append(batch, r)
		case <-time.After(remaining):
			return batch
		}
	}
	return batch
}

func (s *Scheduler) processBatch(batch []*request) {
	start := time.Now()
	inputs := make([]*tensor.Tensor, len(batch))
	for i, r := range batch {
		inputs[i] = r.input
	}

	outputs, err := s.process(inputs)
	elapsedMS := float64(time.Since(start)) / float64(time.Millisecond)

	if err != nil {
		klog.Errorf("scheduler: batch of %d requests failed: %v", len(batch), err)
		for _, r := range batch {
			r.responseCh <- Response{RequestID: r.id, BatchMS: elapsedMS}
		}
		return
	}

	for i, r := range batch {
		r.responseCh <- Response{RequestID: r.id, Output: outputs[i], BatchMS: elapsedMS}
	}
}

// Submit enqueues input under id (auto-generated via uuid if empty), waits
// for the batch containing it to complete, and returns the response. A
// timeout<=0 means wait forever at both the enqueue step and the response
// wait; otherwise, if timeout elapses first at either step, it returns
// (Response{}, false). The per-request channel is buffered so the eventual
// worker send never blocks, and is simply left for the garbage collector —
// no explicit deregistration map is needed.
func (s *Scheduler) Submit(input *tensor.Tensor, id string, timeout time.Duration) (Response, bool) {
	if id == "" {
		id = uuid.NewString()
	}
	r := &request{id: id, input: input, responseCh: make(chan Response, 1)}

	if timeout <= 0 {
		s.queue <- r
		resp := <-r.responseCh
		return resp, true
	}

	select {
	case s.queue <- r:
	case <-time.After(timeout):
		return Response{}, false
	}

	select {
	case resp := <-r.responseCh:
		return resp, true
	case <-time.After(timeout):
		return Response{}, false
	}
}

// ProcessBatchSync is a synchronous convenience: it chunks inputs by
// MaxBatchSize and invokes the process function directly, bypassing the
// queue entirely.
func (s *Scheduler) ProcessBatchSync(inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	var out []*tensor.Tensor
	for start := 0; start < len(inputs); start += s.cfg.MaxBatchSize {
		end := start + s.cfg.MaxBatchSize
		if end > len(inputs) {
			end = len(inputs)
		}
		chunkOut, err := s.process(inputs[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, chunkOut...)
	}
	return out, nil
}

// requireLen is a small guard for process functions: it returns a
// ShapeError if got != want instead of panicking inside a worker
// goroutine. Nothing in this package calls it.
func requireLen(op string, want, got int) error {
	if want != got {
		return kerrors.NewShapeError(op, []int{want}, []int{got})
	}
	return nil
}
