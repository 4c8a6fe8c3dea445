package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/core/tensor"
)

func doubleBatch(inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	out := make([]*tensor.Tensor, len(inputs))
	for i, in := range inputs {
		o := tensor.New(in.Shape...)
		for j, v := range in.Data {
			o.Data[j] = v * 2
		}
		out[i] = o
	}
	return out, nil
}

func TestSchedulerBatchesConcurrentSubmissions(t *testing.T) {
	s := New(doubleBatch, Config{Workers: 2, MaxBatchSize: 4, MaxWaitMS: 10})
	s.Start()
	defer s.Stop()

	var wg sync.WaitGroup
	results := make([]Response, 10)
	ok := make([]bool, 10)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			input := tensor.FromSlice([]float32{float32(i)}, 1)
			resp, success := s.Submit(input, "", 2*time.Second)
			results[i] = resp
			ok[i] = success
		}(i)
	}
	wg.Wait()

	for i := 0; i < 10; i++ {
		require.True(t, ok[i])
		assert.Equal(t, float32(2*i), results[i].Output.Data[0])
	}
}

func TestSubmitRequestIDRoundTrips(t *testing.T) {
	s := New(doubleBatch, Config{Workers: 1, MaxBatchSize: 2, MaxWaitMS: 5})
	s.Start()
	defer s.Stop()

	resp, ok := s.Submit(tensor.FromSlice([]float32{3}, 1), "r7", 2*time.Second)
	require.True(t, ok)
	assert.Equal(t, "r7", resp.RequestID)
}

func TestProcessBatchSyncBypassesQueue(t *testing.T) {
	s := New(doubleBatch, Config{Workers: 1, MaxBatchSize: 2, MaxWaitMS: 5})
	inputs := []*tensor.Tensor{
		tensor.FromSlice([]float32{1}, 1),
		tensor.FromSlice([]float32{2}, 1),
		tensor.FromSlice([]float32{3}, 1),
	}
	out, err := s.ProcessBatchSync(inputs)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, float32(6), out[2].Data[0])
}

func TestSubmitZeroTimeoutWaitsForFullQueue(t *testing.T) {
	// QueueSize:1 and a worker that only starts once Start is called below,
	// so the first Submit fills the queue before any worker drains it. A
	// second Submit with timeout<=0 must block on the full queue and still
	// eventually succeed, instead of treating the queue-full condition as
	// an immediate timeout.
	s := New(doubleBatch, Config{Workers: 1, MaxBatchSize: 1, MaxWaitMS: 5, QueueSize: 1})

	var wg sync.WaitGroup
	wg.Add(2)
	results := make([]bool, 2)
	go func() {
		defer wg.Done()
		_, ok := s.Submit(tensor.FromSlice([]float32{1}, 1), "", 0)
		results[0] = ok
	}()
	go func() {
		defer wg.Done()
		_, ok := s.Submit(tensor.FromSlice([]float32{2}, 1), "", 0)
		results[1] = ok
	}()

	time.Sleep(20 * time.Millisecond)
	s.Start()
	defer s.Stop()
	wg.Wait()

	assert.True(t, results[0])
	assert.True(t, results[1])
}

func TestStopIsIdempotent(t *testing.T) {
	s := New(doubleBatch, Config{Workers: 1, MaxBatchSize: 1, MaxWaitMS: 5})
	s.Start()
	s.Stop()
	s.Stop()
}
