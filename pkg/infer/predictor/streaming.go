package predictor

import "k8s.io/klog/v2"

// StepFunc advances a stateful generator by one token, returning the next
// sampled token id.
type StepFunc func(token int) (int, error)

// StreamingPredictor wraps a token-at-a-time generator (the autoregressive
// generator, or the LSTM byte-predictor) for incremental consumption.
type StreamingPredictor struct {
	step StepFunc
}

// NewStreaming wraps step as a StreamingPredictor.
func NewStreaming(step StepFunc) *StreamingPredictor {
	return &StreamingPredictor{step: step}
}

// PredictStep advances the underlying generator by one token.
func (s *StreamingPredictor) PredictStep(token int) (int, error) {
	return s.step(token)
}

// StreamGenerate repeatedly calls PredictStep starting from the last prompt
// token, invoking callback (if non-nil) with each newly produced token, up
// to maxTokens.
func (s *StreamingPredictor) StreamGenerate(prompt []int, maxTokens int, callback func(token int)) ([]int, error) {
	if len(prompt) == 0 {
		return nil, nil
	}
	out := append([]int(nil), prompt...)
	cur := prompt[len(prompt)-1]

	klog.V(3).Infof("predictor: streaming generate start, prompt_len=%d max_tokens=%d", len(prompt), maxTokens)
	for i := 0; i < maxTokens; i++ {
		next, err := s.step(cur)
		if err != nil {
			return nil, err
		}
		out = append(out, next)
		if callback != nil {
			callback(next)
		}
		cur = next
	}
	return out, nil
}
