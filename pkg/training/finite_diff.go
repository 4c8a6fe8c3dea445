// Package training implements the finite-difference diagnostic trainer
// carried over as a non-goal-adjacent capability: perturb one random
// parameter element, measure whether the loss improved, and keep the
// perturbation only then — otherwise restore it unconditionally. This is
// explicitly not a production trainer; it exists so a smoke test can drive
// a trivial loss downward, and it must leave no observable state behind a
// non-improving step.
package training

import (
	"math/rand"

	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/core/params"
)

// LossFunc evaluates the current loss of the model under its present
// parameter values. Called twice per Step: once before and once after the
// trial perturbation.
type LossFunc func() float64

// Trainer runs finite-difference parameter perturbation steps over a
// model's ParameterMap.
type Trainer struct {
	model   *params.Model
	epsilon float32
	rng     *rand.Rand
}

// New constructs a Trainer over model with perturbation size epsilon and a
// seeded sampler for reproducible parameter-index selection.
func New(model *params.Model, epsilon float32, seed int64) *Trainer {
	return &Trainer{model: model, epsilon: epsilon, rng: rand.New(rand.NewSource(seed))}
}

// Step perturbs one randomly chosen element of one randomly chosen
// parameter by ±epsilon, measures the loss before and after via lossFn, and
// keeps the perturbation only if the new loss is strictly lower. Otherwise
// it restores the original value before returning — no observable state
// survives a non-improving step: there is no momentum or Adam-style
// carryover, only unconditional restore.
func (tr *Trainer) Step(lossFn LossFunc) (before, after float64, improved bool) {
	names := tr.model.Params.Names()
	if len(names) == 0 {
		return 0, 0, false
	}
	name := names[tr.rng.Intn(len(names))]
	t, _ := tr.model.GetParameter(name)
	if len(t.Data) == 0 {
		return 0, 0, false
	}
	idx := tr.rng.Intn(len(t.Data))

	before = lossFn()

	original := t.Data[idx]
	delta := tr.epsilon
	if tr.rng.Intn(2) == 0 {
		delta = -delta
	}
	t.Data[idx] = original + delta

	after = lossFn()
	if after < before {
		return before, after, true
	}

	t.Data[idx] = original
	return before, before, false
}

// Run executes n steps, transitioning the model to TRAINING for the
// duration and back to TRAINED on completion, and returns the loss
// recorded after every step (whether or not it improved).
func (tr *Trainer) Run(lossFn LossFunc, n int) []float64 {
	tr.model.State = params.StateTraining
	history := make([]float64, n)
	for i := 0; i < n; i++ {
		_, after, _ := tr.Step(lossFn)
		history[i] = after
	}
	tr.model.State = params.StateTrained
	return history
}
