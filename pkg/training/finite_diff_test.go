package training

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/model/classifier"
)

func TestStepRestoresOnNoImprovement(t *testing.T) {
	m := classifier.New("training-test", classifier.Config{InputDim: 4, Hidden: []int{4}, NumClasses: 2, Head: classifier.MultiClass})
	tr := New(m.Model, 0.01, 1)

	callCount := 0
	lossFn := func() float64 {
		callCount++
		return 1.0 // constant loss: perturbation never improves
	}

	w, _ := m.GetParameter("output_weight")
	before := append([]float32(nil), w.Data...)

	tr.Step(lossFn)

	assert.Equal(t, before, w.Data)
	assert.Equal(t, 2, callCount)
}

func TestRunTransitionsStateAndBack(t *testing.T) {
	m := classifier.New("training-test", classifier.Config{InputDim: 4, Hidden: []int{4}, NumClasses: 2, Head: classifier.MultiClass})
	tr := New(m.Model, 0.01, 2)

	loss := 10.0
	lossFn := func() float64 { return loss }

	history := tr.Run(lossFn, 5)
	assert.Len(t, history, 5)
	assert.Equal(t, "TRAINED", string(m.State))
}
