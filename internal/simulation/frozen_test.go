package simulation_test

import (
	"math"
	"testing"

	"github.com/ljmartin/generalized-tempering/internal/simulation"
)

// TestFrozenWeightsSkipAdaptation validates runs with pre-equilibrated
// weights: estimation never activates, no stages are emitted, and weights
// that exactly cancel the energy differences yield uniform selection.
func TestFrozenWeightsSkipAdaptation(t *testing.T) {
	r := simulation.NewRunner(t)

	result := r.Run(simulation.Scenario{
		Name:    "frozen-weights",
		Levels:  []float64{0, 1, 2},
		Energy:  func(v float64) float64 { return 3 * v },
		Weights: []float64{0, 3, 6},
		Steps:   3000,
		Seed:    11,
	})

	if result.Controller.AdaptationActive() {
		t.Error("adaptation active despite pre-equilibrated weights")
	}
	if len(result.Stages) != 0 {
		t.Errorf("got %d stage snapshots, want none", len(result.Stages))
	}

	// The supplied weights must come back untouched.
	want := []float64{0, 3, 6}
	for i, w := range result.FinalWeights {
		if w != want[i] {
			t.Errorf("weights[%d] = %g, want %g", i, w, want[i])
		}
	}

	// Weights cancel the energies exactly, so every attempt's selection
	// probabilities are uniform.
	for i, p := range result.Attempts[0].Probabilities {
		if math.Abs(p-1.0/3.0) > 1e-12 {
			t.Errorf("attempt 0 probability[%d] = %g, want 1/3", i, p)
		}
	}
	simulation.AssertVisitationNearUniform(t, result, 0, 0.15)
}
