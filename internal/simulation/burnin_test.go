package simulation_test

import (
	"testing"

	"github.com/ljmartin/generalized-tempering/internal/simulation"
)

// TestBurnInEscapesTrappedStart validates the burn-in acceleration: when the
// starting level dominates selection so completely that the walker would
// never move, the update factor doubles each attempt until the accumulated
// bias makes a transition possible.
//
// Setup:
//   - 3 levels whose energies differ by 50 in score units, so the starting
//     level's selection probability begins above 0.99
//
// Expected: the update factor grows past its initial value and the walker
// transitions within a handful of attempts rather than ~e^50 of them.
func TestBurnInEscapesTrappedStart(t *testing.T) {
	r := simulation.NewRunner(t)

	result := r.Run(simulation.Scenario{
		Name:   "trapped-start",
		Levels: []float64{0, 5, 10},
		Energy: func(v float64) float64 { return 10 * v },
		Steps:  200,
		Seed:   3,
	})

	simulation.AssertTransitioned(t, result)
	simulation.AssertNoGrowthAfterTransition(t, result)

	if got := simulation.MaxUpdateFactor(result); got <= 1.0 {
		t.Errorf("update factor never grew during burn-in: max %g", got)
	}
	first := simulation.FirstAcceptedIndex(result)
	if first < 0 || first >= 20 {
		t.Errorf("first transition at attempt %d, want within the first 20\n%s",
			first, simulation.FormatAttemptDebug(result, 0, 20))
	}
}
