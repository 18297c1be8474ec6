package simulation

import (
	"github.com/ljmartin/generalized-tempering/internal/tempering"
	"github.com/ljmartin/generalized-tempering/internal/weights"
)

// Scenario defines a complete tempering experiment over a synthetic
// energy landscape.
type Scenario struct {
	Name   string
	Levels []float64

	// Energy maps a level value to a potential energy in kJ/mol.
	// Nil means a flat zero landscape.
	Energy func(levelValue float64) float64

	// BaseTemperature in Kelvin. Zero defaults to 1/R, which makes the
	// inverse temperature exactly 1 so energies read directly as scores.
	BaseTemperature float64

	Cutoff         float64
	ChangeInterval int
	ReportInterval int
	Steps          int
	Seed           int64
	StartLevel     int

	// Weights, when non-nil, supplies pre-equilibrated weights and
	// disables online estimation.
	Weights []float64

	// Estimator overrides the Wang-Landau policy thresholds.
	Estimator *weights.Config
}

// RunResult captures everything the controller did during a scenario.
type RunResult struct {
	// Attempts holds every level-change attempt in order.
	Attempts []tempering.Attempt

	// Stages holds every Wang-Landau stage boundary, plus the final
	// convergence snapshot when the cutoff was reached.
	Stages []tempering.StageSnapshot

	// Visits counts, per level, how often the walker occupied that level
	// after an attempt.
	Visits []int

	FinalWeights []float64
	FinalFactor  float64
	Converged    bool

	Controller *tempering.Controller
}

// AcceptedCount returns how many attempts moved the walker.
func (r RunResult) AcceptedCount() int {
	n := 0
	for _, a := range r.Attempts {
		if a.Accepted {
			n++
		}
	}
	return n
}

// VisitsAfter counts per-level occupancy over attempts from the given
// attempt index onward.
func (r RunResult) VisitsAfter(attemptIndex int) []int {
	visits := make([]int, len(r.Visits))
	for _, a := range r.Attempts[attemptIndex:] {
		visits[a.Level]++
	}
	return visits
}
