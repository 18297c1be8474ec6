// Package weights estimates per-level bias weights online using the
// Wang-Landau recursion. Each visit to a level pushes that level's weight
// down so it is sampled less in the future; once visitation is flat across
// levels the step size is halved, and estimation stops when the step size
// drops below a configured cutoff.
package weights

import (
	"fmt"
	"math"

	"github.com/ljmartin/generalized-tempering/internal/constants"
)

// Config holds the tunable thresholds of the recursion. These encode
// statistical judgment calls, not protocol requirements.
type Config struct {
	// FlatnessMinVisits is the minimum count every level must exceed
	// before the histogram can be judged flat. Default: 20.
	FlatnessMinVisits int

	// FlatnessFraction is the fraction of the mean visit count the
	// least-visited level must reach. Default: 0.2.
	FlatnessFraction float64

	// StuckProbability is the selection probability above which the
	// current level is considered to have trapped the walker. Default: 0.99.
	StuckProbability float64

	// GrowFactor multiplies the update factor during burn-in. Default: 2.0.
	GrowFactor float64

	// ShrinkFactor multiplies the update factor on a flat histogram. Default: 0.5.
	ShrinkFactor float64
}

// DefaultConfig returns the standard Wang-Landau stage-refinement thresholds.
func DefaultConfig() Config {
	return Config{
		FlatnessMinVisits: constants.FlatnessMinVisits,
		FlatnessFraction:  constants.FlatnessFraction,
		StuckProbability:  constants.StuckProbability,
		GrowFactor:        constants.FactorGrow,
		ShrinkFactor:      constants.FactorShrink,
	}
}

// Event describes what a single recursion step changed.
type Event struct {
	// Flattened is true when the histogram passed the flatness test:
	// the update factor was halved, the histogram reset, and the weights
	// re-gauged so index 0 is zero.
	Flattened bool

	// Doubled is true when the burn-in acceleration fired: the update
	// factor was doubled and the histogram reset.
	Doubled bool

	// UpdateFactor is the step size after this event.
	UpdateFactor float64

	// Stage counts completed flatness stages since construction.
	Stage int
}

// Estimator maintains the weight vector, visit histogram, and update factor.
// It is not safe for concurrent use; the controller mutates it synchronously
// from within a single tick.
type Estimator struct {
	cfg     Config
	cutoff  float64
	weights []float64
	hist    []int
	factor  float64
	active  bool
	stage   int
}

// NewEstimator creates an estimator that adapts weights online, starting
// from the zero vector.
func NewEstimator(levels int, cutoff float64, cfg Config) (*Estimator, error) {
	if levels < 1 {
		return nil, fmt.Errorf("weights: at least one level is required, got %d", levels)
	}
	if cutoff <= 0 {
		return nil, fmt.Errorf("weights: cutoff must be positive, got %g", cutoff)
	}
	return &Estimator{
		cfg:     cfg,
		cutoff:  cutoff,
		weights: make([]float64, levels),
		hist:    make([]int, levels),
		factor:  constants.InitialUpdateFactor,
		active:  true,
	}, nil
}

// NewFrozen creates an estimator holding pre-equilibrated weights. No
// histogram is allocated and Update is a no-op: equilibration is considered
// already complete.
func NewFrozen(w []float64) (*Estimator, error) {
	if len(w) < 1 {
		return nil, fmt.Errorf("weights: at least one level is required, got %d", len(w))
	}
	ws := make([]float64, len(w))
	copy(ws, w)
	return &Estimator{weights: ws, active: false}, nil
}

// Update performs one Wang-Landau recursion step for the given level. It
// must be called once per level-change attempt, accepted or rejected, and
// only does anything while adaptation is active.
//
// hasMadeTransition reports whether any accepted proposal has ever moved
// the walker; selectionProbability is the probability the sampler assigned
// to the current level this attempt.
func (e *Estimator) Update(level int, hasMadeTransition bool, selectionProbability float64) Event {
	if !e.active {
		return Event{UpdateFactor: e.factor, Stage: e.stage}
	}

	e.weights[level] -= e.factor
	e.hist[level]++

	minCount := e.hist[0]
	total := 0
	for _, c := range e.hist {
		if c < minCount {
			minCount = c
		}
		total += c
	}
	mean := float64(total) / float64(len(e.hist))

	if minCount > e.cfg.FlatnessMinVisits && float64(minCount) >= e.cfg.FlatnessFraction*mean {
		// Flat enough: refine the stage.
		e.factor *= e.cfg.ShrinkFactor
		e.resetHistogram()
		e.regauge()
		e.stage++
		return Event{Flattened: true, UpdateFactor: e.factor, Stage: e.stage}
	}

	if !hasMadeTransition && selectionProbability > e.cfg.StuckProbability {
		// The walker is essentially stuck at its starting level; the
		// current step size is too small to matter. Search upward.
		e.factor *= e.cfg.GrowFactor
		e.resetHistogram()
		return Event{Doubled: true, UpdateFactor: e.factor, Stage: e.stage}
	}

	return Event{UpdateFactor: e.factor, Stage: e.stage}
}

// CheckCutoff freezes adaptation once the update factor has dropped below
// the cutoff. The transition is one-way. It reports whether adaptation is
// still active afterward.
func (e *Estimator) CheckCutoff() bool {
	if e.active && e.factor < e.cutoff {
		e.active = false
	}
	return e.active
}

// Active reports whether weights are still adapting.
func (e *Estimator) Active() bool {
	return e.active
}

// UpdateFactor returns the current Wang-Landau step size.
func (e *Estimator) UpdateFactor() float64 {
	return e.factor
}

// Stage returns the number of completed flatness stages.
func (e *Estimator) Stage() int {
	return e.stage
}

// Weights returns the gauge-shifted weight vector: every entry minus the
// first, so index 0 is always zero. Only weight differences matter for
// sampling, so the gauge choice is free.
func (e *Estimator) Weights() []float64 {
	out := make([]float64, len(e.weights))
	for i, w := range e.weights {
		out[i] = w - e.weights[0]
	}
	return out
}

// Histogram returns a copy of the visit counts since the last halving.
// Nil when adaptation was never active.
func (e *Estimator) Histogram() []int {
	if e.hist == nil {
		return nil
	}
	out := make([]int, len(e.hist))
	copy(out, e.hist)
	return out
}

func (e *Estimator) resetHistogram() {
	for i := range e.hist {
		e.hist[i] = 0
	}
}

// regauge subtracts weights[0] from every entry so index 0 is exactly zero.
func (e *Estimator) regauge() {
	w0 := e.weights[0]
	if w0 == 0 || math.IsNaN(w0) {
		return
	}
	for i := range e.weights {
		e.weights[i] -= w0
	}
	e.weights[0] = 0
}
