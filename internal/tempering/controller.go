// Package tempering implements the serial simulated tempering controller.
// A single walker owns one level of the tempered parameter at a time; at
// fixed step intervals the controller queries the energy of every level,
// draws the next level by metropolized independence sampling, adapts the
// per-level weights while estimation is active, and periodically emits a
// report line.
package tempering

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"time"

	"github.com/ljmartin/generalized-tempering/internal/constants"
	"github.com/ljmartin/generalized-tempering/internal/ladder"
	"github.com/ljmartin/generalized-tempering/internal/logging"
	"github.com/ljmartin/generalized-tempering/internal/report"
	"github.com/ljmartin/generalized-tempering/internal/sampler"
	"github.com/ljmartin/generalized-tempering/internal/weights"
)

// EnergyEvaluator reports the potential energy of the current system
// configuration at a level's parameter value, in kJ/mol. It must be
// callable once per level per tick without mutating the configuration;
// only the tempered parameter changes.
type EnergyEvaluator interface {
	PotentialEnergy(levelValue float64) (float64, error)
}

// LevelApplier mutates the external system so that subsequent evaluations
// reflect the given level's parameter value. It must be idempotent and
// side-effect-free beyond that parameter.
type LevelApplier interface {
	ApplyLevel(levelValue float64) error
}

// System combines the two capabilities a tempered simulation must provide.
type System interface {
	EnergyEvaluator
	LevelApplier
}

// State identifies what the controller is doing within a tick.
type State int

const (
	// StateDynamics: between ticks, the external loop is integrating.
	StateDynamics State = iota
	// StateEvaluatingLevels: querying energies for every level.
	StateEvaluatingLevels
	// StateAttemptingChange: sampling and possibly switching levels.
	StateAttemptingChange
	// StateReporting: writing a report line.
	StateReporting
)

func (s State) String() string {
	switch s {
	case StateDynamics:
		return "dynamics"
	case StateEvaluatingLevels:
		return "evaluating-levels"
	case StateAttemptingChange:
		return "attempting-change"
	case StateReporting:
		return "reporting"
	default:
		return "unknown"
	}
}

// Attempt records one level-change attempt for hooks and tracing.
type Attempt struct {
	Step          int
	Proposal      int
	Accepted      bool // proposal differed from the occupied level
	Level         int  // level occupied after the attempt
	Probabilities []float64
	UpdateFactor  float64
}

// StageSnapshot captures the weight vector at a Wang-Landau stage boundary
// (an update-factor halving) or at convergence.
type StageSnapshot struct {
	Step         int
	Stage        int
	UpdateFactor float64
	Weights      []float64
	Converged    bool
}

// Options configures a Controller. Ladder and System are required; zero
// intervals fall back to the defaults.
type Options struct {
	Ladder          *ladder.Ladder
	System          System
	Cutoff          float64
	BaseTemperature float64

	// Weights, when non-nil, supplies pre-equilibrated weights and
	// disables online estimation entirely.
	Weights []float64

	ChangeInterval int
	ReportInterval int
	StartLevel     int

	// Report, when non-nil, receives one line per report interval.
	Report *report.Writer

	// Rand seeds the level sampler. Defaults to a time-seeded source.
	Rand *rand.Rand

	// Estimator overrides the Wang-Landau policy thresholds.
	Estimator *weights.Config

	Logger      *slog.Logger
	Transitions *logging.TransitionLogger

	// OnAttempt is invoked after every level-change attempt.
	OnAttempt func(Attempt)
	// OnStage is invoked at every stage boundary and once at convergence.
	OnStage func(StageSnapshot)
}

// Controller orchestrates tempering steps. It is single-threaded and
// synchronous: the driving loop calls Tick, and all state is mutated only
// inside that call.
type Controller struct {
	ladder *ladder.Ladder
	system System
	est    *weights.Estimator
	smp    *sampler.Sampler
	rep    *report.Writer

	changeInterval int
	reportInterval int
	invTemp        float64

	current           int
	hasMadeTransition bool
	state             State
	energies          []float64

	logger      *slog.Logger
	transitions *logging.TransitionLogger
	onAttempt   func(Attempt)
	onStage     func(StageSnapshot)
}

// New validates the options, initializes the weight estimator, and applies
// the starting level to the external system immediately.
func New(opts Options) (*Controller, error) {
	if opts.Ladder == nil {
		return nil, fmt.Errorf("tempering: ladder is required")
	}
	if opts.System == nil {
		return nil, fmt.Errorf("tempering: system is required")
	}
	if opts.BaseTemperature <= 0 {
		return nil, fmt.Errorf("tempering: base temperature must be positive, got %g", opts.BaseTemperature)
	}
	if opts.ChangeInterval == 0 {
		opts.ChangeInterval = constants.DefaultChangeInterval
	}
	if opts.ReportInterval == 0 {
		opts.ReportInterval = constants.DefaultReportInterval
	}
	if opts.ChangeInterval < 0 || opts.ReportInterval < 0 {
		return nil, fmt.Errorf("tempering: intervals must be positive, got change=%d report=%d",
			opts.ChangeInterval, opts.ReportInterval)
	}
	if opts.Cutoff == 0 {
		opts.Cutoff = constants.DefaultCutoff
	}
	if opts.StartLevel < 0 || opts.StartLevel >= opts.Ladder.Len() {
		return nil, fmt.Errorf("tempering: start level %d out of range [0,%d)", opts.StartLevel, opts.Ladder.Len())
	}

	var est *weights.Estimator
	var err error
	if opts.Weights != nil {
		if len(opts.Weights) != opts.Ladder.Len() {
			return nil, fmt.Errorf("tempering: %d weights supplied for %d levels",
				len(opts.Weights), opts.Ladder.Len())
		}
		est, err = weights.NewFrozen(opts.Weights)
	} else {
		cfg := weights.DefaultConfig()
		if opts.Estimator != nil {
			cfg = *opts.Estimator
		}
		est, err = weights.NewEstimator(opts.Ladder.Len(), opts.Cutoff, cfg)
	}
	if err != nil {
		return nil, err
	}

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c := &Controller{
		ladder:         opts.Ladder,
		system:         opts.System,
		est:            est,
		smp:            sampler.New(rng),
		rep:            opts.Report,
		changeInterval: opts.ChangeInterval,
		reportInterval: opts.ReportInterval,
		invTemp:        1.0 / (constants.MolarGasConstantR * opts.BaseTemperature),
		current:        opts.StartLevel,
		state:          StateDynamics,
		energies:       make([]float64, opts.Ladder.Len()),
		logger:         logger,
		transitions:    opts.Transitions,
		onAttempt:      opts.OnAttempt,
		onStage:        opts.OnStage,
	}

	if err := c.system.ApplyLevel(c.ladder.Value(c.current)); err != nil {
		return nil, fmt.Errorf("tempering: apply starting level: %w", err)
	}
	return c, nil
}

// Tick performs the controller work due at the given step index. When the
// step lands on neither interval boundary the tick is a no-op and the
// external system is never touched. A tick performs a complete
// evaluate-select-update-apply sequence or none of it.
func (c *Controller) Tick(step int) error {
	changeDue := step%c.changeInterval == 0
	reportDue := step%c.reportInterval == 0
	if !changeDue && !reportDue {
		c.state = StateDynamics
		return nil
	}

	// One-way adaptation downgrade, checked before any attempt.
	if c.est.Active() && !c.est.CheckCutoff() {
		c.logger.Info("weight estimation converged",
			"step", step,
			"updateFactor", c.est.UpdateFactor(),
			"stage", c.est.Stage())
		if c.onStage != nil {
			c.onStage(StageSnapshot{
				Step:         step,
				Stage:        c.est.Stage(),
				UpdateFactor: c.est.UpdateFactor(),
				Weights:      c.est.Weights(),
				Converged:    true,
			})
		}
	}

	if err := c.evaluateLevels(); err != nil {
		return err
	}

	if changeDue {
		c.state = StateAttemptingChange
		if err := c.attemptLevelChange(step); err != nil {
			return err
		}
	}

	if reportDue && c.rep != nil {
		c.state = StateReporting
		err := c.rep.WriteLine(step, c.est.UpdateFactor(),
			c.ladder.Value(c.current), c.energies[c.current], c.est.Weights())
		if err != nil {
			return err
		}
	}

	c.state = StateDynamics
	return nil
}

// evaluateLevels queries the energy of every level, then restores the
// tempered parameter to the current level's value: levels other than the
// current one are evaluated purely for scoring, never left applied.
func (c *Controller) evaluateLevels() error {
	c.state = StateEvaluatingLevels
	for i := 0; i < c.ladder.Len(); i++ {
		v := c.ladder.Value(i)
		if err := c.system.ApplyLevel(v); err != nil {
			return fmt.Errorf("tempering: apply level %d: %w", i, err)
		}
		e, err := c.system.PotentialEnergy(v)
		if err != nil {
			return fmt.Errorf("tempering: evaluate level %d: %w", i, err)
		}
		c.energies[i] = e
	}
	if err := c.system.ApplyLevel(c.ladder.Value(c.current)); err != nil {
		return fmt.Errorf("tempering: restore level %d: %w", c.current, err)
	}
	return nil
}

func (c *Controller) attemptLevelChange(step int) error {
	if c.ladder.Len() == 1 {
		// Single level: no tempering, weights irrelevant.
		return nil
	}

	proposal, probs := c.smp.Select(c.est.Weights(), c.energies, c.invTemp, c.current)

	accepted := proposal != c.current
	if accepted {
		c.hasMadeTransition = true
		c.current = proposal
		if err := c.system.ApplyLevel(c.ladder.Value(proposal)); err != nil {
			return fmt.Errorf("tempering: apply level %d: %w", proposal, err)
		}
	}

	if c.est.Active() {
		ev := c.est.Update(c.current, c.hasMadeTransition, probs[c.current])
		if ev.Flattened {
			c.logger.Debug("histogram flat, stage refined",
				"step", step, "stage", ev.Stage, "updateFactor", ev.UpdateFactor)
			if c.onStage != nil {
				c.onStage(StageSnapshot{
					Step:         step,
					Stage:        ev.Stage,
					UpdateFactor: ev.UpdateFactor,
					Weights:      c.est.Weights(),
				})
			}
		}
		if ev.Doubled {
			c.logger.Debug("walker stuck during burn-in, update factor doubled",
				"step", step, "updateFactor", ev.UpdateFactor)
		}
	}

	c.logger.Log(context.Background(), logging.LevelTrace, "level-change attempt",
		"step", step, "proposal", proposal, "accepted", accepted, "probabilities", probs)
	c.transitions.Log(logging.AttemptRecord{
		Step:         step,
		Proposal:     proposal,
		Accepted:     accepted,
		Level:        c.current,
		Probability:  probs[c.current],
		UpdateFactor: c.est.UpdateFactor(),
	})
	if c.onAttempt != nil {
		probsCopy := make([]float64, len(probs))
		copy(probsCopy, probs)
		c.onAttempt(Attempt{
			Step:          step,
			Proposal:      proposal,
			Accepted:      accepted,
			Level:         c.current,
			Probabilities: probsCopy,
			UpdateFactor:  c.est.UpdateFactor(),
		})
	}
	return nil
}

// NextTickSteps returns how many steps the driving loop may integrate from
// currentStep before the next change-or-report boundary.
func (c *Controller) NextTickSteps(currentStep int) int {
	toChange := c.changeInterval - currentStep%c.changeInterval
	toReport := c.reportInterval - currentStep%c.reportInterval
	if toChange < toReport {
		return toChange
	}
	return toReport
}

// CurrentLevel returns the index of the occupied level.
func (c *Controller) CurrentLevel() int {
	return c.current
}

// CurrentValue returns the parameter value of the occupied level.
func (c *Controller) CurrentValue() float64 {
	return c.ladder.Value(c.current)
}

// HasMadeTransition reports whether any accepted proposal has ever moved
// the walker. Never reset.
func (c *Controller) HasMadeTransition() bool {
	return c.hasMadeTransition
}

// Weights returns the gauge-shifted weight vector (index 0 is zero).
func (c *Controller) Weights() []float64 {
	return c.est.Weights()
}

// UpdateFactor returns the current Wang-Landau step size.
func (c *Controller) UpdateFactor() float64 {
	return c.est.UpdateFactor()
}

// AdaptationActive reports whether weights are still adapting.
func (c *Controller) AdaptationActive() bool {
	return c.est.Active()
}

// Stage returns the number of completed Wang-Landau stages.
func (c *Controller) Stage() int {
	return c.est.Stage()
}

// State returns what the controller is currently doing. Outside Tick this
// is always StateDynamics.
func (c *Controller) State() State {
	return c.state
}
