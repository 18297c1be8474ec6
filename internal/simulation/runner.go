package simulation

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/ljmartin/generalized-tempering/internal/constants"
	"github.com/ljmartin/generalized-tempering/internal/dynamics"
	"github.com/ljmartin/generalized-tempering/internal/ladder"
	"github.com/ljmartin/generalized-tempering/internal/tempering"
)

// Runner drives scenario experiments against a real controller and a
// static synthetic landscape.
type Runner struct {
	t *testing.T
}

// NewRunner creates a simulation runner.
func NewRunner(t *testing.T) *Runner {
	t.Helper()
	return &Runner{t: t}
}

// Run executes the scenario and returns the collected results.
func (r *Runner) Run(sc Scenario) RunResult {
	r.t.Helper()

	lad, err := ladder.New(sc.Levels)
	if err != nil {
		r.t.Fatalf("Run(%s): ladder: %v", sc.Name, err)
	}

	baseTemp := sc.BaseTemperature
	if baseTemp == 0 {
		baseTemp = 1.0 / constants.MolarGasConstantR
	}
	seed := sc.Seed
	if seed == 0 {
		seed = 1
	}
	changeInterval := sc.ChangeInterval
	if changeInterval == 0 {
		changeInterval = 1
	}
	reportInterval := sc.ReportInterval
	if reportInterval == 0 {
		reportInterval = changeInterval
	}
	if sc.Steps <= 0 {
		r.t.Fatalf("Run(%s): scenario needs a positive step count", sc.Name)
	}

	sys := &dynamics.Static{Energy: sc.Energy}
	result := RunResult{Visits: make([]int, lad.Len())}

	ctl, err := tempering.New(tempering.Options{
		Ladder:          lad,
		System:          sys,
		Cutoff:          sc.Cutoff,
		BaseTemperature: baseTemp,
		Weights:         sc.Weights,
		ChangeInterval:  changeInterval,
		ReportInterval:  reportInterval,
		StartLevel:      sc.StartLevel,
		Rand:            rand.New(rand.NewSource(seed)),
		Estimator:       sc.Estimator,
		OnAttempt: func(a tempering.Attempt) {
			result.Attempts = append(result.Attempts, a)
			result.Visits[a.Level]++
		},
		OnStage: func(s tempering.StageSnapshot) {
			result.Stages = append(result.Stages, s)
			if s.Converged {
				result.Converged = true
			}
		},
	})
	if err != nil {
		r.t.Fatalf("Run(%s): controller: %v", sc.Name, err)
	}

	step := 0
	for step < sc.Steps {
		step += ctl.NextTickSteps(step)
		if step > sc.Steps {
			break
		}
		if err := ctl.Tick(step); err != nil {
			r.t.Fatalf("Run(%s): tick at step %d: %v", sc.Name, step, err)
		}
	}

	result.FinalWeights = ctl.Weights()
	result.FinalFactor = ctl.UpdateFactor()
	result.Controller = ctl
	return result
}

// FormatAttemptDebug returns a debug string for a window of attempts.
func FormatAttemptDebug(result RunResult, from, to int) string {
	if to > len(result.Attempts) {
		to = len(result.Attempts)
	}
	s := ""
	for _, a := range result.Attempts[from:to] {
		s += fmt.Sprintf("  step=%d proposal=%d accepted=%v level=%d factor=%g\n",
			a.Step, a.Proposal, a.Accepted, a.Level, a.UpdateFactor)
	}
	return s
}
