package simulation

import (
	"math"
	"testing"
)

// AssertConverged asserts that adaptation froze and the final update factor
// dropped below the cutoff.
func AssertConverged(t *testing.T, result RunResult, cutoff float64) {
	t.Helper()
	if result.FinalFactor >= cutoff {
		t.Errorf("AssertConverged: final update factor %g >= cutoff %g", result.FinalFactor, cutoff)
	}
	if result.Controller.AdaptationActive() {
		t.Error("AssertConverged: adaptation still active at end of run")
	}
	if !result.Converged {
		t.Error("AssertConverged: no convergence snapshot was emitted")
	}
}

// AssertTransitioned asserts that at least one accepted proposal moved the
// walker off its starting level.
func AssertTransitioned(t *testing.T, result RunResult) {
	t.Helper()
	if result.AcceptedCount() == 0 {
		t.Error("AssertTransitioned: walker never left its starting level")
	}
	if !result.Controller.HasMadeTransition() {
		t.Error("AssertTransitioned: controller never latched a transition")
	}
}

// AssertStageFactorsHalve asserts that the update factor recorded at each
// non-converged stage boundary is exactly half its predecessor's, and that
// stage indices count up by one.
func AssertStageFactorsHalve(t *testing.T, result RunResult) {
	t.Helper()
	prevFactor := math.Inf(1)
	prevStage := 0
	for i, s := range result.Stages {
		if s.Converged {
			continue
		}
		if s.Stage != prevStage+1 {
			t.Errorf("AssertStageFactorsHalve: stage %d follows stage %d at snapshot %d", s.Stage, prevStage, i)
		}
		if !math.IsInf(prevFactor, 1) && s.UpdateFactor != prevFactor/2 {
			t.Errorf("AssertStageFactorsHalve: snapshot %d factor %g, want %g", i, s.UpdateFactor, prevFactor/2)
		}
		prevFactor = s.UpdateFactor
		prevStage = s.Stage
	}
}

// AssertVisitationNearUniform asserts that per-level occupancy over attempts
// from attemptIndex onward deviates from the uniform share by at most
// tolerance (a fraction, e.g. 0.25 = 25%).
func AssertVisitationNearUniform(t *testing.T, result RunResult, attemptIndex int, tolerance float64) {
	t.Helper()
	visits := result.VisitsAfter(attemptIndex)
	total := 0
	for _, v := range visits {
		total += v
	}
	if total == 0 {
		t.Fatalf("AssertVisitationNearUniform: no attempts after index %d", attemptIndex)
	}
	share := 1.0 / float64(len(visits))
	for i, v := range visits {
		frac := float64(v) / float64(total)
		if math.Abs(frac-share) > tolerance*share {
			t.Errorf("AssertVisitationNearUniform: level %d visited %.1f%% of attempts, want %.1f%% ±%.0f%% (visits: %v)",
				i, frac*100, share*100, tolerance*100, visits)
		}
	}
}

// AssertWeightsGauged asserts that the final weight vector is pinned at
// zero for the first level.
func AssertWeightsGauged(t *testing.T, result RunResult) {
	t.Helper()
	if len(result.FinalWeights) == 0 {
		t.Fatal("AssertWeightsGauged: empty final weights")
	}
	if result.FinalWeights[0] != 0 {
		t.Errorf("AssertWeightsGauged: weights[0] = %g, want 0", result.FinalWeights[0])
	}
}

// AssertWeightNear asserts that the final weight of a level lies within
// ±tolerance of the expected value.
func AssertWeightNear(t *testing.T, result RunResult, level int, want, tolerance float64) {
	t.Helper()
	got := result.FinalWeights[level]
	if math.Abs(got-want) > tolerance {
		t.Errorf("AssertWeightNear: level %d weight %g, want %g ±%g", level, got, want, tolerance)
	}
}

// AssertProbabilitiesNormalized asserts that the selection probabilities of
// every attempt sum to one within tolerance.
func AssertProbabilitiesNormalized(t *testing.T, result RunResult, tolerance float64) {
	t.Helper()
	for i, a := range result.Attempts {
		sum := 0.0
		for _, p := range a.Probabilities {
			sum += p
		}
		if math.Abs(sum-1) > tolerance {
			t.Errorf("AssertProbabilitiesNormalized: attempt %d probabilities sum to %g", i, sum)
			return
		}
	}
}

// AssertNoGrowthAfterTransition asserts that once the walker has moved, the
// update factor never increases again: burn-in doubling must be unreachable
// after the first accepted proposal.
func AssertNoGrowthAfterTransition(t *testing.T, result RunResult) {
	t.Helper()
	first := FirstAcceptedIndex(result)
	if first < 0 {
		return
	}
	prev := result.Attempts[first].UpdateFactor
	for i := first + 1; i < len(result.Attempts); i++ {
		f := result.Attempts[i].UpdateFactor
		if f > prev {
			t.Errorf("AssertNoGrowthAfterTransition: attempt %d factor grew %g -> %g", i, prev, f)
			return
		}
		prev = f
	}
}

// MaxUpdateFactor returns the largest update factor seen across all attempts.
func MaxUpdateFactor(result RunResult) float64 {
	max := math.Inf(-1)
	for _, a := range result.Attempts {
		if a.UpdateFactor > max {
			max = a.UpdateFactor
		}
	}
	return max
}

// FirstAcceptedIndex returns the index of the first accepted attempt, or -1.
func FirstAcceptedIndex(result RunResult) int {
	for i, a := range result.Attempts {
		if a.Accepted {
			return i
		}
	}
	return -1
}
