package weights

import (
	"math"
	"testing"
)

func TestUpdate_VisitPushesWeightDown(t *testing.T) {
	e, err := NewEstimator(3, 1e-8, DefaultConfig())
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}

	e.Update(1, true, 0.4)

	w := e.Weights()
	if w[1] != -1.0 {
		t.Errorf("weights[1] = %f, want -1.0 after one visit at factor 1.0", w[1])
	}
	if got := e.Histogram()[1]; got != 1 {
		t.Errorf("histogram[1] = %d, want 1", got)
	}
}

func TestUpdate_FlatHistogramHalvesAndResets(t *testing.T) {
	e, err := NewEstimator(4, 1e-8, DefaultConfig())
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}

	// Uniform round-robin visitation. The first moment every level
	// exceeds 20 visits (21 each, min > 20 and min >= 0.2*mean) the stage
	// refinement fires.
	var ev Event
	var flatRound, flatLevel int
	for round := 0; round < 30 && !ev.Flattened; round++ {
		for level := 0; level < 4; level++ {
			ev = e.Update(level, true, 0.25)
			if ev.Flattened {
				flatRound, flatLevel = round, level
				break
			}
		}
	}

	if !ev.Flattened {
		t.Fatal("expected flatness refinement after uniform visitation")
	}
	if flatRound != 20 || flatLevel != 3 {
		t.Errorf("flattened at round %d level %d, want round 20 level 3", flatRound, flatLevel)
	}
	if e.UpdateFactor() != 0.5 {
		t.Errorf("update factor = %f, want 0.5", e.UpdateFactor())
	}
	for i, c := range e.Histogram() {
		if c != 0 {
			t.Errorf("histogram[%d] = %d, want 0 after reset", i, c)
		}
	}
	if w := e.Weights(); w[0] != 0 {
		t.Errorf("weights[0] = %f, want exactly 0 after re-gauge", w[0])
	}
	if e.Stage() != 1 {
		t.Errorf("stage = %d, want 1", e.Stage())
	}
}

func TestUpdate_BurnInDoubling(t *testing.T) {
	e, err := NewEstimator(3, 1e-8, DefaultConfig())
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}

	// Walker stuck at level 0 before any transition: probability ~1 at the
	// current level doubles the factor and clears the histogram.
	ev := e.Update(0, false, 0.999)
	if !ev.Doubled {
		t.Fatal("expected burn-in doubling")
	}
	if e.UpdateFactor() != 2.0 {
		t.Errorf("update factor = %f, want 2.0", e.UpdateFactor())
	}
	if got := e.Histogram()[0]; got != 0 {
		t.Errorf("histogram[0] = %d, want 0 after reset", got)
	}

	// Once a transition has happened the doubling branch never fires again.
	ev = e.Update(0, true, 0.999)
	if ev.Doubled {
		t.Error("doubling fired after a transition was made")
	}
}

func TestUpdate_FlatnessWinsOverDoubling(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FlatnessMinVisits = 0 // any positive count passes the minimum

	e, err := NewEstimator(1, 1e-8, cfg)
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}

	// With one level both branch conditions hold simultaneously; the
	// flatness branch is checked first and must win.
	ev := e.Update(0, false, 1.0)
	if !ev.Flattened {
		t.Error("expected flatness branch to win")
	}
	if ev.Doubled {
		t.Error("doubling fired alongside flattening")
	}
	if e.UpdateFactor() != 0.5 {
		t.Errorf("update factor = %f, want 0.5", e.UpdateFactor())
	}
}

func TestCheckCutoff_OneWayFreeze(t *testing.T) {
	e, err := NewEstimator(2, 0.75, DefaultConfig())
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}

	if !e.CheckCutoff() {
		t.Fatal("adaptation should be active at factor 1.0, cutoff 0.75")
	}

	// Force a halving below the cutoff via flat visitation.
	for round := 0; round < 25; round++ {
		e.Update(0, true, 0.5)
		e.Update(1, true, 0.5)
	}
	if e.UpdateFactor() >= 0.75 {
		t.Fatalf("update factor %f did not drop below cutoff", e.UpdateFactor())
	}

	if e.CheckCutoff() {
		t.Error("adaptation still active below cutoff")
	}

	// Frozen: further updates leave everything untouched.
	before := e.Weights()
	e.Update(0, true, 0.5)
	after := e.Weights()
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("weights[%d] changed after freeze: %f != %f", i, after[i], before[i])
		}
	}
}

func TestNewFrozen(t *testing.T) {
	e, err := NewFrozen([]float64{0, -1.2, 3.4})
	if err != nil {
		t.Fatalf("NewFrozen: %v", err)
	}
	if e.Active() {
		t.Error("frozen estimator reports active adaptation")
	}
	if e.Histogram() != nil {
		t.Error("frozen estimator allocated a histogram")
	}

	ev := e.Update(1, false, 1.0)
	if ev.Flattened || ev.Doubled {
		t.Error("frozen estimator mutated state on Update")
	}
	if w := e.Weights(); w[1] != -1.2 || w[2] != 3.4 {
		t.Errorf("weights = %v, want [0 -1.2 3.4]", w)
	}
}

func TestWeights_GaugeShift(t *testing.T) {
	e, err := NewEstimator(3, 1e-8, DefaultConfig())
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}

	// Two visits at level 0 push its raw weight to -2; the exposed vector
	// is shifted so index 0 reads zero and the others move up by 2.
	e.Update(0, true, 0.3)
	e.Update(0, true, 0.3)

	w := e.Weights()
	want := []float64{0, 2, 2}
	for i := range want {
		if math.Abs(w[i]-want[i]) > 1e-12 {
			t.Errorf("weights[%d] = %f, want %f", i, w[i], want[i])
		}
	}
}

func TestNewEstimator_Validation(t *testing.T) {
	if _, err := NewEstimator(0, 1e-8, DefaultConfig()); err == nil {
		t.Error("expected error for zero levels")
	}
	if _, err := NewEstimator(3, 0, DefaultConfig()); err == nil {
		t.Error("expected error for non-positive cutoff")
	}
	if _, err := NewFrozen(nil); err == nil {
		t.Error("expected error for empty weight vector")
	}
}
