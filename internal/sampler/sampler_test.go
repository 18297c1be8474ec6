package sampler

import (
	"math"
	"math/rand"
	"testing"
)

func TestProbabilities_Normalized(t *testing.T) {
	tests := []struct {
		name     string
		weights  []float64
		energies []float64
		invTemp  float64
	}{
		{name: "uniform", weights: []float64{0, 0, 0}, energies: []float64{0, 0, 0}, invTemp: 1},
		{name: "spread energies", weights: []float64{0, 0, 0}, energies: []float64{-5, 0, 5}, invTemp: 0.4},
		{name: "biased weights", weights: []float64{0, 2, -3}, energies: []float64{1, 1, 1}, invTemp: 1},
		{name: "large magnitudes", weights: []float64{0, 500, 1000}, energies: []float64{-2000, 0, 2000}, invTemp: 1},
		{name: "dominant level", weights: []float64{0, 0}, energies: []float64{0, 1e6}, invTemp: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Probabilities(tt.weights, tt.energies, tt.invTemp)

			sum := 0.0
			for i, pi := range p {
				if pi < 0 || pi > 1 {
					t.Errorf("p[%d] = %g outside [0,1]", i, pi)
				}
				sum += pi
			}
			if math.Abs(sum-1) > 1e-9 {
				t.Errorf("probabilities sum to %g, want 1", sum)
			}
		})
	}
}

func TestProbabilities_EqualWeightsUniform(t *testing.T) {
	p := Probabilities([]float64{0, 0, 0}, []float64{0, 0, 0}, 1)
	for i, pi := range p {
		if math.Abs(pi-1.0/3.0) > 1e-9 {
			t.Errorf("p[%d] = %g, want 1/3", i, pi)
		}
	}
}

func TestProbabilities_GaugeInvariance(t *testing.T) {
	weights := []float64{0, -1.2, 3.4, 0.7}
	energies := []float64{10, -3, 2.5, 8}

	base := Probabilities(weights, energies, 0.4)

	shifted := make([]float64, len(weights))
	for i, w := range weights {
		shifted[i] = w + 123.456
	}
	got := Probabilities(shifted, energies, 0.4)

	for i := range base {
		if math.Abs(base[i]-got[i]) > 1e-12 {
			t.Errorf("p[%d] changed under gauge shift: %g != %g", i, got[i], base[i])
		}
	}
}

func TestProbabilities_PermutationInvariance(t *testing.T) {
	weights := []float64{0, -1.2, 3.4}
	energies := []float64{10, -3, 2.5}
	perm := []int{2, 0, 1}

	base := Probabilities(weights, energies, 1)

	pw := make([]float64, len(perm))
	pe := make([]float64, len(perm))
	for i, j := range perm {
		pw[i] = weights[j]
		pe[i] = energies[j]
	}
	got := Probabilities(pw, pe, 1)

	// The probability attached to a level follows the level, regardless
	// of where it sits in the ordering.
	for i, j := range perm {
		if math.Abs(got[i]-base[j]) > 1e-12 {
			t.Errorf("permuted p[%d] = %g, want %g", i, got[i], base[j])
		}
	}
}

func TestPick_SeededMidpointDraw(t *testing.T) {
	// Three equal levels, r = 0.5: the walk subtracts 1/3 once and stops
	// at index 1.
	p := []float64{1.0 / 3.0, 1.0 / 3.0, 1.0 / 3.0}
	if got := pick(p, 0.5, 0); got != 1 {
		t.Errorf("pick = %d, want 1", got)
	}
}

func TestPick_FallbackOnExhaustedMass(t *testing.T) {
	// Probabilities that sum short of 1 model accumulated floating-point
	// error; a draw beyond the total mass stays at the occupied level.
	p := []float64{0.3, 0.3, 0.3}
	if got := pick(p, 0.999, 2); got != 2 {
		t.Errorf("pick = %d, want fallback 2", got)
	}
}

func TestSelect_SingleLevel(t *testing.T) {
	s := New(rand.New(rand.NewSource(1)))
	idx, p := s.Select([]float64{0}, []float64{42}, 1, 0)
	if idx != 0 {
		t.Errorf("idx = %d, want 0", idx)
	}
	if len(p) != 1 || p[0] != 1 {
		t.Errorf("p = %v, want [1]", p)
	}
}

func TestSelect_NaNEnergiesStayAtOccupiedLevel(t *testing.T) {
	// Degenerate per-level energies (an unevaluable system state) poison
	// the whole distribution with NaN. The draw must not panic; the
	// exhausted-mass fallback keeps the walker at the occupied level.
	tests := []struct {
		name     string
		energies []float64
	}{
		{"all NaN", []float64{math.NaN(), math.NaN(), math.NaN()}},
		{"single NaN", []float64{1.5, math.NaN(), -0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(rand.New(rand.NewSource(3)))
			weights := []float64{0, 0, 0}

			idx, p := s.Select(weights, tt.energies, 1, 2)
			if idx != 2 {
				t.Errorf("idx = %d, want occupied level 2", idx)
			}
			for i, pi := range p {
				if !math.IsNaN(pi) {
					t.Errorf("p[%d] = %g, want NaN propagation", i, pi)
				}
			}
		})
	}
}

func TestSelect_RespectsDistribution(t *testing.T) {
	// A heavily weighted level should dominate selections.
	s := New(rand.New(rand.NewSource(7)))
	weights := []float64{0, 10, 0}
	energies := []float64{0, 0, 0}

	counts := make([]int, 3)
	for i := 0; i < 2000; i++ {
		idx, _ := s.Select(weights, energies, 1, 0)
		counts[idx]++
	}

	if counts[1] < 1900 {
		t.Errorf("level 1 selected %d/2000 times, expected near-certain selection", counts[1])
	}
}

func TestLogSumExp(t *testing.T) {
	tests := []struct {
		name string
		x    []float64
		want float64
	}{
		{name: "single", x: []float64{3}, want: 3},
		{name: "two equal", x: []float64{0, 0}, want: math.Log(2)},
		{name: "huge values stay finite", x: []float64{1000, 1000}, want: 1000 + math.Log(2)},
		{name: "tiny values stay finite", x: []float64{-1000, -1000}, want: -1000 + math.Log(2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := logSumExp(tt.x)
			if math.IsInf(got, 0) || math.IsNaN(got) {
				t.Fatalf("logSumExp = %v, want finite", got)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("logSumExp = %g, want %g", got, tt.want)
			}
		})
	}
}
