// Package sampler chooses the next tempering level by metropolized
// independence sampling. Per-level energies are turned into reduced
// potentials, biased by the current weights, and normalized into a
// categorical distribution with a numerically stable log-sum-exp. Because
// the proposal distribution already encodes the exact target ratios, the
// single draw is accepted unconditionally; no separate Metropolis
// accept/reject step is needed.
package sampler

import (
	"math"
	"math/rand"
)

// Sampler draws level proposals from an injected random source. Inject a
// seeded *rand.Rand for reproducible runs.
type Sampler struct {
	rng *rand.Rand
}

// New creates a sampler backed by rng.
func New(rng *rand.Rand) *Sampler {
	return &Sampler{rng: rng}
}

// Probabilities computes the categorical distribution over levels given the
// current weights and instantaneous per-level energies:
//
//	p[i] ∝ exp(weights[i] − inverseTemperature·energies[i])
//
// The result sums to 1 up to floating-point error and tolerates a single
// dominant level (probability ≈ 1 at one index).
func Probabilities(weights, energies []float64, inverseTemperature float64) []float64 {
	logScore := make([]float64, len(weights))
	for i := range weights {
		logScore[i] = weights[i] - inverseTemperature*energies[i]
	}
	offset := logSumExp(logScore)

	p := make([]float64, len(logScore))
	for i, ls := range logScore {
		p[i] = math.Exp(ls - offset)
	}
	return p
}

// Select draws the next level. current is the level occupied at call time;
// it is returned unchanged when floating-point error exhausts the
// cumulative probability mass without selecting an index (a defined
// degenerate branch, not an error). The returned distribution is the one
// the draw was made from.
func (s *Sampler) Select(weights, energies []float64, inverseTemperature float64, current int) (int, []float64) {
	if len(weights) == 1 {
		// Single level: no tempering.
		return 0, []float64{1}
	}

	p := Probabilities(weights, energies, inverseTemperature)
	return pick(p, s.rng.Float64(), current), p
}

// pick walks the levels in index order, subtracting each probability from r;
// the first index where r falls short is the proposal. fallback is returned
// when accumulated floating-point error lets r survive the full walk.
func pick(p []float64, r float64, fallback int) int {
	for i, pi := range p {
		if r < pi {
			return i
		}
		r -= pi
	}
	return fallback
}

// logSumExp computes log(Σ exp(x[i])) without overflow. The result is
// finite for any input containing at least one finite entry.
func logSumExp(x []float64) float64 {
	max := math.Inf(-1)
	for _, v := range x {
		if v > max {
			max = v
		}
	}
	if math.IsInf(max, -1) {
		return max
	}

	var sum float64
	for _, v := range x {
		sum += math.Exp(v - max)
	}
	return max + math.Log(sum)
}
