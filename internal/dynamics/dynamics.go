// Package dynamics provides toy physical systems for driving the tempering
// engine end to end. Real simulations plug in behind the same capability
// interfaces (tempering.EnergyEvaluator and tempering.LevelApplier); these
// implementations exist so the CLI and the simulation harness can run
// without an external engine.
package dynamics

import (
	"math"
	"math/rand"
)

// Harmonic is a one-dimensional particle in a harmonic well whose stiffness
// is scaled by the tempered parameter. Advancing the system integrates
// overdamped Langevin dynamics with seeded noise, so runs are reproducible.
type Harmonic struct {
	stiffness float64
	noise     float64
	dt        float64
	scale     float64 // currently applied level value
	pos       float64
	rng       *rand.Rand
}

// NewHarmonic creates a harmonic system with base stiffness k (kJ/mol per
// unit length squared) and thermal noise amplitude.
func NewHarmonic(stiffness, noise float64, rng *rand.Rand) *Harmonic {
	return &Harmonic{
		stiffness: stiffness,
		noise:     noise,
		dt:        0.01,
		scale:     1.0,
		pos:       1.0,
		rng:       rng,
	}
}

// ApplyLevel sets the tempered scaling parameter. Idempotent; it has no
// side effect beyond the parameter itself.
func (h *Harmonic) ApplyLevel(value float64) error {
	h.scale = value
	return nil
}

// PotentialEnergy evaluates the potential of the current configuration at
// the given level value without mutating the configuration.
func (h *Harmonic) PotentialEnergy(levelValue float64) (float64, error) {
	return 0.5 * levelValue * h.stiffness * h.pos * h.pos, nil
}

// Advance integrates the given number of overdamped Langevin steps under
// the currently applied level value.
func (h *Harmonic) Advance(steps int) {
	for i := 0; i < steps; i++ {
		drift := -h.dt * h.scale * h.stiffness * h.pos
		h.pos += drift + math.Sqrt(2*h.dt)*h.noise*h.rng.NormFloat64()
	}
}

// Position returns the particle coordinate.
func (h *Harmonic) Position() float64 {
	return h.pos
}

// Static is a configuration-free system whose potential energy is a fixed
// function of the level value. Used by tests and the simulation harness to
// construct exact synthetic landscapes.
type Static struct {
	// Energy maps a level value to a potential energy in kJ/mol.
	// A nil Energy means a flat zero landscape.
	Energy func(levelValue float64) float64

	applied float64
}

// ApplyLevel records the applied level value.
func (s *Static) ApplyLevel(value float64) error {
	s.applied = value
	return nil
}

// PotentialEnergy returns the landscape value at the given level value.
func (s *Static) PotentialEnergy(levelValue float64) (float64, error) {
	if s.Energy == nil {
		return 0, nil
	}
	return s.Energy(levelValue), nil
}

// Applied returns the level value most recently applied to the system.
func (s *Static) Applied() float64 {
	return s.applied
}

// Advance is a no-op; a static landscape has no configuration to evolve.
func (s *Static) Advance(steps int) {}
