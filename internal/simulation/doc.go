// Package simulation provides a multi-attempt test harness for validating
// emergent behavior of the tempering controller.
//
// The harness exercises the real Controller, Estimator, and Sampler — no
// mocks. Scenarios are Go builders that construct synthetic energy
// landscapes over a level ladder and drive configurable numbers of steps,
// capturing every level-change attempt and every Wang-Landau stage boundary
// for property-based assertions.
//
// Each scenario runs with a seeded random source so results are
// reproducible across machines.
//
// Usage:
//
//	func TestFlatLandscapeConverges(t *testing.T) {
//	    r := simulation.NewRunner(t)
//	    result := r.Run(simulation.Scenario{
//	        Name:   "flat-landscape",
//	        Levels: []float64{0, 0.25, 0.5, 0.75, 1},
//	        Cutoff: 1e-3,
//	        Steps:  200000,
//	    })
//	    simulation.AssertConverged(t, result, 1e-3)
//	}
package simulation
