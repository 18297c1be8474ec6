// Package constants provides named constants used throughout the tempering
// codebase. The Wang-Landau thresholds encode tunable statistical judgment
// calls rather than protocol requirements, so they are centralized here
// instead of living as literals at the call sites.
package constants

// Wang-Landau recursion constants
const (
	// InitialUpdateFactor is the starting step size for online weight
	// estimation. The recursion only ever multiplies it by FactorShrink
	// or FactorGrow.
	InitialUpdateFactor = 1.0

	// FactorShrink is applied to the update factor when the visit
	// histogram passes the flatness test.
	FactorShrink = 0.5

	// FactorGrow is applied to the update factor during burn-in when the
	// walker has never left its starting level and the sampler assigns it
	// essentially all of the probability mass. Rapidly searches for a
	// workable initial step size before any real mixing has happened.
	FactorGrow = 2.0

	// FlatnessMinVisits is the minimum count every level must exceed
	// before the histogram can be judged flat.
	FlatnessMinVisits = 20

	// FlatnessFraction is the fraction of the mean visit count that the
	// least-visited level must reach for the histogram to be judged flat.
	FlatnessFraction = 0.2

	// StuckProbability is the selection probability above which the
	// current level is considered to have trapped the walker.
	StuckProbability = 0.99
)

// Scheduling and convergence defaults
const (
	// DefaultChangeInterval is the default number of dynamics steps
	// between level-change attempts. Ideally longer than the potential
	// energy autocorrelation time of the tempered process.
	DefaultChangeInterval = 1000

	// DefaultReportInterval is the default number of dynamics steps
	// between report lines.
	DefaultReportInterval = 1000

	// DefaultCutoff stops weight adaptation once the update factor drops
	// below it. Safe for almost anything; exponentially larger values
	// (e.g. 1e-5) save equilibration time at the cost of slightly
	// incorrect weights.
	DefaultCutoff = 1e-8
)

// Physical constants
const (
	// MolarGasConstantR is the molar gas constant in kJ/(mol·K), matching
	// the kJ/mol energy units used throughout.
	MolarGasConstantR = 8.31446261815324e-3
)
