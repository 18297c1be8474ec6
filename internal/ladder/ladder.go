// Package ladder defines the fixed, ordered sequence of tempering levels.
// A level is identified by its index, not its parameter value; the value is
// whatever the caller's scaling function interprets (a lambda, a restraint
// center, a scaled temperature, ...). The ladder is immutable for the
// lifetime of a run.
package ladder

import "fmt"

// Ladder is an immutable ordered sequence of level parameter values.
type Ladder struct {
	values []float64
}

// New creates a ladder from the given parameter values. At least one level
// is required.
func New(values []float64) (*Ladder, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("ladder: at least one level is required")
	}
	vs := make([]float64, len(values))
	copy(vs, values)
	return &Ladder{values: vs}, nil
}

// Len returns the number of levels.
func (l *Ladder) Len() int {
	return len(l.values)
}

// Value returns the parameter value of the level at index i.
func (l *Ladder) Value(i int) float64 {
	return l.values[i]
}

// Values returns a copy of all level parameter values in index order.
func (l *Ladder) Values() []float64 {
	vs := make([]float64, len(l.values))
	copy(vs, l.values)
	return vs
}
