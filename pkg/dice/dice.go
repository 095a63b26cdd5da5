// Package dice provides the random source used by the stochastic parts of
// the engine. Anything that rolls takes a Roller so tests can force outcomes.
package dice

import "math/rand/v2"

// Roller yields uniformly distributed values in [0, 1).
type Roller interface {
	Float64() float64
}

// NewSeeded returns a deterministic roller for the given seed.
func NewSeeded(seed uint64) Roller {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewRandom returns a roller seeded from the runtime's entropy source.
func NewRandom() Roller {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// Chance reports whether a roll lands under probability p.
func Chance(r Roller, p float64) bool {
	if p <= 0 {
		return false
	}
	if r == nil {
		return false
	}
	return r.Float64() < p
}

// Fixed replays a list of values in order, repeating the last one once the
// list is exhausted. An empty Fixed always rolls 0.
type Fixed struct {
	Values []float64
	calls  int
}

// NewFixed creates a Fixed roller.
func NewFixed(values ...float64) *Fixed {
	return &Fixed{Values: values}
}

// Always returns a roller that rolls v forever.
func Always(v float64) *Fixed {
	return NewFixed(v)
}

func (f *Fixed) Float64() float64 {
	defer func() { f.calls++ }()
	if len(f.Values) == 0 {
		return 0
	}
	if f.calls < len(f.Values) {
		return f.Values[f.calls]
	}
	return f.Values[len(f.Values)-1]
}

// Calls reports how many rolls have been made.
func (f *Fixed) Calls() int {
	return f.calls
}
