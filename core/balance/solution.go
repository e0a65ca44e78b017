package balance

import (
	"slices"

	"github.com/kilianp07/phasebalance/core/model"
)

// Metrics are the measured properties of a Solution.
type Metrics struct {
	PhasePowers   [3]float64
	UnbalanceRate float64
	// Changed is the number of rewired consumers.
	Changed     int
	ChangeRatio float64
	// AdjustmentCost is the cost-weighted share of power moved inside
	// branch groups.
	AdjustmentCost float64
	NormalizedCost float64
}

// Solution assigns a phase and a rotation to every consumer. For a
// three-phase consumer the rotation decides how its readings move and the
// phase is a label; for a single-phase consumer the phase decides where its
// load goes.
type Solution struct {
	Phases    []model.Phase
	Rotations []model.Rotation
	// Fitness is minimised by the search.
	Fitness float64
	Metrics Metrics
}

func newSolution(n int) *Solution {
	return &Solution{Phases: make([]model.Phase, n), Rotations: make([]model.Rotation, n)}
}

// Len returns the number of consumers covered.
func (s *Solution) Len() int { return len(s.Phases) }

// Phase returns the phase assigned to consumer i.
func (s *Solution) Phase(i int) model.Phase { return s.Phases[i] }

// Rotation returns the rotation assigned to consumer i.
func (s *Solution) Rotation(i int) model.Rotation { return s.Rotations[i] }

// UnbalanceRate returns the measured unbalance rate.
func (s *Solution) UnbalanceRate() float64 { return s.Metrics.UnbalanceRate }

// Feasible reports whether the solution is under the acceptance threshold.
func (s *Solution) Feasible() bool { return s.Metrics.UnbalanceRate < MaxAcceptableUnbalance }

// Clone returns a deep copy.
func (s *Solution) Clone() *Solution {
	return &Solution{
		Phases:    slices.Clone(s.Phases),
		Rotations: slices.Clone(s.Rotations),
		Fitness:   s.Fitness,
		Metrics:   s.Metrics,
	}
}
