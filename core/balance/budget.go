package balance

import "math"

const (
	minPopulation  = 100
	maxPopulation  = 400
	minGenerations = 500
	maxGenerations = 2000
	scaleThreshold = 1000

	baseChangeRatio = 0.15
	maxChangeRatio  = 0.40
	lowUnbalance    = 10.0
	highUnbalance   = 30.0
	budgetCurvature = 2.5
)

// PopulationSize scales the population with the consumer count.
func PopulationSize(n int) int {
	return clamp(minPopulation*(1+n/scaleThreshold), minPopulation, maxPopulation)
}

// Generations scales the generation count with the consumer count.
func Generations(n int) int {
	return clamp(minGenerations*(1+n/scaleThreshold), minGenerations, maxGenerations)
}

// MaxChangeRatio returns the fraction of consumers a solution may rewire,
// given the unbalance rate of the unoptimised feeder. Badly unbalanced
// feeders are allowed more changes, growing exponentially between 10% and
// 30% unbalance.
func MaxChangeRatio(unbalance float64) float64 {
	switch {
	case unbalance <= lowUnbalance:
		return baseChangeRatio
	case unbalance >= highUnbalance:
		return maxChangeRatio
	}
	x := (unbalance - lowUnbalance) / (highUnbalance - lowUnbalance)
	growth := (math.Exp(budgetCurvature*x) - 1) / (math.Exp(budgetCurvature) - 1)
	return baseChangeRatio + (maxChangeRatio-baseChangeRatio)*growth
}

// MaxChanges is the change budget in consumers.
func MaxChanges(n int, unbalance float64) int {
	return int(MaxChangeRatio(unbalance) * float64(n))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
