package balance

import "github.com/kilianp07/phasebalance/core/model"

// Adjustment cost factors by how isolated a branch is.
const (
	costSharedBranch  = 0.6
	costSharedRoute   = 1.0
	costIsolatedRoute = 1.5
)

// AdjustmentCosts derives, for every branch present in consumers, how
// disruptive it is to rewire it. A branch shared by several consumers is
// cheapest, a lone consumer on a route that has others costs more and an
// isolated consumer costs the most.
func AdjustmentCosts(consumers []model.Consumer) map[model.BranchKey]float64 {
	perBranch := make(map[model.BranchKey]int)
	perRoute := make(map[string]int)
	for _, c := range consumers {
		perBranch[c.Key()]++
		perRoute[c.Route]++
	}
	costs := make(map[model.BranchKey]float64, len(perBranch))
	for key, n := range perBranch {
		switch {
		case n > 1:
			costs[key] = costSharedBranch
		case perRoute[key.Route] > 1:
			costs[key] = costSharedRoute
		default:
			costs[key] = costIsolatedRoute
		}
	}
	return costs
}
