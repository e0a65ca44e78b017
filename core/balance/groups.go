package balance

import (
	"cmp"
	"slices"

	"github.com/kilianp07/phasebalance/core/model"
)

// unit is the smallest thing the operators move: a declared branch group or
// a single ungrouped consumer.
type unit struct {
	key      model.BranchKey
	members  []int
	grouped  bool
	hasPower bool
	// anchor is the baseline phase of the first member; group mutations
	// pick a phase different from it.
	anchor model.Phase
	// base is the unit's load on its current wiring.
	base [3]float64
	// power is the summed total power of the members.
	power float64
}

// indexGroups maps every declared group to the indices of the consumers on
// its route and branch, in one pass over the consumers. Groups without
// members are dropped.
func indexGroups(consumers []model.Consumer, groups []model.BranchGroup) map[model.BranchKey][]int {
	if len(groups) == 0 {
		return map[model.BranchKey][]int{}
	}
	declared := make(map[model.BranchKey]struct{}, len(groups))
	for _, g := range groups {
		declared[g.Key()] = struct{}{}
	}
	index := make(map[model.BranchKey][]int)
	for i, c := range consumers {
		if _, ok := declared[c.Key()]; ok {
			index[c.Key()] = append(index[c.Key()], i)
		}
	}
	return index
}

// buildUnits turns the group index into units. Groups come first in key
// order so that runs with a fixed seed are reproducible, then every
// ungrouped consumer as its own unit. The second result maps a consumer
// index to its unit.
func buildUnits(consumers []model.Consumer, index map[model.BranchKey][]int) ([]unit, []int) {
	keys := make([]model.BranchKey, 0, len(index))
	for k := range index {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b model.BranchKey) int {
		if c := cmp.Compare(a.Route, b.Route); c != 0 {
			return c
		}
		return cmp.Compare(a.Branch, b.Branch)
	})

	unitOf := make([]int, len(consumers))
	for i := range unitOf {
		unitOf[i] = -1
	}
	units := make([]unit, 0, len(consumers))
	for _, k := range keys {
		u := newUnit(consumers, index[k])
		u.key = k
		u.grouped = true
		for _, m := range u.members {
			unitOf[m] = len(units)
		}
		units = append(units, u)
	}
	for i, c := range consumers {
		if unitOf[i] >= 0 {
			continue
		}
		u := newUnit(consumers, []int{i})
		u.key = c.Key()
		unitOf[i] = len(units)
		units = append(units, u)
	}
	return units, unitOf
}

func newUnit(consumers []model.Consumer, members []int) unit {
	u := unit{members: members, anchor: consumers[members[0]].BaselinePhase()}
	for _, m := range members {
		c := consumers[m]
		if c.IsPowerPhase() {
			u.hasPower = true
		}
		add := c.PowerOn(c.BaselinePhase(), model.RotationNone)
		u.base[0] += add[0]
		u.base[1] += add[1]
		u.base[2] += add[2]
		u.power += c.TotalPower()
	}
	return u
}
